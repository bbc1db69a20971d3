package crawling

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jonathan/kb-factory/internal/chunking"
	"github.com/jonathan/kb-factory/internal/types"
)

// DiscoveryThreshold is the minimum evidence page count below which a build
// enters discovery mode.
const DiscoveryThreshold = 5

// ScarceDataBanner is prepended to the evidence corpus in discovery mode.
// It instructs the generator to admit unknowns rather than invent.
const ScarceDataBanner = "[SYSTEM WARNING: scarce data] Fewer than five pages of crawl evidence are available. " +
	"Prefer \"Unknown / Confirm on discovery call\" over inventing any value."

// RawFilePrefix names the crawler-emitted evidence files under kb/.
const RawFilePrefix = "60_crawled_"

// RawCrawlTag is the canonical tag carried by raw-crawl evidence files.
const RawCrawlTag = "raw_crawl"

// BuildCorpus concatenates the evidence records, in crawl order, into the
// immutable corpus for one build. When fewer than DiscoveryThreshold pages
// are available, the scarce-data banner is prepended.
func BuildCorpus(records []types.EvidenceRecord) string {
	var sb strings.Builder

	if len(records) < DiscoveryThreshold {
		sb.WriteString(ScarceDataBanner)
		sb.WriteString("\n\n")
	}

	for _, record := range records {
		fmt.Fprintf(&sb, "=== Source: %s (%s) ===\n", record.URL, record.Title)
		sb.WriteString(record.ExtractedText)
		sb.WriteString("\n\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// WriteRawFiles writes each evidence record as a raw-crawl KB file under
// kbDir and returns their index records. Pages over the chunk token budget
// are split into continuation files (_part2, _part3, ...) with overlap so
// no single evidence file exceeds one chunk. Raw-crawl files carry the
// source URL at the top, are tagged raw_crawl, and are excluded from
// truthiness checks downstream.
func WriteRawFiles(kbDir string, records []types.EvidenceRecord) ([]types.FileRecord, error) {
	chunker := chunking.NewChunker()
	fileRecords := make([]types.FileRecord, 0, len(records))
	used := make(map[string]bool)

	for _, record := range records {
		base := RawFilePrefix + pageSlug(record.URL)
		for i := 2; used[base]; i++ {
			base = fmt.Sprintf("%s%s_%d", RawFilePrefix, pageSlug(record.URL), i)
		}
		used[base] = true

		for i, chunk := range chunker.Split(record.ExtractedText, record.URL, record.Title) {
			name := base + ".md"
			title := record.Title
			if i > 0 {
				name = fmt.Sprintf("%s_part%d.md", base, i+1)
				title = fmt.Sprintf("%s (part %d)", record.Title, i+1)
			}

			content := fmt.Sprintf("# %s\n\nSource: %s\n\n%s\n", title, chunk.Source, chunk.Text)
			path := filepath.Join(kbDir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, &CrawlError{Message: "failed to write raw-crawl file " + name, Cause: err}
			}

			fileRecords = append(fileRecords, types.FileRecord{
				Path:       "kb/" + name,
				Title:      title,
				Tags:       []string{RawCrawlTag},
				SourceURLs: []string{record.URL},
				Summary:    "Crawled content from " + record.URL,
				Provenance: types.ProvenanceCrawler,
				ChunkMeta: types.ChunkMeta{
					ApproxTokens:  chunk.TokenCount,
					ChunkStrategy: chunking.Strategy,
				},
				FileHash: hashContent(content),
			})
		}
	}

	return fileRecords, nil
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// pageSlug derives a filesystem-safe slug from a page URL's path, falling
// back to "home" for the site root.
func pageSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "page"
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "home"
	}
	slug := slugCleaner.ReplaceAllString(strings.ToLower(path), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "page"
	}
	return slug
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
