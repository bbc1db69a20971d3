// Package library persists and reloads the per-agent KB artifacts. The
// index and crawl report live under the kb/ subdirectory alongside the
// Markdown files; the pack manifest sits in the agent directory so it can
// hash everything under kb/.
package library

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jonathan/kb-factory/internal/types"
)

const (
	// IndexFile is the per-agent index artifact name.
	IndexFile = "index.json"
	// CrawlReportFile is the per-agent crawl telemetry artifact name.
	CrawlReportFile = "crawl_report.json"
	// ManifestFile is the content-hash manifest artifact name.
	ManifestFile = "kb_pack_manifest.json"
	// KBDirName is the subdirectory holding the KB Markdown files.
	KBDirName = "kb"
)

// ArtifactError represents a KB artifact that could not be written or read.
type ArtifactError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ArtifactError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("artifact error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("artifact error (%s): %s", e.Path, e.Message)
}

func (e *ArtifactError) Unwrap() error {
	return e.Cause
}

// KBDir returns the KB subdirectory for an agent directory.
func KBDir(agentDir string) string {
	return filepath.Join(agentDir, KBDirName)
}

// WriteIndex writes index.json into the kb/ subdirectory.
func WriteIndex(agentDir string, index *types.Index) error {
	return writeJSON(filepath.Join(KBDir(agentDir), IndexFile), index)
}

// ReadIndex loads index.json from the kb/ subdirectory.
func ReadIndex(agentDir string) (*types.Index, error) {
	var index types.Index
	if err := readJSON(filepath.Join(KBDir(agentDir), IndexFile), &index); err != nil {
		return nil, err
	}
	return &index, nil
}

// WriteCrawlReport writes crawl_report.json into the kb/ subdirectory.
func WriteCrawlReport(agentDir string, report *types.CrawlReport) error {
	return writeJSON(filepath.Join(KBDir(agentDir), CrawlReportFile), report)
}

// ReadCrawlReport loads crawl_report.json from the kb/ subdirectory.
func ReadCrawlReport(agentDir string) (*types.CrawlReport, error) {
	var report types.CrawlReport
	if err := readJSON(filepath.Join(KBDir(agentDir), CrawlReportFile), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// WriteManifest hashes every file under kb/ — the Markdown topics plus
// index.json and crawl_report.json — and writes the result as
// kb_pack_manifest.json in the agent directory. Paths in the manifest are
// relative to the agent directory. The index and report must already be
// written when this runs.
func WriteManifest(agentDir string) error {
	hashes := make(map[string]string)

	entries, err := os.ReadDir(KBDir(agentDir))
	if err != nil {
		return &ArtifactError{Path: KBDir(agentDir), Message: "failed to list KB directory", Cause: err}
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rel := filepath.ToSlash(filepath.Join(KBDirName, entry.Name()))
		sum, err := hashFile(filepath.Join(agentDir, KBDirName, entry.Name()))
		if err != nil {
			return err
		}
		hashes[rel] = sum
	}

	return writeJSON(filepath.Join(agentDir, ManifestFile), hashes)
}

// ReadManifest loads kb_pack_manifest.json from the agent directory.
func ReadManifest(agentDir string) (map[string]string, error) {
	var hashes map[string]string
	if err := readJSON(filepath.Join(agentDir, ManifestFile), &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// VerifyManifest rehashes the manifest's entries and returns the relative
// paths whose content no longer matches, in sorted order. A missing file
// counts as a mismatch.
func VerifyManifest(agentDir string) ([]string, error) {
	hashes, err := ReadManifest(agentDir)
	if err != nil {
		return nil, err
	}

	var stale []string
	for rel, want := range hashes {
		got, err := hashFile(filepath.Join(agentDir, filepath.FromSlash(rel)))
		if err != nil || got != want {
			stale = append(stale, rel)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// BuildCoverage computes topic coverage for a set of file records against
// the required topic stems. Raw-crawl and optional files count toward the
// file total but never toward required topics.
func BuildCoverage(files []types.FileRecord, requiredStems []string) types.Coverage {
	present := make(map[string]bool, len(files))
	for _, file := range files {
		name := filepath.Base(file.Path)
		present[name[:len(name)-len(filepath.Ext(name))]] = true
	}

	coverage := types.Coverage{
		TotalFiles:    len(files),
		MissingTopics: []string{},
	}
	for _, stem := range requiredStems {
		if present[stem] {
			coverage.RequiredTopicsMet++
		} else {
			coverage.MissingTopics = append(coverage.MissingTopics, stem)
		}
	}
	return coverage
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &ArtifactError{Path: path, Message: "failed to marshal artifact", Cause: err}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &ArtifactError{Path: path, Message: "failed to write artifact", Cause: err}
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ArtifactError{Path: path, Message: "artifact not found or unreadable", Cause: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ArtifactError{Path: path, Message: "malformed artifact JSON", Cause: err}
	}
	return nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ArtifactError{Path: path, Message: "failed to hash file", Cause: err}
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
