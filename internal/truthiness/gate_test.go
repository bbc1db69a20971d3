package truthiness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/kb-factory/internal/library"
	"github.com/jonathan/kb-factory/internal/types"
)

type fixtureFile struct {
	name       string
	content    string
	provenance string
	sources    []string
}

// writeLibrary materializes a minimal built library: KB files on disk plus
// index.json and crawl_report.json. The discovery flag is derived from the
// report the way the composer derives it.
func writeLibrary(t *testing.T, files []fixtureFile, report *types.CrawlReport) string {
	t.Helper()
	agentDir := t.TempDir()
	require.NoError(t, os.MkdirAll(library.KBDir(agentDir), 0o755))

	records := make([]types.FileRecord, 0, len(files))
	for _, file := range files {
		path := filepath.Join(library.KBDir(agentDir), file.name)
		require.NoError(t, os.WriteFile(path, []byte(file.content), 0o644))
		records = append(records, types.FileRecord{
			Path:       "kb/" + file.name,
			Provenance: file.provenance,
			SourceURLs: file.sources,
		})
	}

	index := &types.Index{
		Files:             records,
		DiscoveryRequired: report.PagesFetched < DefaultMinPages,
	}
	require.NoError(t, library.WriteIndex(agentDir, index))
	require.NoError(t, library.WriteCrawlReport(agentDir, report))
	return agentDir
}

func healthyReport(pages int) *types.CrawlReport {
	urls := make([]string, pages)
	for i := range urls {
		urls[i] = "https://acme.example/page"
	}
	return &types.CrawlReport{PagesFetched: pages, URLs: urls, StatusCodes: map[string]int{}}
}

func TestCheck_CleanWellCrawledBuild(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "00_overview.md",
			content:    "# Company Overview\n\nAcme HVAC serves Phoenix homeowners.\n",
			provenance: types.ProvenanceDossier,
			sources:    []string{"https://acme.example"},
		},
		{
			name:       "10_services_and_offerings.md",
			content:    "# Services and Offerings\n\nInstalls and repairs [Source](https://acme.example/services).\n",
			provenance: types.ProvenanceLLM,
			sources:    []string{"https://acme.example", "https://acme.example/services"},
		},
		{
			name:       "60_crawled_home.md",
			content:    "# Acme HVAC\n\nSource: https://acme.example\n\nInstalls and repairs across Phoenix.\n",
			provenance: types.ProvenanceCrawler,
			sources:    []string{"https://acme.example"},
		},
	}, healthyReport(6))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.Empty(t, violations.Violations)
	assert.True(t, Passes(violations))
}

func TestCheck_LowCrawlInDiscoveryModeIsWarning(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "00_overview.md",
			content:    "# Company Overview\n\nAcme HVAC serves Phoenix.\n",
			provenance: types.ProvenanceDossier,
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	require.Len(t, violations.Violations, 1)
	assert.Equal(t, types.ViolationLowCrawl, violations.Violations[0].Type)
	assert.Equal(t, SeverityWarning, violations.Violations[0].Severity)
	assert.True(t, Passes(violations), "a flagged discovery build must stay releasable")
}

func TestCheck_LowCrawlWithoutDiscoveryFlagBlocks(t *testing.T) {
	agentDir := t.TempDir()
	require.NoError(t, os.MkdirAll(library.KBDir(agentDir), 0o755))
	path := filepath.Join(library.KBDir(agentDir), "00_overview.md")
	require.NoError(t, os.WriteFile(path, []byte("# Company Overview\n\nAcme HVAC serves Phoenix.\n"), 0o644))

	// The index claims a full build, but the crawl came back thin.
	index := &types.Index{
		Files: []types.FileRecord{
			{Path: "kb/00_overview.md", Provenance: types.ProvenanceDossier},
		},
		DiscoveryRequired: false,
	}
	require.NoError(t, library.WriteIndex(agentDir, index))
	require.NoError(t, library.WriteCrawlReport(agentDir, healthyReport(0)))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)

	require.Len(t, violations.Violations, 1)
	assert.Equal(t, types.ViolationLowCrawl, violations.Violations[0].Type)
	assert.Equal(t, SeverityError, violations.Violations[0].Severity)
	assert.False(t, Passes(violations))
}

func TestCheck_SourceDiversity(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "00_overview.md",
			content:    "# Company Overview\n\nAcme HVAC serves Phoenix.\n",
			provenance: types.ProvenanceLLM,
			sources:    []string{"https://acme.example"},
		},
	}, healthyReport(6))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)

	kinds := violationTypes(violations)
	assert.Contains(t, kinds, types.ViolationSourceDiversity)
	assert.False(t, Passes(violations))
}

func TestCheck_SourceDiversitySkippedWhenEvidenceStarved(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "00_overview.md",
			content:    "# Company Overview\n\nAcme HVAC serves Phoenix.\n",
			provenance: types.ProvenanceDossier,
			sources:    []string{"https://acme.example"},
		},
	}, healthyReport(2))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.NotContains(t, violationTypes(violations), types.ViolationSourceDiversity)
}

func TestCheck_NestedMarkdownFence(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "20_FAQ.md",
			content:    "# FAQ\n\n```markdown\n# FAQ\n```\n",
			provenance: types.ProvenanceLLM,
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)

	assert.Contains(t, violationTypes(violations), types.ViolationNestedMarkdown)
	assert.False(t, Passes(violations))
}

func TestCheck_PlaceholderDenylist(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"toll-free template", "Call us at 1-800-123-4567 today.\n"},
		{"fictional exchange", "Reach dispatch at 555-0199.\n"},
		{"template domain", "Visit example.com for details.\n"},
		{"insert marker", "Our team serves [Insert city here] daily.\n"},
		{"lorem ipsum", "LOREM IPSUM dolor sit amet.\n"},
		{"model disclaimer", "As an AI language model, I cannot say.\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agentDir := writeLibrary(t, []fixtureFile{
				{name: "20_FAQ.md", content: "# FAQ\n\n" + tc.content, provenance: types.ProvenanceDossier},
			}, healthyReport(0))

			violations, err := Check(Options{AgentDir: agentDir})
			require.NoError(t, err)
			assert.Contains(t, violationTypes(violations), types.ViolationPlaceholder)
			assert.False(t, Passes(violations))
		})
	}
}

func TestCheck_PlaceholdersIgnoredInRawCrawlFiles(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "60_crawled_home.md",
			content:    "# Home\n\nSource: https://acme.example\n\nSee example.com for the spec.\n",
			provenance: types.ProvenanceCrawler,
			sources:    []string{"https://acme.example"},
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.NotContains(t, violationTypes(violations), types.ViolationPlaceholder)
}

func TestCheck_UngroundedMetric(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "50_case_studies_and_proof.md",
			content:    "# Case Studies and Proof\n\nCustomers report 97% satisfaction.\n",
			provenance: types.ProvenanceLLM,
		},
		{
			name:       "60_crawled_home.md",
			content:    "# Home\n\nSource: https://acme.example\n\nActual page text without numbers.\n",
			provenance: types.ProvenanceCrawler,
			sources:    []string{"https://acme.example"},
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)

	assert.Contains(t, violationTypes(violations), types.ViolationEntityGrounding)
	assert.False(t, Passes(violations))
}

func TestCheck_GroundedEntitiesPass(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "50_case_studies_and_proof.md",
			content:    "# Case Studies and Proof\n\nCustomers report 97% satisfaction. Email support@acme.example or call (480) 555-2368.\n",
			provenance: types.ProvenanceLLM,
		},
		{
			name:       "60_crawled_home.md",
			content:    "# Home\n\nSource: https://acme.example\n\n97% satisfaction across reviews. Contact Support@acme.example at (480) 555-2368.\n",
			provenance: types.ProvenanceCrawler,
			sources:    []string{"https://acme.example"},
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.NotContains(t, violationTypes(violations), types.ViolationEntityGrounding)
}

func TestCheck_PhoneGroundingIsDigitsOnly(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "55_contact_next_steps.md",
			content:    "# Contact and Next Steps\n\nCall 480.555.2368 to book.\n",
			provenance: types.ProvenanceLLM,
		},
		{
			name:       "60_crawled_contact.md",
			content:    "# Contact\n\nSource: https://acme.example/contact\n\nPhone: (480) 555-2368\n",
			provenance: types.ProvenanceCrawler,
			sources:    []string{"https://acme.example/contact"},
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.NotContains(t, violationTypes(violations), types.ViolationEntityGrounding)
}

func TestCheck_UnknownEscapeExemptsFile(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "15_pricing_and_packages.md",
			content:    "# Pricing and Packages\n\nBase service is billed hourly. Exact rates: " + UnknownEscape + ". Teams report 40% faster close.\n",
			provenance: types.ProvenanceLLM,
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.NotContains(t, violationTypes(violations), types.ViolationEntityGrounding)
}

func TestCheck_UnknownTokenAloneExemptsFile(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "50_case_studies_and_proof.md",
			content:    "# Case Studies and Proof\n\nTeams report 40% faster close. Exact rates Unknown.\n",
			provenance: types.ProvenanceLLM,
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.NotContains(t, violationTypes(violations), types.ViolationEntityGrounding)
}

func TestCheck_DossierContentDoesNotGroundClaims(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "00_overview.md",
			content:    "# Company Overview\n\nDispatch details Unknown at intake.\n",
			provenance: types.ProvenanceDossier,
		},
		{
			name:       "10_services_and_offerings.md",
			content:    "# Services and Offerings\n\nAcme cut response time 30% for dispatch teams.\n",
			provenance: types.ProvenanceLLM,
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.Contains(t, violationTypes(violations), types.ViolationEntityGrounding)
	assert.False(t, Passes(violations))
}

func TestCheck_NonLLMFilesAreScannedToo(t *testing.T) {
	agentDir := writeLibrary(t, []fixtureFile{
		{
			name:       "00_overview.md",
			content:    "# Company Overview\n\nAcme is trusted by thousands of homeowners.\n",
			provenance: types.ProvenanceDossier,
		},
		{
			name:       "60_crawled_home.md",
			content:    "# Home\n\nSource: https://acme.example\n\nPlain page text with no claims.\n",
			provenance: types.ProvenanceCrawler,
			sources:    []string{"https://acme.example"},
		},
	}, healthyReport(0))

	violations, err := Check(Options{AgentDir: agentDir})
	require.NoError(t, err)
	assert.Contains(t, violationTypes(violations), types.ViolationEntityGrounding)
}

func TestCheck_MissingIndex(t *testing.T) {
	_, err := Check(Options{AgentDir: t.TempDir()})

	var gateErr *GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Contains(t, gateErr.Error(), "index")
}

func violationTypes(violations *types.Violations) []string {
	kinds := make([]string, 0, len(violations.Violations))
	for _, v := range violations.Violations {
		kinds = append(kinds, v.Type)
	}
	return kinds
}
