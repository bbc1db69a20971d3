package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCommand_MissingSlugsFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "batch")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required flag(s) \"slugs\" not set")
}

func TestBatchCommand_PartialFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := getBinaryPath(t)
	tmpDir := t.TempDir()

	// Only one of the two slugs has a dossier.
	dossierDir := filepath.Join(tmpDir, "ingested", "acme-hvac")
	require.NoError(t, os.MkdirAll(dossierDir, 0o755))
	dossier := `{
		"client_profile": {"name": "Acme HVAC", "industry": "HVAC", "region": "", "url": ""},
		"target_audience": {}, "value_proposition": {}, "offer": {}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dossierDir, "dossier.json"), []byte(dossier), 0o644))

	cmd := exec.Command(binaryPath, "batch",
		"--slugs", "acme-hvac,ghost",
		"--skip-crawl",
		"--agents-dir", filepath.Join(tmpDir, "agents"),
		"--ingested-dir", filepath.Join(tmpDir, "ingested"))
	cmd.Env = append(os.Environ(), "GEMINI_API_KEY=")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "[ghost] FAILED")
	assert.Contains(t, string(output), "[acme-hvac] built and verified")
	assert.Contains(t, string(output), "1/2 libraries built")

	_, statErr := os.Stat(filepath.Join(tmpDir, "agents", "acme-hvac", "kb", "index.json"))
	assert.NoError(t, statErr)
}
