package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrawlCommand_MissingURLFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := getBinaryPath(t)
	tmpDir := t.TempDir()

	cmd := exec.Command(binaryPath, "crawl",
		"--out", tmpDir)
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required flag(s) \"url\" not set")
}

func TestCrawlCommand_MissingOutputFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "crawl",
		"--url", "https://acme.example")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required flag(s) \"out\" not set")
}

func TestCrawlCommand_InvalidURL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := getBinaryPath(t)
	tmpDir := t.TempDir()

	cmd := exec.Command(binaryPath, "crawl",
		"--url", "not-a-valid-url",
		"--out", tmpDir)
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "invalid base URL")
}
