// Package dossier loads the validated prospect dossier and defines the
// fixed mapping from dossier fields to the standard KB topics. The mapping
// is the authoritative source of topic coverage; no other component decides
// topic identity.
package dossier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/kb-factory/internal/schemas"
)

// UnknownSentinel is the literal the intake step writes for fields it could
// not establish. Sentinel values are never copied into KB files.
const UnknownSentinel = "TBD"

// ClientProfile identifies the prospect.
type ClientProfile struct {
	Name     string `json:"name" validate:"required"`
	Industry string `json:"industry" validate:"required"`
	Region   string `json:"region"`
	URL      string `json:"url"`
}

// TargetAudience describes who the agent will talk to.
type TargetAudience struct {
	Role       string   `json:"role"`
	Sector     string   `json:"sector"`
	PainPoints []string `json:"pain_points"`
}

// ValueProposition captures why the prospect's customers buy.
type ValueProposition struct {
	CoreBenefit         string `json:"core_benefit"`
	MetricProof         string `json:"metric_proof"`
	SoftwareIntegration string `json:"software_integration"`
}

// Offer is what the sales motion proposes.
type Offer struct {
	Type    string `json:"type"`
	Details string `json:"details"`
}

// Dossier is the validated intake document for one prospect. The raw field
// tree is retained for the field mapper; the core never mutates either.
type Dossier struct {
	ClientProfile    ClientProfile    `json:"client_profile" validate:"required"`
	TargetAudience   TargetAudience   `json:"target_audience"`
	ValueProposition ValueProposition `json:"value_proposition"`
	Offer            Offer            `json:"offer"`

	raw map[string]any
}

// Raw returns the dossier's untyped field tree.
func (d *Dossier) Raw() map[string]any {
	return d.raw
}

// TargetURL returns the prospect site URL, or an empty string.
func (d *Dossier) TargetURL() string {
	return d.ClientProfile.URL
}

// LoadError represents a dossier that could not be read or parsed.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dossier error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("dossier error (%s): %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Load reads, schema-validates, and decodes a dossier file. Any failure is
// fatal to the build before any write occurs.
func Load(path string) (*Dossier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "dossier not found or unreadable", Cause: err}
	}
	return Parse(path, data)
}

// Parse validates and decodes dossier JSON content. The path is used only
// for error reporting.
func Parse(path string, data []byte) (*Dossier, error) {
	if err := schemas.ValidateDossier(string(data)); err != nil {
		return nil, &LoadError{Path: path, Message: "schema validation failed", Cause: err}
	}

	var d Dossier
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &LoadError{Path: path, Message: "malformed JSON", Cause: err}
	}
	if err := json.Unmarshal(data, &d.raw); err != nil {
		return nil, &LoadError{Path: path, Message: "malformed JSON", Cause: err}
	}

	if err := validator.New().Struct(&d); err != nil {
		return nil, &LoadError{Path: path, Message: "structural validation failed", Cause: err}
	}

	return &d, nil
}
