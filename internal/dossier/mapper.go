package dossier

import (
	"fmt"
	"sort"
	"strings"
)

// FieldRef names the dossier fields a topic consults: a top-level section
// and optionally a subset of its nested keys. An empty Fields slice means
// the whole section.
type FieldRef struct {
	Section string
	Fields  []string
}

// Topic is one entry of the fixed topic table. Stem is the canonical file
// stem; the on-disk name is Stem + ".md".
type Topic struct {
	Stem     string
	Title    string
	Tags     []string
	Fields   []FieldRef
	Fallback string
	Optional bool
}

// Filename returns the KB file name for the topic.
func (t Topic) Filename() string {
	return t.Stem + ".md"
}

// standardTopics is the authoritative twelve-topic table, in the fixed
// enumeration order used by index.json.
var standardTopics = []Topic{
	{
		Stem:  "00_overview",
		Title: "Company Overview",
		Tags:  []string{"company_overview", "offerings", "tone_voice"},
		Fields: []FieldRef{
			{Section: "client_profile"},
			{Section: "value_proposition", Fields: []string{"core_benefit"}},
		},
		Fallback: "No company overview was provided in the intake dossier.",
	},
	{
		Stem:     "05_ICP_and_personas",
		Title:    "ICP and Personas",
		Tags:     []string{"icp", "discovery"},
		Fields:   []FieldRef{{Section: "target_audience"}},
		Fallback: "The ideal customer profile has not been established; confirm on the discovery call.",
	},
	{
		Stem:  "10_services_and_offerings",
		Title: "Services and Offerings",
		Tags:  []string{"offerings"},
		Fields: []FieldRef{
			{Section: "value_proposition"},
			{Section: "offer"},
		},
		Fallback: "No service or offering details were available at build time.",
	},
	{
		Stem:     "15_pricing_and_packages",
		Title:    "Pricing and Packages",
		Tags:     []string{"pricing"},
		Fields:   []FieldRef{{Section: "offer", Fields: []string{"details"}}},
		Fallback: "Pricing has not been confirmed. Treat all pricing questions as Unknown until the discovery call.",
	},
	{
		Stem:     "20_FAQ",
		Title:    "FAQ",
		Tags:     []string{"faq"},
		Fallback: "No FAQ content was available at build time.",
	},
	{
		Stem:     "25_objections_and_rebuttals",
		Title:    "Objections and Rebuttals",
		Tags:     []string{"objections", "discovery"},
		Fields:   []FieldRef{{Section: "target_audience", Fields: []string{"pain_points"}}},
		Fallback: "No objection-handling material was provided in the intake dossier.",
	},
	{
		Stem:     "30_competitors_and_positioning",
		Title:    "Competitors and Positioning",
		Tags:     []string{"competitors"},
		Fields:   []FieldRef{{Section: "value_proposition", Fields: []string{"core_benefit"}}},
		Fallback: "Competitive positioning is unknown; confirm on the discovery call.",
	},
	{
		Stem:     "35_integrations_and_stack",
		Title:    "Integrations and Stack",
		Tags:     []string{"integrations"},
		Fields:   []FieldRef{{Section: "value_proposition", Fields: []string{"software_integration"}}},
		Fallback: "No software integrations were identified in the intake dossier.",
	},
	{
		Stem:     "40_process_and_workflows",
		Title:    "Process and Workflows",
		Tags:     []string{"workflow", "support_process"},
		Fields:   []FieldRef{{Section: "offer"}},
		Fallback: "No process or workflow details were available at build time.",
	},
	{
		Stem:     "45_compliance_and_security",
		Title:    "Compliance and Security",
		Tags:     []string{"compliance", "policies"},
		Fallback: "Compliance and security posture is unknown; confirm on the discovery call.",
	},
	{
		Stem:     "50_case_studies_and_proof",
		Title:    "Case Studies and Proof",
		Tags:     []string{"proof"},
		Fields:   []FieldRef{{Section: "value_proposition", Fields: []string{"metric_proof"}}},
		Fallback: "No case studies or proof points were provided in the intake dossier.",
	},
	{
		Stem:  "55_contact_next_steps",
		Title: "Contact and Next Steps",
		Tags:  []string{"next_steps", "locations"},
		Fields: []FieldRef{
			{Section: "client_profile", Fields: []string{"url", "region"}},
			{Section: "offer"},
		},
		Fallback: "Contact details are unknown; confirm on the discovery call.",
	},
}

// optionalTopics are emitted only when the dossier yields content for them.
// They never count toward required coverage. The 60_ prefix is reserved for
// raw-crawl files.
var optionalTopics = []Topic{
	{
		Stem:     "65_locations_and_hours",
		Title:    "Locations and Hours",
		Tags:     []string{"locations"},
		Fields:   []FieldRef{{Section: "client_profile", Fields: []string{"region"}}},
		Optional: true,
	},
	{
		Stem:     "70_policies_terms_privacy",
		Title:    "Policies, Terms, and Privacy",
		Tags:     []string{"policies"},
		Fields:   []FieldRef{{Section: "policies"}},
		Optional: true,
	},
	{
		Stem:     "75_terminology_glossary",
		Title:    "Terminology Glossary",
		Tags:     []string{"terminology"},
		Fields:   []FieldRef{{Section: "terminology"}},
		Optional: true,
	},
	{
		Stem:     "80_safety_field_notes",
		Title:    "Safety Field Notes",
		Tags:     []string{"safety"},
		Fields:   []FieldRef{{Section: "safety"}},
		Optional: true,
	},
}

// Topics returns the twelve standard topics in fixed enumeration order.
func Topics() []Topic {
	out := make([]Topic, len(standardTopics))
	copy(out, standardTopics)
	return out
}

// OptionalTopics returns the optional topic table.
func OptionalTopics() []Topic {
	out := make([]Topic, len(optionalTopics))
	copy(out, optionalTopics)
	return out
}

// RequiredStems returns the canonical stems of the standard topics.
func RequiredStems() []string {
	stems := make([]string, len(standardTopics))
	for i, t := range standardTopics {
		stems[i] = t.Stem
	}
	return stems
}

// Extract walks the topic's field references over the dossier and formats
// each match as a Markdown section. Lists become bullet lists, objects
// become bold-key/value lines, scalars are emitted verbatim. TBD sentinels
// are skipped. Returns an empty string when nothing matched.
func Extract(d *Dossier, topic Topic) string {
	raw := d.Raw()
	sections := make([]string, 0, len(topic.Fields))

	for _, ref := range topic.Fields {
		value, ok := raw[ref.Section]
		if !ok {
			continue
		}

		var body string
		if len(ref.Fields) == 0 {
			body = formatValue(value)
		} else {
			obj, isMap := value.(map[string]any)
			if !isMap {
				continue
			}
			parts := make([]string, 0, len(ref.Fields))
			for _, field := range ref.Fields {
				nested, exists := obj[field]
				if !exists {
					continue
				}
				if formatted := formatNamed(field, nested); formatted != "" {
					parts = append(parts, formatted)
				}
			}
			body = strings.Join(parts, "\n")
		}

		if strings.TrimSpace(body) == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("## From %s\n\n%s", humanize(ref.Section), body))
	}

	return strings.Join(sections, "\n\n")
}

// formatValue renders a dossier value as Markdown.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		if isUnknown(v) {
			return ""
		}
		return v
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s := formatValue(item); s != "" {
				items = append(items, "- "+s)
			}
		}
		return strings.Join(items, "\n")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		lines := make([]string, 0, len(v))
		for _, key := range keys {
			if formatted := formatNamed(key, v[key]); formatted != "" {
				lines = append(lines, formatted)
			}
		}
		return strings.Join(lines, "\n")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatNamed renders a key/value pair as a bold-key line, or a labeled
// bullet list for list values.
func formatNamed(key string, value any) string {
	body := formatValue(value)
	if body == "" {
		return ""
	}
	if strings.Contains(body, "\n") {
		return fmt.Sprintf("**%s:**\n%s", humanize(key), body)
	}
	return fmt.Sprintf("**%s:** %s", humanize(key), body)
}

func isUnknown(s string) bool {
	return strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), UnknownSentinel)
}

func humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
