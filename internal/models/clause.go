// ABOUTME: Clause model, span offsets, and the closed clause category set
// ABOUTME: Clauses are created by segmentation and labeling, then scored
package models

import "strings"

// Category is a semantic clause label from a closed set
type Category string

const (
	CategoryTermination     Category = "Termination"
	CategoryUptime          Category = "Uptime"
	CategoryDataUse         Category = "Data Use"
	CategoryRenewal         Category = "Renewal"
	CategoryFees            Category = "Fees"
	CategoryConfidentiality Category = "Confidentiality"
	CategoryIndemnity       Category = "Indemnity"
	CategoryLiabilityCap    Category = "Liability Cap"
	CategoryGoverningLaw    Category = "Governing Law"
	CategoryIP              Category = "Intellectual Property"
	CategoryMaintenance     Category = "Maintenance"
	CategorySubletting      Category = "Subletting"
	CategoryRentEscalation  Category = "Rent Escalation"
	CategoryUnclassified    Category = "Unclassified"
)

// Categories lists every known category except Unclassified, in canonical order
var Categories = []Category{
	CategoryTermination,
	CategoryUptime,
	CategoryDataUse,
	CategoryRenewal,
	CategoryFees,
	CategoryConfidentiality,
	CategoryIndemnity,
	CategoryLiabilityCap,
	CategoryGoverningLaw,
	CategoryIP,
	CategoryMaintenance,
	CategorySubletting,
	CategoryRentEscalation,
}

// aliases map labels other labelers emit onto the closed set
var categoryAliases = map[string]Category{
	"sla":             CategoryUptime,
	"sla uptime":      CategoryUptime,
	"availability":    CategoryUptime,
	"dpa":             CategoryDataUse,
	"data protection": CategoryDataUse,
	"privacy":         CategoryDataUse,
	"auto-renewal":    CategoryRenewal,
	"auto renewal":    CategoryRenewal,
	"payment":         CategoryFees,
	"ip":              CategoryIP,
	"nda":             CategoryConfidentiality,
	"other":           CategoryUnclassified,
}

// ParseCategory maps a free-form label onto the closed set.
// Unknown labels return CategoryUnclassified and false.
func ParseCategory(label string) (Category, bool) {
	norm := strings.ToLower(strings.TrimSpace(label))
	if norm == "" {
		return CategoryUnclassified, false
	}
	for _, c := range Categories {
		if strings.ToLower(string(c)) == norm {
			return c, true
		}
	}
	if strings.ToLower(string(CategoryUnclassified)) == norm {
		return CategoryUnclassified, true
	}
	if c, ok := categoryAliases[norm]; ok {
		return c, c != CategoryUnclassified
	}
	return CategoryUnclassified, false
}

// SpanHint records which boundary rule opened a span
type SpanHint string

const (
	HintSection   SpanHint = "section"
	HintHeading   SpanHint = "heading"
	HintParagraph SpanHint = "paragraph"
	HintWindow    SpanHint = "window"
)

// Span is a half-open [Start, End) byte range of document text
type Span struct {
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Text    string   `json:"text"`
	Hint    SpanHint `json:"hint"`
	Heading string   `json:"heading,omitempty"`
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Clause is one labeled, scoreable unit of a document
type Clause struct {
	ID          string   `json:"id"`
	DocumentID  string   `json:"document_id"`
	Position    int      `json:"position"`
	Span        Span     `json:"span"`
	Category    Category `json:"category"`
	Confidence  float64  `json:"confidence"`
	LabelSource string   `json:"label_source,omitempty"`
}

// Text returns the raw clause text
func (c *Clause) Text() string {
	return c.Span.Text
}

// IsClassified reports whether the clause received a known category
func (c *Clause) IsClassified() bool {
	return c.Category != CategoryUnclassified && c.Category != ""
}
