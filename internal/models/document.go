// ABOUTME: Document model and pipeline state machine states
// ABOUTME: A document is an ordered list of raw text blocks produced by extraction
package models

import (
	"strings"
	"time"
)

// DocumentStatus is the pipeline state of a document
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "PENDING"
	StatusSegmented DocumentStatus = "SEGMENTED"
	StatusLabeled   DocumentStatus = "LABELED"
	StatusEmbedded  DocumentStatus = "EMBEDDED"
	StatusScored    DocumentStatus = "SCORED"
	StatusComplete  DocumentStatus = "COMPLETE"
	StatusFailed    DocumentStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are possible
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Next returns the state that follows s on the success path.
// Terminal states return themselves.
func (s DocumentStatus) Next() DocumentStatus {
	switch s {
	case StatusPending:
		return StatusSegmented
	case StatusSegmented:
		return StatusLabeled
	case StatusLabeled:
		return StatusEmbedded
	case StatusEmbedded:
		return StatusScored
	case StatusScored:
		return StatusComplete
	default:
		return s
	}
}

// Document is one contract moving through the pipeline
type Document struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename,omitempty"`
	SHA256     string         `json:"sha256,omitempty"`
	Blocks     []string       `json:"blocks"`
	IngestedAt time.Time      `json:"ingested_at"`
	Status     DocumentStatus `json:"status"`
}

// Text returns the concatenation of all blocks. Clause spans are offsets into this string.
func (d *Document) Text() string {
	return strings.Join(d.Blocks, "")
}
