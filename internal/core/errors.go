// ABOUTME: Error taxonomy for the clause risk pipeline
// ABOUTME: Only segmentation failure and cancellation are fatal to a document
package core

import (
	"errors"
	"fmt"

	"github.com/harper/redliner/internal/models"
)

// ReasonCancelled is the failure reason recorded when a run's context ends
const ReasonCancelled = "cancelled"

// ErrUnreadableInput marks input text that cannot be decoded
var ErrUnreadableInput = errors.New("input text is not valid UTF-8")

// ErrEmptyInput marks a document with no non-whitespace text
var ErrEmptyInput = errors.New("input text is empty")

// SegmentationError is fatal: the document has no text to split
type SegmentationError struct {
	DocumentID string
	Err        error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segmentation failed for document %s: %v", e.DocumentID, e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }

// EmbeddingUnavailableError means the embedding collaborator could not produce a vector
type EmbeddingUnavailableError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("embedding unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *EmbeddingUnavailableError) Unwrap() error { return e.Err }

// PrecedentIndexError means nearest-neighbor search failed
type PrecedentIndexError struct {
	Attempts int
	Err      error
}

func (e *PrecedentIndexError) Error() string {
	return fmt.Sprintf("precedent search failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *PrecedentIndexError) Unwrap() error { return e.Err }

// DraftUnavailableError means the drafting collaborator could not produce text
type DraftUnavailableError struct {
	Attempts int
	Err      error
}

func (e *DraftUnavailableError) Error() string {
	return fmt.Sprintf("draft unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DraftUnavailableError) Unwrap() error { return e.Err }

// PipelineFailedError is returned from RunPipeline when a document cannot complete
type PipelineFailedError struct {
	DocumentID string
	Stage      models.DocumentStatus // state the document was in when it failed
	Reason     string
	Err        error
}

func (e *PipelineFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline failed for document %s at %s (%s): %v", e.DocumentID, e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("pipeline failed for document %s at %s (%s)", e.DocumentID, e.Stage, e.Reason)
}

func (e *PipelineFailedError) Unwrap() error { return e.Err }

// IsCancelled reports whether a pipeline failure was caused by cancellation
func IsCancelled(err error) bool {
	var pf *PipelineFailedError
	return errors.As(err, &pf) && pf.Reason == ReasonCancelled
}
