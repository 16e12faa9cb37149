// ABOUTME: Observer hooks the pipeline calls for metrics
// ABOUTME: NopObserver is used when no metrics sink is configured
package core

import (
	"time"

	"github.com/harper/redliner/internal/models"
)

// Observer receives pipeline events. Implementations must be safe for concurrent use.
type Observer interface {
	DocumentFinished(state models.DocumentStatus, elapsed time.Duration)
	ClauseFinished(outcome models.ClauseOutcome, unclassified bool)
	Redline(source models.RedlineSource)
	Retry(collaborator string)
}

// NopObserver discards all events
type NopObserver struct{}

func (NopObserver) DocumentFinished(models.DocumentStatus, time.Duration) {}
func (NopObserver) ClauseFinished(models.ClauseOutcome, bool) {}
func (NopObserver) Redline(models.RedlineSource) {}
func (NopObserver) Retry(string) {}
