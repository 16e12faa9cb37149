// ABOUTME: Report archive on top of a key-value store
// ABOUTME: Finished reports are kept as JSON under report:<document id>
package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/harper/redliner/internal/models"
)

// ReportPrefix namespaces archived reports
const ReportPrefix = "report:"

// ErrNotArchived is returned when no report exists for a document
var ErrNotArchived = errors.New("report not archived")

// KV is the store an Archive writes through; *Client implements it
type KV interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	ListKeys(prefix string) ([]string, error)
}

var _ KV = (*Client)(nil)

// Archive keeps finished reports in a KV store
type Archive struct {
	kv KV
}

// NewArchive creates an archive over kv
func NewArchive(kv KV) *Archive {
	return &Archive{kv: kv}
}

// ReportKey generates a key for a DocumentReport
func ReportKey(documentID string) string {
	return ReportPrefix + documentID
}

// Put stores report, replacing any earlier archive of the same document
func (a *Archive) Put(report *models.DocumentReport) error {
	if report.DocumentID == "" {
		return errors.New("report has no document id")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return a.kv.Set(ReportKey(report.DocumentID), data)
}

// Get loads the archived report of documentID
func (a *Archive) Get(documentID string) (*models.DocumentReport, error) {
	data, err := a.kv.Get(ReportKey(documentID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%s: %w", documentID, ErrNotArchived)
	}
	var report models.DocumentReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", documentID, err)
	}
	return &report, nil
}

// List returns archived document ids in sorted order
func (a *Archive) List() ([]string, error) {
	keys, err := a.kv.ListKeys(ReportPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, ReportPrefix))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the archived report of documentID
func (a *Archive) Delete(documentID string) error {
	return a.kv.Delete(ReportKey(documentID))
}
