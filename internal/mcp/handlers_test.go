// ABOUTME: Tests for MCP tool handlers
// ABOUTME: Drives each handler with a fake service and inspects the JSON result
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/harper/redliner/internal/app"
	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/storage/sqlite"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

type fakeService struct {
	analyzedPath string
	analyzedText string
	analyzeErr   error
	lastQuery    sqlite.RiskQuery
	reports      map[string]*models.DocumentReport
}

func (f *fakeService) AnalyzeFile(_ context.Context, path string) (*app.Analysis, error) {
	f.analyzedPath = path
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &app.Analysis{Report: &models.DocumentReport{DocumentID: "doc-file"}}, nil
}

func (f *fakeService) AnalyzeText(_ context.Context, name, text string) (*app.Analysis, error) {
	f.analyzedText = text
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &app.Analysis{Report: &models.DocumentReport{DocumentID: "doc-text", Filename: name}}, nil
}

func (f *fakeService) Status(id string) (core.Status, bool) {
	if id == "doc-1" {
		return core.Status{State: models.StatusFailed, Reason: "segmentation"}, true
	}
	return core.Status{}, false
}

func (f *fakeService) Report(_ context.Context, id string) (*models.DocumentReport, error) {
	if r, ok := f.reports[id]; ok {
		return r, nil
	}
	return nil, app.ErrNoReport
}

func (f *fakeService) Risks(_ context.Context, q sqlite.RiskQuery) ([]models.RiskAssessment, error) {
	f.lastQuery = q
	return []models.RiskAssessment{{ClauseID: "c0", Category: models.CategoryTermination, Score: 0.9, Severity: models.SeverityCritical}}, nil
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestAnalyzeContract(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		wantError bool
		wantID    string
	}{
		{"path", map[string]interface{}{"path": "/tmp/msa.pdf"}, false, "doc-file"},
		{"text", map[string]interface{}{"text": "Either party may terminate.", "name": "paste"}, false, "doc-text"},
		{"neither", map[string]interface{}{}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&fakeService{})
			res, err := h.AnalyzeContract(context.Background(), call(tt.args))
			if err != nil {
				t.Fatalf("AnalyzeContract() error = %v", err)
			}
			if res.IsError != tt.wantError {
				t.Fatalf("IsError = %v, want %v", res.IsError, tt.wantError)
			}
			if tt.wantError {
				return
			}
			var out app.Analysis
			if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
				t.Fatal(err)
			}
			if out.Report.DocumentID != tt.wantID {
				t.Errorf("document_id = %q, want %q", out.Report.DocumentID, tt.wantID)
			}
		})
	}
}

func TestAnalyzeContract_PipelineFailure(t *testing.T) {
	svc := &fakeService{analyzeErr: &core.PipelineFailedError{DocumentID: "doc-9", Reason: "segmentation", Err: core.ErrEmptyInput}}
	res, err := NewHandlers(svc).AnalyzeContract(context.Background(), call(map[string]interface{}{"text": " "}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, `"state":"FAILED"`) || !strings.Contains(text, `"doc-9"`) {
		t.Errorf("failure result = %s", text)
	}

	svc.analyzeErr = errors.New("unsupported document format")
	res, _ = NewHandlers(svc).AnalyzeContract(context.Background(), call(map[string]interface{}{"path": "x.odt"}))
	if !res.IsError {
		t.Error("other errors should be tool errors")
	}
}

func TestGetStatus(t *testing.T) {
	h := NewHandlers(&fakeService{})

	res, _ := h.GetStatus(context.Background(), call(map[string]interface{}{"document_id": "doc-1"}))
	if res.IsError || !strings.Contains(resultText(t, res), `"reason":"segmentation"`) {
		t.Errorf("GetStatus(doc-1) = %+v", res)
	}

	res, _ = h.GetStatus(context.Background(), call(map[string]interface{}{"document_id": "nope"}))
	if !res.IsError {
		t.Error("unknown document should be a tool error")
	}

	res, _ = h.GetStatus(context.Background(), call(map[string]interface{}{}))
	if !res.IsError {
		t.Error("missing document_id should be a tool error")
	}
}

func TestGetReport(t *testing.T) {
	svc := &fakeService{reports: map[string]*models.DocumentReport{"doc-1": {DocumentID: "doc-1", Filename: "msa.pdf"}}}
	h := NewHandlers(svc)

	res, _ := h.GetReport(context.Background(), call(map[string]interface{}{"document_id": "doc-1"}))
	if res.IsError || !strings.Contains(resultText(t, res), "msa.pdf") {
		t.Errorf("GetReport(doc-1) = %+v", res)
	}
	res, _ = h.GetReport(context.Background(), call(map[string]interface{}{"document_id": "doc-2"}))
	if !res.IsError {
		t.Error("missing report should be a tool error")
	}
}

func TestListRisks(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		wantError bool
		wantQuery sqlite.RiskQuery
	}{
		{
			name:      "defaults",
			args:      map[string]interface{}{"document_id": "doc-1"},
			wantQuery: sqlite.RiskQuery{DocumentID: "doc-1"},
		},
		{
			name:      "filters",
			args:      map[string]interface{}{"document_id": "doc-1", "min_severity": "high", "category": "liability cap", "limit": float64(3)},
			wantQuery: sqlite.RiskQuery{DocumentID: "doc-1", MinSeverity: models.SeverityHigh, Category: models.CategoryLiabilityCap, Limit: 3},
		},
		{name: "bad severity", args: map[string]interface{}{"document_id": "doc-1", "min_severity": "severe"}, wantError: true},
		{name: "bad category", args: map[string]interface{}{"document_id": "doc-1", "category": "weather"}, wantError: true},
		{name: "missing id", args: map[string]interface{}{}, wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			res, err := NewHandlers(svc).ListRisks(context.Background(), call(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if res.IsError != tt.wantError {
				t.Fatalf("IsError = %v, want %v", res.IsError, tt.wantError)
			}
			if tt.wantError {
				return
			}
			if svc.lastQuery != tt.wantQuery {
				t.Errorf("query = %+v, want %+v", svc.lastQuery, tt.wantQuery)
			}
			if !strings.Contains(resultText(t, res), `"count":1`) {
				t.Errorf("result = %s", resultText(t, res))
			}
		})
	}
}

func TestRegisterTools(t *testing.T) {
	server := mcpserver.NewMCPServer("redliner", "test")
	if h := RegisterTools(server, &fakeService{}); h == nil {
		t.Fatal("RegisterTools() returned nil handlers")
	}
}
