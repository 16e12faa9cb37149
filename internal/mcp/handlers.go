// ABOUTME: MCP tool handler implementations for the contract review server
// ABOUTME: Validates tool arguments and returns reports and risks as JSON text
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harper/redliner/internal/app"
	"github.com/harper/redliner/internal/core"
	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/storage/sqlite"
	"github.com/mark3labs/mcp-go/mcp"
)

// Service is what the tools need from the application; *app.App implements it
type Service interface {
	AnalyzeFile(ctx context.Context, path string) (*app.Analysis, error)
	AnalyzeText(ctx context.Context, name, text string) (*app.Analysis, error)
	Status(documentID string) (core.Status, bool)
	Report(ctx context.Context, documentID string) (*models.DocumentReport, error)
	Risks(ctx context.Context, q sqlite.RiskQuery) ([]models.RiskAssessment, error)
}

var _ Service = (*app.App)(nil)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	svc Service
}

// NewHandlers creates handlers over svc
func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// AnalyzeContract handles the analyze_contract tool
func (h *Handlers) AnalyzeContract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	text := request.GetString("text", "")
	if path == "" && text == "" {
		return mcp.NewToolResultError("either path or text is required"), nil
	}

	var (
		res *app.Analysis
		err error
	)
	if path != "" {
		res, err = h.svc.AnalyzeFile(ctx, path)
	} else {
		res, err = h.svc.AnalyzeText(ctx, request.GetString("name", "pasted contract"), text)
	}
	if err != nil {
		var pf *core.PipelineFailedError
		if errors.As(err, &pf) {
			return jsonResult(map[string]interface{}{
				"document_id": pf.DocumentID,
				"state":       models.StatusFailed,
				"reason":      pf.Reason,
				"error":       err.Error(),
			})
		}
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return jsonResult(res)
}

// GetStatus handles the get_status tool
func (h *Handlers) GetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id argument is required and must be a string"), nil
	}

	st, ok := h.svc.Status(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown document: %s", id)), nil
	}
	return jsonResult(map[string]interface{}{
		"document_id": id,
		"state":       st.State,
		"reason":      st.Reason,
	})
}

// GetReport handles the get_report tool
func (h *Handlers) GetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id argument is required and must be a string"), nil
	}

	report, err := h.svc.Report(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get report: %v", err)), nil
	}
	return jsonResult(report)
}

// ListRisks handles the list_risks tool
func (h *Handlers) ListRisks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id argument is required and must be a string"), nil
	}

	q := sqlite.RiskQuery{DocumentID: id, Limit: request.GetInt("limit", 0)}
	if s := request.GetString("min_severity", ""); s != "" {
		sev, err := models.ParseSeverity(s)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		q.MinSeverity = sev
	}
	if c := request.GetString("category", ""); c != "" {
		cat, ok := models.ParseCategory(c)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", c)), nil
		}
		q.Category = cat
	}

	risks, err := h.svc.Risks(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list risks: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"document_id": id,
		"count":       len(risks),
		"risks":       risks,
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
