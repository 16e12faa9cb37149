// ABOUTME: MCP tool definitions and registration for the contract review server
// ABOUTME: Defines JSON schemas for analyze_contract, get_status, get_report and list_risks
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, svc Service) *Handlers {
	handlers := NewHandlers(svc)

	// 1. analyze_contract - Run a contract through the pipeline
	server.AddTool(mcp.Tool{
		Name:        "analyze_contract",
		Description: "Analyze a contract for risky clauses. Provide a file path (PDF, DOCX, TXT, MD) or raw text. Returns the risk report with severities and redline suggestions.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the contract file",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Contract text, used when no path is given",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Optional display name for text input",
				},
			},
		},
	}, handlers.AnalyzeContract)

	// 2. get_status - Pipeline state of a document
	server.AddTool(mcp.Tool{
		Name:        "get_status",
		Description: "Get the pipeline state of a document (PENDING, SEGMENTED, LABELED, EMBEDDED, SCORED, COMPLETE, FAILED) and the failure reason if any.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document ID returned by analyze_contract",
				},
			},
			Required: []string{"document_id"},
		},
	}, handlers.GetStatus)

	// 3. get_report - Full report of a finished document
	server.AddTool(mcp.Tool{
		Name:        "get_report",
		Description: "Get the full risk report of a previously analyzed document.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document ID returned by analyze_contract",
				},
			},
			Required: []string{"document_id"},
		},
	}, handlers.GetReport)

	// 4. list_risks - Filtered assessments
	server.AddTool(mcp.Tool{
		Name:        "list_risks",
		Description: "List clause risk assessments of a document, highest score first, optionally filtered by minimum severity and category.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document ID returned by analyze_contract",
				},
				"min_severity": map[string]interface{}{
					"type":        "string",
					"description": "Lowest severity to include (default: Low)",
					"enum":        []string{"Low", "Medium", "High", "Critical"},
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Only include this clause category, e.g. 'Termination' or 'Liability Cap'",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results (default: all)",
				},
			},
			Required: []string{"document_id"},
		},
	}, handlers.ListRisks)

	return handlers
}
