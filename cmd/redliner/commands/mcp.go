// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents analyze contracts over stdio, with optional /metrics endpoint
package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/redliner/internal/mcp"
	"github.com/harper/redliner/internal/metrics"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var metricsAddr string

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs redliner as an MCP (Model Context Protocol) server on stdio so LLM
agents like Claude can call analyze_contract, get_status, get_report
and list_risks.

With --metrics-addr, pipeline metrics are served in Prometheus format.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  redliner mcp

  # Expose metrics on :9464
  redliner mcp --metrics-addr :9464

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "redliner": {
  #       "command": "redliner",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger := log.Default().WithPrefix("mcp")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("error closing storage", "err", err)
		}
	}()

	server := mcpserver.NewMCPServer("redliner", versionInfo.Version)
	mcp.RegisterTools(server, a)

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(a.Registry()), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", metricsAddr)
	}

	logger.Info("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}

func metricsMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	return mux
}
