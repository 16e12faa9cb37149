// ABOUTME: Main entry point for the redliner MCP server with stdio transport
// ABOUTME: Loads config, opens storage and model clients, and registers the contract tools
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/harper/redliner/internal/app"
	"github.com/harper/redliner/internal/config"
	"github.com/harper/redliner/internal/mcp"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func main() {
	// MCP speaks on stdout, so logs go to stderr
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "redliner-server"})

	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	if cfg.Provider != config.ProviderOllama && cfg.OpenAIKey == "" {
		logger.Warn("OPENAI_API_KEY not set; embeddings and redline drafting will not work")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", "err", err)
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("redliner", "0.1.0")
	mcp.RegisterTools(server, a)

	logger.Info("MCP server starting on stdio")
	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Error("server error", "err", err)
		a.Close()
		os.Exit(1)
	}
}
