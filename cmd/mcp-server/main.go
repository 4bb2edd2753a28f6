// Package main provides the full entry point for the Pharmacy MCP Server.
// This version persists the order history in PostgreSQL and caches through Redis.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pharmacy-mcp-server/internal/config"
	"github.com/pharmacy-mcp-server/internal/mcp"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	log.Printf("Starting Pharmacy MCP Server with transport: %s", cfg.MCP.TransportType)

	// Create MCP server
	mcpServer, err := mcp.NewServer(configManager)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer mcpServer.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	// Start MCP server
	if err := mcpServer.Start(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("Pharmacy MCP Server stopped")
}
