// Package mcp provides the MCP server implementation.
// This file contains the lightweight server that requires no external databases.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/cache"
	litecfg "github.com/pharmacy-mcp-server/internal/config"
	"github.com/pharmacy-mcp-server/internal/domain"
	"github.com/pharmacy-mcp-server/internal/his"
	"github.com/pharmacy-mcp-server/internal/history"
	"github.com/pharmacy-mcp-server/internal/knowledge"
	"github.com/pharmacy-mcp-server/internal/mcp/caching"
	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/mcp/tools"
	"github.com/pharmacy-mcp-server/internal/mcp/transport"
	"github.com/pharmacy-mcp-server/internal/service"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching and SQLite for the order history.
type LiteServer struct {
	config          *litecfg.LiteConfig
	mcpServer       *mcp.Server
	transportMgr    *transport.Manager
	activeTransport transport.Transport
	toolRegistry    *tools.ToolRegistry
	historyStore    history.Store
	hisClient       his.Client
	cache           *cache.MemoryCache
	logger          *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithHistoryStore sets a custom order history store.
func WithHistoryStore(store history.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.historyStore = store
		return nil
	}
}

// WithHISClient sets a custom hospital information system client.
func WithHISClient(client his.Client) LiteServerOption {
	return func(s *LiteServer) error {
		s.hisClient = client
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
// It requires no external databases - uses in-memory cache and SQLite.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logrus.New(),
	}

	// Configure default logger
	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	server.logger.SetLevel(level)

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Initialize memory cache
	memCache, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	server.cache = memCache

	// Initialize order history store if not provided
	if server.historyStore == nil {
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.historyStore = store
	}

	// Initialize HIS client if not provided
	if server.hisClient == nil {
		client, err := createHISClient(cfg, server.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create HIS client: %w", err)
		}
		server.hisClient = client
	}

	// Create MCP configuration for transport
	mcpConfig := &domain.MCPConfig{
		TransportType: cfg.Transport,
		HTTPPort:      cfg.HTTPPort,
	}

	// Create transport manager and message router
	transportMgr := transport.NewManager(server.logger, mcpConfig)
	router := protocol.NewMessageRouter(server.logger)

	// Create domain services
	formulary := knowledge.NewFormulary(server.logger)
	renal := knowledge.NewRenalDosing(server.logger)
	prescriptionService := service.NewPrescriptionService(
		formulary, renal, server.hisClient, server.historyStore, server.logger)
	dosageService := service.NewDosageService(server.logger)
	interactionService := service.NewInteractionService(nil, server.logger)

	// Create tool registry and register tools
	toolRegistry := tools.NewToolRegistry(
		server.logger, router, prescriptionService, dosageService, interactionService)
	if err := toolRegistry.RegisterAllTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	// Cache read-only tool results in memory (no Redis in lite mode)
	toolRegistry.SetResultCache(caching.NewToolResultCache(caching.CacheConfig{
		Enabled:    true,
		DefaultTTL: cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxItems,
	}))

	// Validate all tools
	if err := toolRegistry.ValidateAllTools(); err != nil {
		return nil, fmt.Errorf("tool validation failed: %w", err)
	}

	// Create server info
	serverInfo := &mcp.Implementation{
		Name:    "pharmacy-mcp-server-lite",
		Version: "v0.1.0",
	}

	// Create MCP server
	mcpServer := mcp.NewServer(serverInfo, nil)

	server.mcpServer = mcpServer
	server.transportMgr = transportMgr
	server.toolRegistry = toolRegistry

	// Register MCP tools
	if err := server.registerMCPTools(mcpServer, toolRegistry); err != nil {
		return nil, fmt.Errorf("failed to register MCP tools: %w", err)
	}

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

// registerMCPTools registers tools with the MCP SDK.
func (s *LiteServer) registerMCPTools(mcpServer *mcp.Server, toolRegistry *tools.ToolRegistry) error {
	s.logger.Info("Registering tools with MCP SDK...")

	toolsInfo := toolRegistry.GetRegisteredToolsInfo()

	for _, toolInfo := range toolsInfo {
		toolDef := &mcp.Tool{
			Name:        toolInfo.Name,
			Description: toolInfo.Description,
		}

		handler := NewMCPToolHandler(toolRegistry, toolInfo.Name, s.logger)
		mcpServer.AddTool(toolDef, handler)

		s.logger.WithField("tool_name", toolInfo.Name).Debug("Registered MCP tool")
	}

	s.logger.WithField("tool_count", len(toolsInfo)).Info("Successfully registered all tools")
	return nil
}

// Start starts the lite MCP server.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting Pharmacy MCP Server (Lite)...")

	activeTransport, err := s.transportMgr.StartTransport(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}

	s.activeTransport = activeTransport
	s.logger.WithField("transport_type", activeTransport.GetType()).Info("Transport initialized")

	// Create bridge between transport and MCP SDK
	mcpTransport := NewMCPTransportBridge(activeTransport, s.logger)

	if err := s.mcpServer.Run(ctx, mcpTransport); err != nil {
		s.activeTransport.Close()
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.historyStore != nil {
		if err := s.historyStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
		}
	}
	if s.activeTransport != nil {
		s.activeTransport.Close()
	}
	return nil
}

// GetHistoryStore returns the order history store for external access.
func (s *LiteServer) GetHistoryStore() history.Store {
	return s.historyStore
}

// GetCache returns the memory cache for external access.
func (s *LiteServer) GetCache() *cache.MemoryCache {
	return s.cache
}

// createHISClient builds the HIS client selected by configuration.
// The mock client ships with seeded demo patients.
func createHISClient(cfg *litecfg.LiteConfig, logger *logrus.Logger) (his.Client, error) {
	switch cfg.HISMode {
	case "", "mock":
		return his.NewMockClient(logger), nil
	case "http":
		if cfg.HISBaseURL == "" {
			return nil, fmt.Errorf("HIS base URL is required in http mode")
		}
		return his.NewHTTPClient(domain.HISConfig{
			Mode:      "http",
			BaseURL:   cfg.HISBaseURL,
			APIKey:    cfg.HISAPIKey,
			RateLimit: 20,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown HIS mode: %s", cfg.HISMode)
	}
}
