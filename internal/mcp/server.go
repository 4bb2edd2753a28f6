package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/config"
	"github.com/pharmacy-mcp-server/internal/database"
	"github.com/pharmacy-mcp-server/internal/domain"
	"github.com/pharmacy-mcp-server/internal/his"
	"github.com/pharmacy-mcp-server/internal/history"
	"github.com/pharmacy-mcp-server/internal/knowledge"
	"github.com/pharmacy-mcp-server/internal/mcp/caching"
	"github.com/pharmacy-mcp-server/internal/mcp/protocol"
	"github.com/pharmacy-mcp-server/internal/mcp/tools"
	"github.com/pharmacy-mcp-server/internal/mcp/transport"
	"github.com/pharmacy-mcp-server/internal/service"
	"github.com/pharmacy-mcp-server/pkg/external"
)

// migrationsDir is where the SQL migration files ship relative to the
// working directory.
const migrationsDir = "migrations"

// Server is the full MCP server. It persists the order history in
// PostgreSQL, caches tool results through Redis, and enriches interaction
// checks with regulatory label data from the external drug APIs.
type Server struct {
	config          *config.Manager
	mcpServer       *mcp.Server
	transportMgr    *transport.Manager
	activeTransport transport.Transport
	toolRegistry    *tools.ToolRegistry
	db              *database.DB
	historyStore    history.Store
	redisClient     *redis.Client
	drugData        *external.ResilientDrugDataClient
	logger          *logrus.Logger
}

// NewServer creates the full MCP server from the loaded configuration.
func NewServer(configManager *config.Manager) (*Server, error) {
	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	server := &Server{
		config: configManager,
		logger: logger,
	}

	ctx := context.Background()

	// Connect to PostgreSQL and bring the schema up to date.
	db, err := database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	server.db = db

	migrator, err := database.NewMigrator(configManager.GetDatabaseURL(), migrationsDir, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare migrations: %w", err)
	}
	if err := migrator.Up(); err != nil {
		migrator.Close()
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	migrator.Close()

	store, err := history.NewPostgresStoreFromURL(configManager.GetDatabaseURL())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history store: %w", err)
	}
	server.historyStore = store

	// HIS client per configuration.
	hisClient, err := buildHISClient(cfg.HIS, logger)
	if err != nil {
		server.closePartial()
		return nil, err
	}

	// Redis backs both the external data cache and the tool result cache.
	// A reachable Redis is not required to serve decisions; we degrade to
	// memory-only caching when the connection fails.
	var labelCache *external.CacheClient
	if cacheClient, err := external.NewCacheClient(cfg.Cache); err != nil {
		logger.WithError(err).Warn("Redis unavailable, external data caching degraded to memory only")
	} else {
		labelCache = cacheClient
		if opts, err := redis.ParseURL(cfg.Cache.RedisURL); err == nil {
			server.redisClient = redis.NewClient(opts)
		}
	}

	server.drugData = external.NewResilientDrugDataClient(cfg.External, labelCache, logger)

	// Domain services.
	formulary := knowledge.NewFormulary(logger)
	renal := knowledge.NewRenalDosing(logger)
	prescriptionService := service.NewPrescriptionService(
		formulary, renal, hisClient, server.historyStore, logger)
	dosageService := service.NewDosageService(logger)
	interactionService := service.NewInteractionService(server.drugData, logger)

	// MCP transport and tool registry.
	transportMgr := transport.NewManager(logger, &cfg.MCP)
	router := protocol.NewMessageRouter(logger)

	toolRegistry := tools.NewToolRegistry(
		logger, router, prescriptionService, dosageService, interactionService)
	if err := toolRegistry.RegisterAllTools(); err != nil {
		server.closePartial()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	toolRegistry.SetResultCache(caching.NewToolResultCache(caching.CacheConfig{
		Enabled:     true,
		RedisClient: server.redisClient,
		DefaultTTL:  cfg.Cache.DefaultTTL,
		MaxEntries:  1000,
	}))

	if err := toolRegistry.ValidateAllTools(); err != nil {
		server.closePartial()
		return nil, fmt.Errorf("tool validation failed: %w", err)
	}

	serverInfo := &mcp.Implementation{
		Name:    "pharmacy-mcp-server",
		Version: "v0.1.0",
	}
	mcpServer := mcp.NewServer(serverInfo, nil)

	server.mcpServer = mcpServer
	server.transportMgr = transportMgr
	server.toolRegistry = toolRegistry

	if err := server.registerMCPTools(mcpServer, toolRegistry); err != nil {
		server.closePartial()
		return nil, fmt.Errorf("failed to register MCP tools: %w", err)
	}

	logger.Info("Server initialized successfully")
	return server, nil
}

// registerMCPTools registers tools with the MCP SDK.
func (s *Server) registerMCPTools(mcpServer *mcp.Server, toolRegistry *tools.ToolRegistry) error {
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

// Start starts the MCP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting Pharmacy MCP Server...")

	activeTransport, err := s.transportMgr.StartTransport(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}

	s.activeTransport = activeTransport
	s.logger.WithField("transport_type", activeTransport.GetType()).Info("Transport initialized")

	mcpTransport := NewMCPTransportBridge(activeTransport, s.logger)

	if err := s.mcpServer.Run(ctx, mcpTransport); err != nil {
		s.activeTransport.Close()
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.activeTransport != nil {
		s.activeTransport.Close()
	}
	s.closePartial()
	return nil
}

func (s *Server) closePartial() {
	if s.historyStore != nil {
		if err := s.historyStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close Redis client")
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}

// GetHistoryStore returns the order history store for external access.
func (s *Server) GetHistoryStore() history.Store {
	return s.historyStore
}

// DrugData returns the external drug data client.
func (s *Server) DrugData() *external.ResilientDrugDataClient {
	return s.drugData
}

func buildHISClient(cfg domain.HISConfig, logger *logrus.Logger) (his.Client, error) {
	switch cfg.Mode {
	case "", "mock":
		return his.NewMockClient(logger), nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("HIS base URL is required in http mode")
		}
		return his.NewHTTPClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown HIS mode: %s", cfg.Mode)
	}
}

// newLogger builds a logrus logger from the logging configuration.
func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}
