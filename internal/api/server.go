package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/config"
	"github.com/pharmacy-mcp-server/internal/history"
	"github.com/pharmacy-mcp-server/internal/middleware"
	"github.com/pharmacy-mcp-server/internal/service"
)

// Server provides the REST API for pharmacy order operations. It exposes
// the same decision logic as the MCP tools over HTTP so that hospital
// systems without an MCP client can still consume the service.
type Server struct {
	logger        *logrus.Logger
	configManager *config.Manager
	prescription  *service.PrescriptionService
	dosage        *service.DosageService
	interaction   *service.InteractionService
	historyStore  history.Store
	events        *OrderEventHub
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new API server instance. historyStore may be nil when
// no audit trail is configured; the history endpoints then return 503.
func NewServer(
	configManager *config.Manager,
	prescription *service.PrescriptionService,
	dosage *service.DosageService,
	interaction *service.InteractionService,
	historyStore history.Store,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(middleware.AuditLogger(logger))

	s := &Server{
		logger:        logger,
		configManager: configManager,
		prescription:  prescription,
		dosage:        dosage,
		interaction:   interaction,
		historyStore:  historyStore,
		events:        NewOrderEventHub(logger),
		router:        router,
	}

	s.setupRoutes()

	return s
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	serverConfig := s.configManager.GetServerConfig()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:      s.router,
		ReadTimeout:  serverConfig.ReadTimeout,
		WriteTimeout: serverConfig.WriteTimeout,
		IdleTimeout:  serverConfig.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr": s.server.Addr,
		}).Info("Starting API server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.events.CloseAll()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}

	return nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Events exposes the order event hub so other components can publish.
func (s *Server) Events() *OrderEventHub {
	return s.events
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	serverConfig := s.configManager.GetServerConfig()

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.APIKeyAuth(serverConfig.APIKey))
	{
		orders := v1.Group("/orders")
		{
			// The event stream stays outside the request timeout; WebSocket
			// connections are long-lived.
			orders.GET("/stream", s.events.HandleStream)

			timed := orders.Group("", middleware.RequestTimeout(30*time.Second))
			timed.POST("/validate", s.handleValidateOrder)
			timed.POST("", s.handleSubmitOrder)
			timed.POST("/:id/discontinue", s.handleDiscontinueOrder)
			timed.GET("/:id/history", s.handleOrderHistory)
		}

		formulary := v1.Group("/formulary")
		{
			formulary.GET("", s.handleSearchFormulary)
			formulary.GET("/high-alert", s.handleListHighAlert)
			formulary.GET("/renal", s.handleListRenalDrugs)
			formulary.GET("/:code", s.handleGetDrug)
			formulary.GET("/:code/renal-adjustment", s.handleRenalAdjustment)
		}

		calculations := v1.Group("/calculations")
		{
			calculations.POST("/crcl", s.handleCalculateCrCl)
			calculations.POST("/weight-based-dose", s.handleWeightBasedDose)
			calculations.POST("/bsa-dose", s.handleBSADose)
			calculations.POST("/infusion-rate", s.handleInfusionRate)
		}

		interactions := v1.Group("/interactions")
		{
			interactions.POST("/check", s.handleCheckInteractions)
			interactions.GET("/food/:drug", s.handleCheckFoodInteractions)
		}

		patients := v1.Group("/patients")
		{
			patients.GET("/:id", s.handleGetPatient)
			patients.GET("/:id/orders", s.handlePatientOrders)
			patients.GET("/:id/history", s.handlePatientHistory)
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "0.1.0",
		"service":   "pharmacy-mcp-server",
	})
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware attaches a request ID to each request, honoring a
// caller-supplied X-Request-ID when present.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
