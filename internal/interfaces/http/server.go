// Package http provides the HTTP adapter for the application layer.
// It translates requests to application service calls and maps service
// errors to status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/application/service"
	"github.com/ge-entretec/debours/internal/report"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config            ServerConfig
	httpServer        *http.Server
	router            *gin.Engine
	claimService      service.ClaimService
	delegationService service.DelegationService
	userService       service.UserService
	analyzer          port.DocumentAnalyzer
	reportWriter      *report.ExcelWriter
	logger            Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	claimService service.ClaimService,
	delegationService service.DelegationService,
	userService service.UserService,
	analyzer port.DocumentAnalyzer,
	reportWriter *report.ExcelWriter,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:            config,
		router:            gin.New(),
		claimService:      claimService,
		delegationService: delegationService,
		userService:       userService,
		analyzer:          analyzer,
		reportWriter:      reportWriter,
		logger:            logger,
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.claimService, s.delegationService, s.userService, s.analyzer, s.reportWriter, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	// The acting user rides on the X-User-ID header. It identifies,
	// it does not authenticate.
	api := s.router.Group("/api", requireActingUser())
	{
		api.POST("/claims", handlers.SubmitClaim)
		api.GET("/claims", handlers.ListClaims)
		api.GET("/claims/pending", handlers.PendingQueue)
		api.GET("/claims/:id", handlers.GetClaim)
		api.POST("/claims/:id/decision", handlers.DecideClaim)
		api.POST("/claims/decisions", handlers.BulkDecide)
		api.POST("/claims/:id/override", handlers.OverrideClaim)
		api.POST("/claims/:id/receipts", handlers.AttachReceipt)

		api.POST("/documents/analyze", handlers.AnalyzeDocument)

		api.POST("/delegations", handlers.CreateDelegation)
		api.GET("/delegations", handlers.ListDelegations)
		api.POST("/delegations/:id/revoke", handlers.RevokeDelegation)

		api.GET("/users", handlers.ListUsers)
		api.PATCH("/users/:id", handlers.UpdateUser)
		api.DELETE("/users/:id", handlers.RemoveUser)

		api.GET("/reports/claims.xlsx", handlers.ClaimsReport)
	}
}

// Start starts the HTTP server and blocks until the context is
// cancelled or the server fails
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
