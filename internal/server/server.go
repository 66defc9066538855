// Package server exposes the chat-completion HTTP API over gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"docsearch/internal/chat"
	"docsearch/internal/config"
)

// Server hosts the REST API under the configured route prefix.
type Server struct {
	cfg          config.ServerConfig
	orchestrator *chat.Orchestrator
	logger       *logrus.Logger
	engine       *gin.Engine
	http         *http.Server
}

// New builds the server and registers all routes.
func New(cfg config.ServerConfig, orchestrator *chat.Orchestrator, fullConfig *config.Config, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	s := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		logger:       logger,
		engine:       engine,
	}
	s.registerRoutes(fullConfig)
	return s
}

func (s *Server) registerRoutes(fullConfig *config.Config) {
	api := s.engine.Group(s.cfg.RESTAPIPrefix)
	api.GET("/", s.health)
	api.GET("/models", s.models)
	api.GET("/config", s.config(fullConfig))
	api.POST("/chat/completions", s.chatCompletion)

	if s.cfg.StaticDir != "" {
		s.engine.Static("/static", s.cfg.StaticDir)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": true})
}

func (s *Server) models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": chat.Models})
}

func (s *Server) config(fullConfig *config.Config) gin.HandlerFunc {
	redacted := redactConfig(fullConfig)
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"object": "config", "data": redacted})
	}
}

// redactConfig masks credentials so the config route never exposes them.
func redactConfig(cfg *config.Config) *config.Config {
	out := *cfg
	for _, secret := range []*string{
		&out.Postgres.Password,
		&out.Redis.Password,
		&out.Embedding.APIKey,
		&out.LLM.APIKey,
		&out.LLM.GeminiKey,
	} {
		if *secret != "" {
			*secret = "***"
		}
	}
	return &out
}

func (s *Server) chatCompletion(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	resp, err := s.orchestrator.Completion(c.Request.Context(), &req)
	if err != nil {
		var httpErr *chat.HTTPError
		if errors.As(err, &httpErr) {
			c.JSON(httpErr.Status, gin.H{"detail": httpErr.Detail})
			return
		}
		s.logger.WithError(err).Error("chat completion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Error during agentic query: %v", err)})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// corsMiddleware allows browser frontends on other origins to call the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the HTTP server until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	s.logger.WithField("addr", addr).Info("http server listening")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
