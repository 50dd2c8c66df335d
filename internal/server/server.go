// Package server exposes the assistant over a local HTTP API. The
// server binds to loopback and requires a bearer token on everything
// except health and metrics.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dataassist/internal/analyzer"
	"dataassist/internal/chat"
	"dataassist/internal/store"
	"dataassist/internal/types"
)

// Server holds the handler dependencies.
type Server struct {
	chat        *chat.Service
	tasks       types.TaskRepository
	analyzer    *analyzer.Service
	suggestions *store.SuggestionStore
	attention   *store.AttentionStore
	logger      *zap.Logger
}

// New builds a Server. tasks may be nil when no task backend is
// configured; the action endpoints then return 503.
func New(
	chatSvc *chat.Service,
	tasks types.TaskRepository,
	analyzerSvc *analyzer.Service,
	suggestions *store.SuggestionStore,
	attention *store.AttentionStore,
	logger *zap.Logger,
) *Server {
	return &Server{
		chat:        chatSvc,
		tasks:       tasks,
		analyzer:    analyzerSvc,
		suggestions: suggestions,
		attention:   attention,
		logger:      logger,
	}
}

// Router builds the gin engine with logging, metrics, and auth wired.
func (s *Server) Router(authToken string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", s.bearerAuth(authToken))
	api.POST("/chat", s.handleChat)
	api.POST("/actions/confirm", s.handleConfirmAction)
	api.POST("/analyze/email", s.handleAnalyze)
	api.GET("/suggestions", s.handleListSuggestions)
	api.POST("/suggestions/:id/status", s.handleSuggestionStatus)
	api.GET("/attention", s.handleListAttention)
	api.POST("/attention/:id/status", s.handleAttentionStatus)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		recordHTTPRequest(c.Request.Method, path, strconv.Itoa(status), latency)
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "server auth token not configured"})
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid bearer token"})
			return
		}
		c.Next()
	}
}
