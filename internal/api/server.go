// Package api exposes the router over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"query-router/internal/common/logger"
	"query-router/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string, history []models.HistoryTurn) *models.AIResponse
	GetSuggestions(category string) []string
	Categories() []string
}

// SessionStore is optional; without one, callers must send history inline.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) ([]models.HistoryTurn, error)
	Append(ctx context.Context, sessionID string, turns ...models.HistoryTurn) error
}

// Check is one readiness check, such as a database ping.
type Check func(ctx context.Context) error

type Options struct {
	ServiceName     string
	Port            int
	ShutdownTimeout time.Duration
	Checks          map[string]Check
}

type Server struct {
	opts      Options
	processor QueryProcessor
	sessions  SessionStore
	logger    logger.Logger
	engine    *gin.Engine
}

func NewServer(opts Options, processor QueryProcessor, sessions SessionStore, log logger.Logger) *Server {
	s := &Server{
		opts:      opts,
		processor: processor,
		sessions:  sessions,
		logger:    log.With(map[string]interface{}{"component": "api"}),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(s.opts.ServiceName))
	router.Use(s.requestLogger())

	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/query", s.query)
	api.GET("/suggestions", s.suggestions)
	api.GET("/categories", s.categories)
	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{"port": s.opts.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down http server", nil)
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug("request served", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(started).Milliseconds(),
		})
	}
}
