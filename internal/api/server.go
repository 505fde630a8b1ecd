// Package api exposes candles and sweep backtests over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gridlab/quant/internal/backtest"
	"github.com/gridlab/quant/internal/data"
	"github.com/gridlab/quant/pkg/config"
	"github.com/gridlab/quant/pkg/logger"
)

// Server is the HTTP API server.
type Server struct {
	httpServer   *http.Server
	router       *mux.Router
	logger       *logger.Logger
	repo         *data.CandleRepository
	orchestrator *backtest.Orchestrator
}

// NewServer creates a Server and registers its routes.
func NewServer(cfg *config.Config, log *logger.Logger, repo *data.CandleRepository, orchestrator *backtest.Orchestrator) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		logger:       log,
		repo:         repo,
		orchestrator: orchestrator,
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // sweeps can be slow
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/candles", s.handleCandles).Methods(http.MethodGet)
	v1.HandleFunc("/backtest", s.handleBacktest).Methods(http.MethodPost)
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("API server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("Request handled")
	})
}
