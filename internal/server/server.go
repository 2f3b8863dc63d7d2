package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/hassbridge/internal/config"
	"github.com/berfenger/hassbridge/internal/core/port"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DiagnosticsFunc builds the diagnostics snapshot of one config entry.
type DiagnosticsFunc func(ctx context.Context, entryId string) (any, error)

type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	entries     port.ConfigEntryStore
	diagnostics map[string]DiagnosticsFunc
	gatherer    prometheus.Gatherer
	logger      *zap.Logger
}

type Option func(*Server)

// WithDiagnostics serves diagnostics for the config entries of a domain.
func WithDiagnostics(domain string, fn DiagnosticsFunc) Option {
	return func(s *Server) {
		s.diagnostics[domain] = fn
	}
}

func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, entries port.ConfigEntryStore, logger *zap.Logger, opts ...Option) *http.Server {
	NewServer := newServer(cfg, rootContext, masterActor, entries, logger, opts...)

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

func newServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, entries port.ConfigEntryStore, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		port:        cfg.Port,
		rootContext: rootContext,
		masterActor: masterActor,
		httpLog:     cfg.HttpLog,
		entries:     entries,
		diagnostics: map[string]DiagnosticsFunc{},
		logger:      logger.With(zap.String("component", "http")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
