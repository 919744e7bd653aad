// Package server exposes the operator actions over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/filings-tracker/internal/pipeline"
	"github.com/joseph-ayodele/filings-tracker/internal/session"
	"github.com/joseph-ayodele/filings-tracker/internal/upload"
)

// Orchestrator runs queries and stores for a session.
type Orchestrator interface {
	RunQuery(ctx context.Context, sess *session.Session) (pipeline.Outcome, error)
	Store(ctx context.Context, sess *session.Session) error
}

// Exporter renders the download workbook.
type Exporter interface {
	WorkbookXLSX(ctx context.Context) ([]byte, error)
}

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
	Health         HealthFunc
}

type Server struct {
	engine       *gin.Engine
	sessions     *session.Registry
	orchestrator Orchestrator
	uploader     upload.Uploader
	exporter     Exporter
	health       HealthFunc
	logger       *slog.Logger
}

func New(sessions *session.Registry, orch Orchestrator, up upload.Uploader, exp Exporter, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(RequestLogger(logger))
	engine.Use(MaxBodySize(opts.MaxUploadBytes))
	engine.Use(CORS(opts.AllowedOrigins))

	s := &Server{
		engine:       engine,
		sessions:     sessions,
		orchestrator: orch,
		uploader:     up,
		exporter:     exp,
		health:       opts.Health,
		logger:       logger,
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.engine }
