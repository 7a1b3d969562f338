package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipdesk/clipdesk/internal/backend"
	"github.com/clipdesk/clipdesk/internal/clip"
	"github.com/clipdesk/clipdesk/internal/dataset"
	"github.com/clipdesk/clipdesk/internal/media"
	"github.com/clipdesk/clipdesk/internal/player"
	"github.com/clipdesk/clipdesk/internal/playback"
	"github.com/clipdesk/clipdesk/internal/processor"
	"github.com/clipdesk/clipdesk/internal/store"
)

// PanelBackend is what the panel needs from the backend API.
type PanelBackend interface {
	clip.Exporter
	Trigger(ctx context.Context, action backend.Action) error
	MostReplayed(ctx context.Context, videoID string) ([]store.Marker, error)
}

type ClipProcessor interface {
	Run(ctx context.Context) (processor.Result, error)
}

type DatasetBuilder interface {
	Build(ctx context.Context) (dataset.Summary, error)
}

type MarkerLookup interface {
	Markers(ctx context.Context, videoID string) ([]store.Marker, error)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port      int
	Logger    *slog.Logger
	StartTime time.Time
	Version   string

	// Panel. Routes under / and /ui are mounted when Session is set.
	Session  *clip.Session
	Bridge   *player.BridgePlayer
	Poller   *player.Poller
	Backend  PanelBackend
	Interval time.Duration

	// Background runs fire-and-forget panel triggers. Nil starts a goroutine.
	Background func(task func())

	// Embedded backend. Routes under /api are mounted when Repository is set.
	Repository   store.Repository
	Processor    ClipProcessor
	Dataset      DatasetBuilder
	MostReplayed MarkerLookup
	Playback     *playback.Server
	Doctor       *media.CachedDoctor
	ClipsDir     string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
