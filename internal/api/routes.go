package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipdesk/clipdesk/internal/player"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	if cfg.Session != nil {
		page := mustPanelTemplate()
		r.Get("/", panelPageHandler(cfg, page))

		r.Route("/ui", func(r chi.Router) {
			r.Use(LoopbackOnly(cfg.Logger))

			r.Get("/state", stateHandler(cfg))
			r.Post("/url", submitURLHandler(cfg))
			r.Post("/player/time", playerTimeHandler(cfg))
			r.Post("/lock", toggleLockHandler(cfg))
			r.Post("/tags", toggleTagHandler(cfg))
			r.Post("/export", panelExportHandler(cfg))
			r.Post("/backend/{action}", triggerHandler(cfg))
			r.Get("/most-replayed", panelMostReplayedHandler(cfg))
		})
	}

	if cfg.Repository != nil {
		r.Route("/api", func(r chi.Router) {
			r.Use(LoopbackOnly(cfg.Logger))

			r.Post("/export", createExportHandler(cfg))
			r.Get("/exports", listExportsHandler(cfg))
			r.Post("/purge", purgeHandler(cfg))
			r.Post("/process", processHandler(cfg))
			r.Post("/jsonexport", jsonExportHandler(cfg))
			r.Get("/most-replayed", mostReplayedHandler(cfg))
			r.Get("/clips/{id}/audio", clipAudioHandler(cfg))
		})
	}

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
			Backend: "remote",
		}

		if cfg.Repository != nil {
			resp.Backend = "embedded"
			if n, err := cfg.Repository.CountExports(r.Context()); err == nil {
				resp.Exports = &n
			}
		}
		if cfg.Doctor != nil {
			resp.Tools = cfg.Doctor.Get(r.Context())
		}
		if cfg.Poller != nil {
			resp.Poller = cfg.Poller.IsRunning()
		}
		if cfg.Bridge != nil {
			if seen := cfg.Bridge.LastReport(); !seen.IsZero() {
				resp.LastSeen = seen.Format(time.RFC3339)
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func pollInterval(cfg ServerConfig) time.Duration {
	if cfg.Interval > 0 {
		return cfg.Interval
	}
	return player.DefaultPollInterval
}
