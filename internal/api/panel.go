package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clipdesk/clipdesk/internal/audioset"
	"github.com/clipdesk/clipdesk/internal/backend"
	"github.com/clipdesk/clipdesk/internal/store"
)

//go:embed static/index.html
var staticFS embed.FS

type panelPage struct {
	Tags       []audioset.AudioSet
	Actions    []backend.Action
	IntervalMs int64
	Version    string
}

func mustPanelTemplate() *template.Template {
	return template.Must(template.ParseFS(staticFS, "static/index.html"))
}

func panelPageHandler(cfg ServerConfig, page *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := page.Execute(w, panelPage{
			Tags:       audioset.All(),
			Actions:    backend.Actions,
			IntervalMs: pollInterval(cfg).Milliseconds(),
			Version:    cfg.Version,
		})
		if err != nil {
			cfg.Logger.Error("render panel page", "error", err)
		}
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func submitURLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req URLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if _, ok := cfg.Session.SubmitURL(req.URL); !ok {
			WriteError(w, http.StatusBadRequest, "not a YouTube URL", "INVALID_URL")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func playerTimeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Bridge == nil {
			WriteError(w, http.StatusServiceUnavailable, "no player bridge", "UNAVAILABLE")
			return
		}

		var req TimeReport
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Time < 0 {
			WriteError(w, http.StatusBadRequest, "time must not be negative", "BAD_REQUEST")
			return
		}

		var reply TimeReply
		if target, seek := cfg.Bridge.Report(req.Time); seek {
			reply.SeekTo = &target
		}
		WriteJSON(w, http.StatusOK, reply)
	}
}

func toggleLockHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.ToggleLock()
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func toggleTagHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if !audioset.Known(req.ID) {
			WriteError(w, http.StatusNotFound, "unknown audio set", "NOT_FOUND")
			return
		}

		selected := cfg.Session.ToggleTag(req.ID)
		WriteJSON(w, http.StatusOK, TagResponse{ID: req.ID, Selected: selected})
	}
}

func panelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Session.CanExport() {
			WriteError(w, http.StatusConflict, "export requires a video and a locked clip", "EXPORT_DISABLED")
			return
		}

		// The export runs to completion even if the page goes away.
		ctx := context.WithoutCancel(r.Context())
		ok, err := cfg.Session.Export(ctx, cfg.Backend)
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "BACKEND_ERROR")
			return
		}
		if !ok {
			WriteError(w, http.StatusConflict, "export requires a video and a locked clip", "EXPORT_DISABLED")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func triggerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action, ok := backend.ParseAction(chi.URLParam(r, "action"))
		if !ok {
			WriteError(w, http.StatusNotFound, "unknown backend action", "NOT_FOUND")
			return
		}

		ctx := context.WithoutCancel(r.Context())
		runBackground(cfg, func() {
			if err := cfg.Backend.Trigger(ctx, action); err != nil {
				attrs := []any{"action", string(action), "error", err}
				var reqErr *backend.RequestError
				if errors.As(err, &reqErr) {
					attrs = append(attrs, "status", reqErr.StatusCode)
				}
				cfg.Logger.Error("backend trigger failed", attrs...)
				return
			}
			cfg.Logger.Info("backend trigger completed", "action", string(action))
		})

		WriteJSON(w, http.StatusAccepted, TriggerResponse{Action: string(action), Status: "accepted"})
	}
}

func panelMostReplayedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := cfg.Session.VideoID()
		if videoID == "" {
			WriteJSON(w, http.StatusOK, []store.Marker{})
			return
		}

		markers, err := cfg.Backend.MostReplayed(r.Context(), videoID)
		if err != nil {
			cfg.Logger.Warn("most-replayed lookup failed", "video_id", videoID, "error", err)
			WriteError(w, http.StatusBadGateway, "most-replayed lookup failed", "BACKEND_ERROR")
			return
		}
		if markers == nil {
			markers = []store.Marker{}
		}
		WriteJSON(w, http.StatusOK, markers)
	}
}

func runBackground(cfg ServerConfig, task func()) {
	if cfg.Background != nil {
		cfg.Background(task)
		return
	}
	go task()
}
