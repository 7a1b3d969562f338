package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clipdesk/clipdesk/internal/mostreplayed"
	"github.com/clipdesk/clipdesk/internal/playback"
	"github.com/clipdesk/clipdesk/internal/processor"
	"github.com/clipdesk/clipdesk/internal/store"
)

func createExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Start == nil || req.End == nil {
			WriteError(w, http.StatusBadRequest, "start and end are required", "BAD_REQUEST")
			return
		}

		audioSets := make([]string, 0, len(req.AudioSets))
		for _, id := range req.AudioSets {
			if strings.Contains(id, ",") {
				WriteError(w, http.StatusBadRequest, "audio set ids must not contain commas", "BAD_REQUEST")
				return
			}
			audioSets = append(audioSets, id)
		}

		e := &store.Export{
			VideoID:   strings.TrimSpace(req.VideoID),
			Start:     *req.Start,
			End:       *req.End,
			AudioSets: audioSets,
		}
		if err := e.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		if err := cfg.Repository.CreateExport(r.Context(), e); err != nil {
			cfg.Logger.Error("failed to store export", "video_id", e.VideoID, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to store export", "INTERNAL_ERROR")
			return
		}

		cfg.Logger.Info("export stored", "id", e.ID, "video_id", e.VideoID, "labels", e.Labels())
		WriteJSON(w, http.StatusOK, ExportCreatedResponse{Message: "Data exported successfully", ID: e.ID})
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exports, err := cfg.Repository.ListExports(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := ExportsResponse{Exports: make([]ExportResponse, len(exports))}
		for i, e := range exports {
			resp.Exports[i] = ExportToResponse(e, clipReady(cfg.ClipsDir, e))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func clipReady(dir string, e *store.Export) bool {
	if dir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, e.ClipFile()))
	return err == nil
}

func purgeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := cfg.Repository.PurgeExports(r.Context())
		if err != nil {
			cfg.Logger.Error("purge failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to purge exports", "INTERNAL_ERROR")
			return
		}

		cfg.Logger.Info("exports purged", "deleted", n)
		WriteJSON(w, http.StatusOK, PurgeResponse{Message: "Table purged successfully", Deleted: n})
	}
}

func processHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, ok := runProcessor(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, ProcessResponse{
			Message:    "Table processed successfully",
			Videos:     result.Videos,
			Downloaded: result.Downloaded,
			Cut:        result.Cut,
			Skipped:    result.Skipped,
			Failed:     result.Failed,
		})
	}
}

func jsonExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Dataset == nil {
			WriteError(w, http.StatusServiceUnavailable, "dataset export not configured", "UNAVAILABLE")
			return
		}
		if _, ok := runProcessor(cfg, w, r); !ok {
			return
		}

		summary, err := cfg.Dataset.Build(r.Context())
		if err != nil {
			cfg.Logger.Error("dataset export failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write dataset", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, JSONExportResponse{
			Message:  "JSON export completed successfully",
			Training: summary.Training,
			Eval:     summary.Eval,
		})
	}
}

// runProcessor runs the processor and writes the error response on failure.
func runProcessor(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (processor.Result, bool) {
	if cfg.Processor == nil {
		WriteError(w, http.StatusServiceUnavailable, "processing not configured", "UNAVAILABLE")
		return processor.Result{}, false
	}

	result, err := cfg.Processor.Run(r.Context())
	if err != nil {
		if errors.Is(err, processor.ErrBusy) {
			WriteError(w, http.StatusConflict, err.Error(), "BUSY")
			return result, false
		}
		cfg.Logger.Error("processing failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "processing failed", "INTERNAL_ERROR")
		return result, false
	}
	return result, true
}

func mostReplayedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := r.URL.Query().Get("videoId")
		if videoID == "" {
			WriteError(w, http.StatusBadRequest, "videoId is required", "BAD_REQUEST")
			return
		}
		if cfg.MostReplayed == nil {
			WriteJSON(w, http.StatusOK, []store.Marker{})
			return
		}

		markers, err := cfg.MostReplayed.Markers(r.Context(), videoID)
		if err != nil {
			var upErr *mostreplayed.UpstreamError
			if errors.As(err, &upErr) {
				cfg.Logger.Warn("most-replayed upstream error", "video_id", videoID, "status", upErr.StatusCode)
				WriteError(w, http.StatusBadGateway, "most-replayed upstream failed", "UPSTREAM_ERROR")
				return
			}
			cfg.Logger.Error("most-replayed lookup failed", "video_id", videoID, "error", err)
			WriteError(w, http.StatusInternalServerError, "most-replayed lookup failed", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, markers)
	}
}

func clipAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			WriteError(w, http.StatusBadRequest, "invalid export id", "BAD_REQUEST")
			return
		}
		if cfg.Playback == nil {
			WriteError(w, http.StatusServiceUnavailable, "playback not configured", "UNAVAILABLE")
			return
		}

		e, err := cfg.Repository.GetExport(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "export not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		if err := cfg.Playback.ServeClip(w, r, e.ClipFile()); err != nil {
			if errors.Is(err, playback.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "clip not processed yet", "CLIP_NOT_READY")
				return
			}
			cfg.Logger.Error("playback error", "error", err, "export_id", id)
		}
	}
}
