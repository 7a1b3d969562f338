package api

import (
	"time"

	"github.com/clipdesk/clipdesk/internal/media"
	"github.com/clipdesk/clipdesk/internal/store"
)

type HealthResponse struct {
	Status   string              `json:"status"`
	Version  string              `json:"version"`
	UptimeS  int64               `json:"uptime_s"`
	Backend  string              `json:"backend"`
	Exports  *int                `json:"exports,omitempty"`
	Tools    *media.Capabilities `json:"tools,omitempty"`
	Poller   bool                `json:"poller_running"`
	LastSeen string              `json:"player_last_report,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Panel requests.

type URLRequest struct {
	URL string `json:"url"`
}

type TimeReport struct {
	Time float64 `json:"time"`
}

type TimeReply struct {
	SeekTo *float64 `json:"seekTo,omitempty"`
}

type TagRequest struct {
	ID string `json:"id"`
}

type TagResponse struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

type TriggerResponse struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

// Backend requests.

type ExportRequest struct {
	VideoID   string   `json:"videoId"`
	Start     *float64 `json:"start"`
	End       *float64 `json:"end"`
	AudioSets []string `json:"audioSets"`
}

type ExportResponse struct {
	ID        int64    `json:"id"`
	VideoID   string   `json:"videoId"`
	Start     float64  `json:"start"`
	End       float64  `json:"end"`
	AudioSets []string `json:"audioSets"`
	CreatedAt string   `json:"createdAt"`
	ClipReady bool     `json:"clipReady"`
}

type ExportsResponse struct {
	Exports []ExportResponse `json:"exports"`
}

type ProcessResponse struct {
	Message    string `json:"message"`
	Videos     int    `json:"videos"`
	Downloaded int    `json:"downloaded"`
	Cut        int    `json:"cut"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

type JSONExportResponse struct {
	Message  string `json:"message"`
	Training int    `json:"training"`
	Eval     int    `json:"eval"`
}

type PurgeResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

func ExportToResponse(e *store.Export, clipReady bool) ExportResponse {
	return ExportResponse{
		ID:        e.ID,
		VideoID:   e.VideoID,
		Start:     e.Start,
		End:       e.End,
		AudioSets: e.AudioSets,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		ClipReady: clipReady,
	}
}

type ExportCreatedResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}
