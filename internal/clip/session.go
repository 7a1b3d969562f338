// Package clip owns the panel's clip selection: the video being labeled, the
// polled playback time, the 10-second clip lock and the selected audio tags.
package clip

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clipdesk/clipdesk/internal/audioset"
)

// Payload is the export body sent to the backend.
type Payload struct {
	VideoID   string   `json:"videoId"`
	Start     float64  `json:"start"`
	End       float64  `json:"end"`
	AudioSets []string `json:"audioSets"`
}

// Exporter submits a clip export.
type Exporter interface {
	Export(ctx context.Context, payload Payload) error
}

// Seeker moves the player's playback position.
type Seeker interface {
	SeekTo(ctx context.Context, seconds float64) error
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	VideoID       string   `json:"videoId,omitempty"`
	CurrentTime   float64  `json:"currentTime"`
	State         string   `json:"state"`
	Locked        bool     `json:"locked"`
	Window        *Window  `json:"window,omitempty"`
	ClipStart     string   `json:"clipStart"`
	SelectedTags  []string `json:"selectedTags"`
	ExportEnabled bool     `json:"exportEnabled"`
}

// Session is the root state of one panel. All methods are safe for
// concurrent use; the mutex stands in for the browser's single event loop.
type Session struct {
	seeker Seeker
	logger *slog.Logger

	mu          sync.Mutex
	videoID     string
	currentTime float64
	lock        Lock
	tags        audioset.Selection
}

func NewSession(seeker Seeker, logger *slog.Logger) *Session {
	return &Session{seeker: seeker, logger: logger}
}

// SubmitURL parses url and, on a match, switches to that video and rewinds the
// current time. A non-matching url leaves the session untouched.
func (s *Session) SubmitURL(url string) (string, bool) {
	id, ok := ParseVideoID(url)
	if !ok {
		s.logger.Warn("not a YouTube URL", "url", url)
		return "", false
	}

	s.mu.Lock()
	s.videoID = id
	s.currentTime = 0
	s.mu.Unlock()

	s.logger.Info("video selected", "video_id", id)
	return id, true
}

// ObserveTime records a polled playback time and clamps playback back to the
// window start when a lock is in force and t is outside it.
func (s *Session) ObserveTime(ctx context.Context, t float64) {
	s.mu.Lock()
	s.currentTime = t
	target, seek := s.lock.Check(t)
	s.mu.Unlock()

	if !seek || s.seeker == nil {
		return
	}
	if err := s.seeker.SeekTo(ctx, target); err != nil {
		s.logger.Error("seek failed", "target", target, "error", err)
	}
}

// ToggleLock captures the current time as the clip start and flips the lock.
func (s *Session) ToggleLock() State {
	s.mu.Lock()
	state := s.lock.Toggle(s.currentTime)
	start := s.lock.Start()
	s.mu.Unlock()

	s.logger.Info("clip lock toggled", "state", state.String(), "start", start)
	return state
}

// ToggleTag flips id in the tag selection and reports whether it is now selected.
func (s *Session) ToggleTag(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.Toggle(id)
}

// CanExport is true when a video is selected and the clip is locked.
func (s *Session) CanExport() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canExportLocked()
}

func (s *Session) canExportLocked() bool {
	return s.videoID != "" && s.lock.IsLocked()
}

// Payload builds the export body for the current selection.
func (s *Session) Payload() (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloadLocked()
}

func (s *Session) payloadLocked() (Payload, bool) {
	if !s.canExportLocked() {
		return Payload{}, false
	}
	w, _ := s.lock.Window()
	return Payload{
		VideoID:   s.videoID,
		Start:     w.Start,
		End:       w.End,
		AudioSets: s.tags.IDs(),
	}, true
}

// Export sends the current clip through exporter. It returns false without a
// request when export is not enabled. On success the lock and tags are reset;
// on failure the error is logged and the state is left as it was. Calls are
// not deduplicated.
func (s *Session) Export(ctx context.Context, exporter Exporter) (bool, error) {
	payload, ok := s.Payload()
	if !ok {
		return false, nil
	}

	if err := exporter.Export(ctx, payload); err != nil {
		s.logger.Error("error exporting data", "video_id", payload.VideoID, "error", err)
		return false, err
	}

	s.logger.Info("data exported successfully",
		"video_id", payload.VideoID,
		"start", payload.Start,
		"end", payload.End,
		"audio_sets", payload.AudioSets,
	)
	s.Reset()
	return true, nil
}

// Reset releases the lock and clears the tag selection. The video and the
// current time are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lock.Release()
	s.tags.Clear()
}

func (s *Session) VideoID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoID
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		VideoID:       s.videoID,
		CurrentTime:   s.currentTime,
		State:         s.lock.State().String(),
		Locked:        s.lock.IsLocked(),
		ClipStart:     FormatTimecode(s.lock.Start()),
		SelectedTags:  s.tags.IDs(),
		ExportEnabled: s.canExportLocked(),
	}
	if w, ok := s.lock.Window(); ok {
		snap.Window = &w
	}
	return snap
}
