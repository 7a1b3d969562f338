package clip

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSeeker struct {
	mu    sync.Mutex
	seeks []float64
}

func (f *fakeSeeker) SeekTo(ctx context.Context, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

type fakeExporter struct {
	err      error
	payloads []Payload
}

func (f *fakeExporter) Export(ctx context.Context, payload Payload) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"with extra params", "https://www.youtube.com/watch?v=ABC123&t=5", "ABC123", true},
		{"end of string", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"fragment", "https://www.youtube.com/watch?v=XYZ#t=30", "XYZ", true},
		{"v not first", "https://www.youtube.com/watch?list=PL1&v=LIST42", "LIST42", true},
		{"no v param", "https://www.youtube.com/channel/UC123", "", false},
		{"short link", "https://youtu.be/ABC123", "", false},
		{"empty value", "https://www.youtube.com/watch?v=&t=5", "", false},
		{"empty input", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseVideoID(tt.url)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ParseVideoID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLock_WindowAndClamp(t *testing.T) {
	var l Lock
	if l.State() != Unselected {
		t.Fatalf("zero lock state = %v, want unselected", l.State())
	}
	if _, seek := l.Check(99); seek {
		t.Fatal("unlocked check must never seek")
	}

	if got := l.Toggle(12.3); got != Locked {
		t.Fatalf("Toggle() = %v, want locked", got)
	}

	w, ok := l.Window()
	if !ok {
		t.Fatal("expected window while locked")
	}
	if !approx(w.Start, 12.3) || !approx(w.End, 22.3) {
		t.Fatalf("window = %+v, want [12.3, 22.3]", w)
	}

	target, seek := l.Check(25.0)
	if !seek || !approx(target, 12.3) {
		t.Fatalf("Check(25.0) = (%v, %v), want (12.3, true)", target, seek)
	}

	if _, seek := l.Check(5.0); !seek {
		t.Fatal("Check before start should seek")
	}
	for _, inside := range []float64{12.3, 17, 22.3} {
		if _, seek := l.Check(inside); seek {
			t.Errorf("Check(%v) seeked inside the window", inside)
		}
	}

	if got := l.Toggle(30); got != Unselected {
		t.Fatalf("second Toggle() = %v, want unselected", got)
	}
	if _, seek := l.Check(100); seek {
		t.Fatal("released lock must not seek")
	}
}

func TestFormatTimecode(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00:000"},
		{12.5, "00:00:12:500"},
		{3725.25, "01:02:05:250"},
		{-3, "00:00:00:000"},
	}

	for _, tt := range tests {
		if got := FormatTimecode(tt.in); got != tt.want {
			t.Errorf("FormatTimecode(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSession_SubmitURL(t *testing.T) {
	s := NewSession(nil, testLogger())

	if id, ok := s.SubmitURL("https://www.youtube.com/watch?v=ABC123&t=5"); !ok || id != "ABC123" {
		t.Fatalf("SubmitURL = (%q, %v)", id, ok)
	}
	s.ObserveTime(context.Background(), 42)

	if _, ok := s.SubmitURL("https://example.com/not-youtube"); ok {
		t.Fatal("expected no match")
	}
	snap := s.Snapshot()
	if snap.VideoID != "ABC123" {
		t.Fatalf("video id = %q, want previous id kept", snap.VideoID)
	}
	if snap.CurrentTime != 42 {
		t.Fatalf("current time = %v, want unchanged on failed parse", snap.CurrentTime)
	}

	s.SubmitURL("https://www.youtube.com/watch?v=NEXT")
	if got := s.Snapshot().CurrentTime; got != 0 {
		t.Fatalf("current time = %v, want reset to 0 on new video", got)
	}
}

func TestSession_ObserveTimeSeeksOutsideWindow(t *testing.T) {
	seeker := &fakeSeeker{}
	s := NewSession(seeker, testLogger())
	ctx := context.Background()

	s.ObserveTime(ctx, 12.3)
	s.ToggleLock()

	s.ObserveTime(ctx, 15)
	s.ObserveTime(ctx, 25.0)

	if len(seeker.seeks) != 1 || !approx(seeker.seeks[0], 12.3) {
		t.Fatalf("seeks = %v, want [12.3]", seeker.seeks)
	}
}

func TestSession_ExportDisabled(t *testing.T) {
	exporter := &fakeExporter{}
	s := NewSession(nil, testLogger())

	if ok, err := s.Export(context.Background(), exporter); ok || err != nil {
		t.Fatalf("Export without video = (%v, %v)", ok, err)
	}

	s.SubmitURL("https://www.youtube.com/watch?v=ABC123")
	if s.CanExport() {
		t.Fatal("export must be disabled while unlocked")
	}
	if ok, _ := s.Export(context.Background(), exporter); ok {
		t.Fatal("export must not run while unlocked")
	}

	fresh := NewSession(nil, testLogger())
	fresh.ToggleLock()
	if fresh.CanExport() {
		t.Fatal("export must be disabled without a video")
	}

	if len(exporter.payloads) != 0 {
		t.Fatalf("exporter called %d times, want 0", len(exporter.payloads))
	}
}

func TestSession_ExportSuccessResets(t *testing.T) {
	exporter := &fakeExporter{}
	s := NewSession(nil, testLogger())
	ctx := context.Background()

	s.SubmitURL("https://www.youtube.com/watch?v=ABC123")
	s.ObserveTime(ctx, 12.3)
	s.ToggleLock()
	s.ToggleTag("/m/09r45")
	s.ToggleTag("/m/02k7j")

	ok, err := s.Export(ctx, exporter)
	if !ok || err != nil {
		t.Fatalf("Export = (%v, %v), want success", ok, err)
	}

	if len(exporter.payloads) != 1 {
		t.Fatalf("exporter called %d times, want 1", len(exporter.payloads))
	}
	p := exporter.payloads[0]
	if p.VideoID != "ABC123" || !approx(p.Start, 12.3) || !approx(p.End, 22.3) {
		t.Fatalf("payload = %+v", p)
	}
	if len(p.AudioSets) != 2 || p.AudioSets[0] != "/m/02k7j" || p.AudioSets[1] != "/m/09r45" {
		t.Fatalf("audio sets = %v", p.AudioSets)
	}

	snap := s.Snapshot()
	if snap.Locked || len(snap.SelectedTags) != 0 {
		t.Fatalf("state after export = %+v, want reset", snap)
	}
	if snap.VideoID != "ABC123" || !approx(snap.CurrentTime, 12.3) {
		t.Fatalf("video and time should survive reset: %+v", snap)
	}
}

func TestSession_ExportFailureKeepsState(t *testing.T) {
	exporter := &fakeExporter{err: errors.New("connection refused")}
	s := NewSession(nil, testLogger())
	ctx := context.Background()

	s.SubmitURL("https://www.youtube.com/watch?v=ABC123")
	s.ToggleLock()
	s.ToggleTag("/m/01d2x")

	ok, err := s.Export(ctx, exporter)
	if ok || err == nil {
		t.Fatalf("Export = (%v, %v), want failure", ok, err)
	}

	snap := s.Snapshot()
	if !snap.Locked || len(snap.SelectedTags) != 1 {
		t.Fatalf("state after failed export = %+v, want unchanged", snap)
	}
	if !snap.ExportEnabled {
		t.Fatal("export must stay enabled after a failure")
	}

	// Immediately retryable, nothing in flight blocks it.
	if _, err := s.Export(ctx, exporter); err == nil {
		t.Fatal("expected second failure")
	}
	if len(exporter.payloads) != 2 {
		t.Fatalf("exporter called %d times, want 2", len(exporter.payloads))
	}
}

func TestSession_SnapshotWindow(t *testing.T) {
	s := NewSession(nil, testLogger())
	s.ObserveTime(context.Background(), 3725.25)

	if s.Snapshot().Window != nil {
		t.Fatal("no window expected while unlocked")
	}

	s.ToggleLock()
	snap := s.Snapshot()
	if snap.Window == nil || !approx(snap.Window.End, 3735.25) {
		t.Fatalf("window = %+v", snap.Window)
	}
	if snap.ClipStart != "01:02:05:250" {
		t.Fatalf("clip start = %q", snap.ClipStart)
	}
	if snap.State != "locked" {
		t.Fatalf("state = %q", snap.State)
	}
}
