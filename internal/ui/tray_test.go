package ui

import (
	"testing"

	"github.com/clipdesk/clipdesk/internal/backend"
	"github.com/clipdesk/clipdesk/internal/clip"
)

func TestStatusTitles(t *testing.T) {
	if got := statusTitle(clip.Snapshot{}); got != "Video: none" {
		t.Errorf("statusTitle(empty) = %q", got)
	}
	if got := statusTitle(clip.Snapshot{VideoID: "ABC123"}); got != "Video: ABC123" {
		t.Errorf("statusTitle = %q", got)
	}

	if got := clipTitle(clip.Snapshot{}); got != "Clip: not locked" {
		t.Errorf("clipTitle(unlocked) = %q", got)
	}
	locked := clip.Snapshot{Locked: true, ClipStart: "00:00:12:300"}
	if got := clipTitle(locked); got != "Clip: 00:00:12:300 (+10s)" {
		t.Errorf("clipTitle(locked) = %q", got)
	}

	if lockTitle(true) != "Unlock Clip" || lockTitle(false) != "Lock Clip" {
		t.Error("lockTitle mismatch")
	}
}

func TestActionTitles(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range backend.Actions {
		title := actionTitle(a)
		if title == string(a) || seen[title] {
			t.Errorf("action %q has no distinct title (%q)", a, title)
		}
		seen[title] = true
	}
}

func TestIconEmbedded(t *testing.T) {
	if len(iconBytes) < 8 || string(iconBytes[1:4]) != "PNG" {
		t.Fatal("tray icon is not an embedded PNG")
	}
}
