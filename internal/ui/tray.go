// Package ui is the system tray front for the panel: clip lock, the backend
// triggers and quit.
package ui

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/clipdesk/clipdesk/internal/backend"
	"github.com/clipdesk/clipdesk/internal/clip"
)

//go:embed icon.png
var iconBytes []byte

const statusRefresh = time.Second

// Panel is the session state the tray reads and toggles.
type Panel interface {
	ToggleLock() clip.State
	Snapshot() clip.Snapshot
}

type Tray struct {
	panel    Panel
	trigger  func(ctx context.Context, action backend.Action) error
	logger   *slog.Logger
	ctx      context.Context
	panelURL string

	statusItem *systray.MenuItem
	clipItem   *systray.MenuItem
	lockItem   *systray.MenuItem

	mu   sync.Mutex
	stop chan struct{}

	onQuit func()
}

type TrayConfig struct {
	Context  context.Context
	Panel    Panel
	Trigger  func(ctx context.Context, action backend.Action) error
	PanelURL string
	Logger   *slog.Logger
	OnQuit   func()
}

func NewTray(cfg TrayConfig) *Tray {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Tray{
		panel:    cfg.Panel,
		trigger:  cfg.Trigger,
		logger:   cfg.Logger,
		ctx:      ctx,
		panelURL: cfg.PanelURL,
		stop:     make(chan struct{}),
		onQuit:   cfg.OnQuit,
	}
}

// Run blocks on the tray event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("clipdesk")
	systray.SetTooltip("clipdesk: " + t.panelURL)

	snap := t.panel.Snapshot()
	t.statusItem = systray.AddMenuItem(statusTitle(snap), "Current video")
	t.statusItem.Disable()
	t.clipItem = systray.AddMenuItem(clipTitle(snap), "Locked clip")
	t.clipItem.Disable()

	systray.AddSeparator()

	t.lockItem = systray.AddMenuItem(lockTitle(snap.Locked), "Toggle the 10 second clip lock")

	systray.AddSeparator()

	actionItems := make(map[backend.Action]*systray.MenuItem, len(backend.Actions))
	for _, action := range backend.Actions {
		actionItems[action] = systray.AddMenuItem(actionTitle(action), "Run "+string(action)+" on the backend")
	}

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit clipdesk")

	go t.refreshLoop()

	go func() {
		for {
			select {
			case <-t.lockItem.ClickedCh:
				t.toggleLock()
			case <-actionItems[backend.ActionPurge].ClickedCh:
				t.runAction(backend.ActionPurge)
			case <-actionItems[backend.ActionProcess].ClickedCh:
				t.runAction(backend.ActionProcess)
			case <-actionItems[backend.ActionJSONExport].ClickedCh:
				t.runAction(backend.ActionJSONExport)
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	close(t.stop)
	t.logger.Info("system tray exiting")
}

func (t *Tray) refreshLoop() {
	ticker := time.NewTicker(statusRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.refresh()
		}
	}
}

func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.panel.Snapshot()
	t.statusItem.SetTitle(statusTitle(snap))
	t.clipItem.SetTitle(clipTitle(snap))
	t.lockItem.SetTitle(lockTitle(snap.Locked))
}

func (t *Tray) toggleLock() {
	state := t.panel.ToggleLock()
	t.logger.Info("clip lock toggled from tray", "state", state.String())
	t.refresh()
}

func (t *Tray) runAction(action backend.Action) {
	if t.trigger == nil {
		return
	}
	go func() {
		if err := t.trigger(t.ctx, action); err != nil {
			t.logger.Error("backend trigger failed", "action", string(action), "error", err)
			return
		}
		t.logger.Info("backend trigger completed", "action", string(action))
	}()
}

func (t *Tray) Quit() {
	systray.Quit()
}

func statusTitle(snap clip.Snapshot) string {
	if snap.VideoID == "" {
		return "Video: none"
	}
	return "Video: " + snap.VideoID
}

func clipTitle(snap clip.Snapshot) string {
	if !snap.Locked {
		return "Clip: not locked"
	}
	return fmt.Sprintf("Clip: %s (+%.0fs)", snap.ClipStart, clip.ClipDuration)
}

func lockTitle(locked bool) string {
	if locked {
		return "Unlock Clip"
	}
	return "Lock Clip"
}

func actionTitle(action backend.Action) string {
	switch action {
	case backend.ActionPurge:
		return "Purge Exports"
	case backend.ActionProcess:
		return "Process Clips"
	case backend.ActionJSONExport:
		return "Export JSON"
	default:
		return string(action)
	}
}
