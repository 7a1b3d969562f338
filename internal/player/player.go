// Package player is the video-time source: a poller that reads the embedded
// player's position on a fixed interval, and the bridge that stands in for the
// browser-side YouTube embed.
package player

import (
	"context"
	"sync"
	"time"
)

// Player is an embedded video player.
type Player interface {
	// CurrentTime returns the playback position. ok is false until the
	// player is ready.
	CurrentTime(ctx context.Context) (seconds float64, ok bool, err error)
	SeekTo(ctx context.Context, seconds float64) error
}

// BridgePlayer mirrors the browser embed. The page reports its position with
// Report; seek commands are queued and handed back on the next report.
type BridgePlayer struct {
	mu         sync.Mutex
	ready      bool
	seconds    float64
	reportedAt time.Time
	pendingSet bool
	pending    float64
}

func NewBridgePlayer() *BridgePlayer {
	return &BridgePlayer{}
}

// Report records the position seen by the page and drains the pending seek.
func (b *BridgePlayer) Report(seconds float64) (seekTo float64, seek bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ready = true
	b.seconds = seconds
	b.reportedAt = time.Now()

	if !b.pendingSet {
		return 0, false
	}
	seekTo = b.pending
	b.pendingSet = false
	return seekTo, true
}

// Detach marks the page as gone; polls stop producing times until the next report.
func (b *BridgePlayer) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = false
	b.pendingSet = false
}

func (b *BridgePlayer) CurrentTime(ctx context.Context) (float64, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seconds, b.ready, nil
}

// SeekTo queues a seek. A later seek replaces an undelivered one.
func (b *BridgePlayer) SeekTo(ctx context.Context, seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = seconds
	b.pendingSet = true
	return nil
}

// LastReport is when the page last reported, zero if never.
func (b *BridgePlayer) LastReport() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reportedAt
}
