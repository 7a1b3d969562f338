package player

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultPollInterval matches the embed's time update cadence.
const DefaultPollInterval = 100 * time.Millisecond

// Poller republishes the player's position every interval until its context
// is cancelled. The interval does not depend on lock state.
type Poller struct {
	player   Player
	interval time.Duration
	onTime   func(ctx context.Context, seconds float64)
	logger   *slog.Logger
	running  atomic.Bool
}

func NewPoller(p Player, onTime func(ctx context.Context, seconds float64), logger *slog.Logger) *Poller {
	return &Poller{
		player:   p,
		interval: DefaultPollInterval,
		onTime:   onTime,
		logger:   logger,
	}
}

// SetInterval overrides the poll period. Call before Start.
func (p *Poller) SetInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// Start blocks until ctx is done.
func (p *Poller) Start(ctx context.Context) {
	if p.running.Swap(true) {
		return
	}
	defer p.running.Store(false)

	p.logger.Debug("time poller started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("time poller stopping")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

func (p *Poller) poll(ctx context.Context) {
	seconds, ok, err := p.player.CurrentTime(ctx)
	if err != nil {
		p.logger.Warn("failed to read playback time", "error", err)
		return
	}
	if !ok {
		return
	}
	p.onTime(ctx, seconds)
}
