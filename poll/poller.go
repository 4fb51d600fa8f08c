// Package poll provides the scheduled-refresh primitive behind the
// messaging view and background board refresh: a cancellable periodic task
// that never has more than one fetch outstanding.
package poll

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultInterval = 5 * time.Second

// Poller invokes Fetch on a fixed interval. Ticks that arrive while a fetch
// is still in flight are skipped, so a slow backend cannot pile up requests.
type Poller struct {
	// Interval between fetches; defaults to 5s when zero.
	Interval time.Duration
	// Fetch performs one refresh. Errors are logged and polling continues.
	Fetch func(ctx context.Context) error
	// Logger for fetch failures; defaults to the standard logger.
	Logger *log.Logger

	inFlight atomic.Bool
	skipped  atomic.Int64
}

// Run polls until ctx is cancelled. The first fetch happens immediately.
// Fetches run on their own goroutine so ticking continues during a slow
// request, which is what makes the skip guard observable.
func (p *Poller) Run(ctx context.Context) {
	if p.Fetch == nil {
		panic("poll: Fetch is nil")
	}
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	p.tick(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// Skipped returns how many ticks were dropped because a fetch was still in
// flight.
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

func (p *Poller) tick(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		return
	}
	go func() {
		defer p.inFlight.Store(false)
		if err := p.Fetch(ctx); err != nil && ctx.Err() == nil {
			p.logger().WithError(err).Warn("poll fetch failed")
		}
	}()
}

func (p *Poller) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.StandardLogger()
}
