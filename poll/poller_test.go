package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetLevel(log.PanicLevel)
	return l
}

func TestPollerFetchesImmediatelyAndPeriodically(t *testing.T) {
	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &Poller{
		Interval: 10 * time.Millisecond,
		Logger:   quietLogger(),
		Fetch: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 fetches, got %d", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancellation")
	}
}

func TestPollerSkipsTicksWhileFetchInFlight(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &Poller{
		Interval: 5 * time.Millisecond,
		Logger:   quietLogger(),
		Fetch: func(context.Context) error {
			calls.Add(1)
			<-release
			return nil
		},
	}
	go p.Run(ctx)

	deadline := time.After(2 * time.Second)
	for p.Skipped() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected skipped ticks while fetch blocked, got %d", p.Skipped())
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single in-flight fetch, got %d", got)
	}
	close(release)
}

func TestPollerContinuesAfterFetchError(t *testing.T) {
	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &Poller{
		Interval: 5 * time.Millisecond,
		Logger:   quietLogger(),
		Fetch: func(context.Context) error {
			calls.Add(1)
			return errors.New("transient")
		},
	}
	go p.Run(ctx)

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected polling to continue after errors, got %d calls", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
