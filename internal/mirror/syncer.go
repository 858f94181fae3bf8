package mirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	applog "stockkeeper/internal/log"
)

// Notifier is told when a sync run has finished.
type Notifier interface {
	Notify()
}

type syncFunc func(ctx context.Context) error

// Syncer runs mirror syncs on one background goroutine. Triggers that arrive
// while a run is pending are merged into it; every run reads the latest
// store state, so merging loses nothing.
type Syncer struct {
	run     syncFunc
	notify  Notifier
	timeout time.Duration

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewSyncer(m *Mirror, n Notifier, timeout time.Duration) *Syncer {
	return newSyncer(m.SyncAll, n, timeout)
}

func newSyncer(run syncFunc, n Notifier, timeout time.Duration) *Syncer {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Syncer{
		run:     run,
		notify:  n,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker.
func (s *Syncer) Start() {
	go s.loop()
}

// Trigger schedules a sync and returns immediately.
func (s *Syncer) Trigger() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close stops the worker once the in-flight run, if any, returns. It must
// only be called after Start.
func (s *Syncer) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Syncer) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
			s.runOnce()
		}
	}
}

func (s *Syncer) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			applog.Error(nil, "mirror.panic", fmt.Errorf("%v", r), nil)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.run(ctx); err != nil {
		applog.Error(nil, "mirror.sync", err, nil)
		return
	}
	applog.Info(nil, "mirror.done", map[string]any{"took_ms": time.Since(start).Milliseconds()})
	if s.notify != nil {
		s.notify.Notify()
	}
}
