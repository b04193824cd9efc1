package worker

import (
	"sync"
	"time"

	"github.com/tecnotop/backend/libs/golog"
)

type repeatWorker struct {
	period time.Duration
	fn     func()

	mu      sync.Mutex
	started bool
	stopCh  chan chan struct{}
}

// NewRepeat returns a worker that invokes fn every period. A panic in fn is
// recovered and logged so one bad cycle does not take down the worker.
func NewRepeat(period time.Duration, fn func()) Worker {
	return &repeatWorker{
		period: period,
		fn:     fn,
		stopCh: make(chan chan struct{}, 1),
	}
}

func (w *repeatWorker) Started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *repeatWorker) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go func() {
		defer func() {
			w.mu.Lock()
			w.started = false
			w.mu.Unlock()
		}()
		tc := time.NewTicker(w.period)
		defer tc.Stop()
		for {
			w.run()
			select {
			case ch := <-w.stopCh:
				close(ch)
				return
			case <-tc.C:
			}
		}
	}()
}

func (w *repeatWorker) run() {
	defer func() {
		if r := recover(); r != nil {
			golog.Criticalf("Panic in worker cycle: %v", r)
		}
	}()
	w.fn()
}

func (w *repeatWorker) Stop(wait time.Duration) {
	if !w.Started() {
		return
	}
	ch := make(chan struct{})
	select {
	case w.stopCh <- ch:
	default:
		return
	}
	select {
	case <-ch:
	case <-time.After(wait):
	}
}
