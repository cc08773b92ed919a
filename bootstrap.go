package depot

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/xraph/go-utils/log"
)

const (
	latchIdle int32 = iota
	latchRunning
	latchDone
)

// latch runs a one-shot task. Every caller observes the outcome of the first
// run, including its error.
type latch struct {
	state atomic.Int32
	done  chan struct{}
	err   error
}

var errLatchPanicked = errors.New("panicked")

func newLatch() *latch {
	return &latch{done: make(chan struct{})}
}

// do runs fn if no run has started yet and otherwise waits for the running
// one. Waiting gives up when ctx is done; the run itself continues.
func (l *latch) do(ctx context.Context, fn func() error) error {
	if l.state.CompareAndSwap(latchIdle, latchRunning) {
		panicked := true

		defer func() {
			if panicked {
				l.err = NewBootstrapError("run", errLatchPanicked)
			}

			l.state.Store(latchDone)
			close(l.done)
		}()

		l.err = fn()
		panicked = false

		return l.err
	}

	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *latch) finished() bool {
	return l.state.Load() == latchDone
}

// Initialize runs discovery and then constructs every auto-create component
// in ascending priority order. Only the first call does the work; concurrent
// and later calls wait for it and return its result.
func (r *Registry) Initialize(ctx context.Context) error {
	return r.boot.do(ctx, func() error {
		return r.bootstrap(context.WithoutCancel(ctx))
	})
}

// Initialized reports whether Initialize has completed, successfully or not.
func (r *Registry) Initialized() bool {
	return r.boot.finished()
}

func (r *Registry) bootstrap(ctx context.Context) error {
	start := time.Now()
	globs := r.opts.scanGlobs

	r.logger.Info("bootstrap started", log.Strings("globs", globs))

	for _, glob := range globs {
		if err := r.loader.Load(ctx, glob, r.opts.filter); err != nil {
			r.logger.Error("discovery failed", log.String("glob", glob), log.Error(err))
			return NewBootstrapError("discovery", err)
		}
	}

	r.mu.RLock()
	queue := slices.Clone(r.autoCreate)
	r.mu.RUnlock()

	// Stable: equal priorities keep registration order.
	slices.SortStableFunc(queue, func(a, b autoCreateEntry) int {
		return cmp.Compare(a.priority, b.priority)
	})

	for _, entry := range queue {
		if _, err := r.getInstance(ctx, entry.targetID, entry.qualifier); err != nil {
			r.logger.Error("auto-create failed",
				log.String("target", entry.targetID),
				log.String("qualifier", entry.qualifier),
				log.Error(err),
			)

			return NewBootstrapError("auto_create", err)
		}
	}

	r.logger.Info("bootstrap completed",
		log.Int("auto_created", len(queue)),
		log.Duration("elapsed", time.Since(start)),
	)

	return nil
}
