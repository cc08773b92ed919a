package depot

import (
	"context"
)

// slot is one entry of the instance cache. It is reserved before construction
// starts so concurrent requests for the same pair wait on the same outcome.
type slot struct {
	done   chan struct{}
	handle any
	ref    *Ref
	err    error
}

func newSlot() *slot {
	return &slot{done: make(chan struct{})}
}

// complete publishes the handle to every waiter.
func (s *slot) complete(handle any, ref *Ref) {
	s.handle = handle
	s.ref = ref
	close(s.done)
}

// fail publishes err to every waiter.
func (s *slot) fail(err error) {
	s.err = err
	close(s.done)
}

// ready reports whether the slot holds a constructed handle.
func (s *slot) ready() bool {
	select {
	case <-s.done:
		return s.err == nil
	default:
		return false
	}
}

// wait blocks until the slot settles or ctx is done. Giving up waiting does not
// cancel the construction.
func (s *slot) wait(ctx context.Context) (any, error) {
	select {
	case <-s.done:
		return s.handle, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
