package segbuf

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/cpu"
)

// Semaphore is a counting semaphore where each permit is a byte slot of the buffer.
type Semaphore struct {
	weighted *semaphore.Weighted

	_ cpu.CacheLinePad

	// available mirrors the number of permits that can be acquired.
	// It is only meant for instrumentation, never for control decisions.
	available atomic.Int64

	_ cpu.CacheLinePad

	// done is closed when the owning buffer is closed
	done <-chan struct{}
}

// newSemaphore returns a semaphore able to hold size permits,
// initial of which are available.
func newSemaphore(size, initial int64, done <-chan struct{}) *Semaphore {
	weighted := semaphore.NewWeighted(size)

	// The weighted semaphore starts with every permit available,
	// hold the ones that must not be
	if held := size - initial; held > 0 {
		weighted.TryAcquire(held)
	}

	s := &Semaphore{
		weighted: weighted,
		done:     done,
	}
	s.available.Store(initial)

	return s
}

func (s *Semaphore) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// TryAcquire acquires one permit without blocking.
// It reports whether a permit was available.
func (s *Semaphore) TryAcquire() bool {
	if s.isClosed() {
		return false
	}

	if !s.weighted.TryAcquire(1) {
		return false
	}

	s.available.Add(-1)

	return true
}

// Acquire acquires one permit, blocking until one is available.
// It returns ErrClosed if the buffer is closed before a permit is acquired,
// or the context error if the context is done first.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}

	if s.TryAcquire() {
		return nil
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Wake up the waiter when the buffer is closed
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := s.weighted.Acquire(waitCtx, 1); err != nil {
		if s.isClosed() {
			return ErrClosed
		}

		return err
	}

	s.available.Add(-1)

	return nil
}

// Release releases one permit, waking up a blocked waiter if any.
func (s *Semaphore) Release() {
	s.available.Add(1)
	s.weighted.Release(1)
}

// Available returns the number of permits that can currently be acquired.
func (s *Semaphore) Available() int64 {
	return s.available.Load()
}
