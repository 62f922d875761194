package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TeamBarrier is the round synchronizer for team rounds: it releases when
// every participant has arrived or the answer window elapses. It carries no
// bonus semantics; team scoring is computed afterward from the players'
// correctness flags.
//
// Multiple goroutines may invoke Arrive simultaneously.
type TeamBarrier struct {
	mu        sync.Mutex
	remaining int

	released chan struct{}

	clock   clockwork.Clock
	timeout time.Duration
}

// NewTeamBarrier creates a barrier expecting participants arrivals within
// timeout.
func NewTeamBarrier(clock clockwork.Clock, participants int, timeout time.Duration) *TeamBarrier {
	return &TeamBarrier{
		remaining: participants,
		released:  make(chan struct{}),
		clock:     clock,
		timeout:   timeout,
	}
}

// Arrive registers one response and reports whether it arrived before
// release. The count never goes negative and release fires at most once.
func (b *TeamBarrier) Arrive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.remaining <= 0 {
		return false
	}

	b.remaining--
	if b.remaining == 0 {
		close(b.released)
	}
	return true
}

// Await blocks until every participant has arrived, the answer window
// elapses, or ctx is cancelled. It reports whether everyone arrived. Once
// Await returns the barrier is released: later Arrive calls report false.
func (b *TeamBarrier) Await(ctx context.Context) bool {
	timer := b.clock.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-b.released:
		return true
	case <-timer.Chan():
		b.release()
		return false
	case <-ctx.Done():
		b.release()
		return false
	}
}

// release closes the barrier early. Arrive may have closed it already in
// the window between the timer firing and this call, hence the guard.
func (b *TeamBarrier) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining > 0 {
		b.remaining = 0
		close(b.released)
	}
}
