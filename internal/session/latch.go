package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// AnswerLatch is the round synchronizer for individual rounds. It releases
// the round loop when every participant has counted down or the answer
// window elapses, whichever comes first, and hands a decaying bonus
// multiplier to the earliest responders.
//
// Multiple goroutines may invoke CountDown simultaneously.
type AnswerLatch struct {
	mu        sync.Mutex
	remaining int
	bonusLeft int
	bonusMult int

	released chan struct{}

	clock   clockwork.Clock
	timeout time.Duration
}

// NewAnswerLatch creates a latch expecting participants responses within
// timeout. The first bonusSlots responders receive bonusMult, the rest 1.
func NewAnswerLatch(clock clockwork.Clock, participants, bonusSlots, bonusMult int, timeout time.Duration) *AnswerLatch {
	return &AnswerLatch{
		remaining: participants,
		bonusLeft: bonusSlots,
		bonusMult: bonusMult,
		released:  make(chan struct{}),
		clock:     clock,
		timeout:   timeout,
	}
}

// CountDown registers one response. It returns the scoring multiplier for
// this responder and whether the response arrived before release. The
// remaining-count and bonus-pool decrements happen in one critical section
// so a bonus slot can never be granted twice.
func (l *AnswerLatch) CountDown() (multiplier int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.remaining <= 0 {
		// Round already released; late responses are no-ops.
		return 1, false
	}

	l.remaining--

	multiplier = 1
	if l.bonusLeft > 0 {
		multiplier = l.bonusMult
		l.bonusLeft--
	}

	if l.remaining == 0 {
		close(l.released)
	}
	return multiplier, true
}

// Await blocks until all participants have counted down, the answer window
// elapses, or ctx is cancelled. It reports whether the full quorum was
// reached. Await never blocks past the timeout, and once it returns the
// latch is released: later CountDown calls report ok=false.
func (l *AnswerLatch) Await(ctx context.Context) bool {
	timer := l.clock.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case <-l.released:
		return true
	case <-timer.Chan():
		l.release()
		return false
	case <-ctx.Done():
		l.release()
		return false
	}
}

// release closes the latch early. CountDown may have closed it already in
// the window between the timer firing and this call, hence the guard.
func (l *AnswerLatch) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining > 0 {
		l.remaining = 0
		close(l.released)
	}
}
