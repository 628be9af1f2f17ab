package relayer

import "github.com/lightlink-network/ll-bridge-relayer/types"

// RetryQueue holds lock events whose processing failed so later cycles can
// attempt them again. An event is dropped once it failed more than
// maxAttempts times after the first failure. Owned by the relay loop.
type RetryQueue struct {
	maxAttempts int
	failures    map[types.Nonce]int
	queued      map[types.Nonce]bool
	pending     []types.LockEvent
}

func NewRetryQueue(maxAttempts int) *RetryQueue {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &RetryQueue{
		maxAttempts: maxAttempts,
		failures:    make(map[types.Nonce]int),
		queued:      make(map[types.Nonce]bool),
	}
}

// Fail records a failed attempt for ev. It reports whether ev will be
// attempted again; false means the event was dropped.
func (q *RetryQueue) Fail(ev types.LockEvent) bool {
	q.failures[ev.Nonce]++
	if q.failures[ev.Nonce] > q.maxAttempts {
		delete(q.failures, ev.Nonce)
		return false
	}
	if !q.queued[ev.Nonce] {
		q.queued[ev.Nonce] = true
		q.pending = append(q.pending, ev)
	}
	return true
}

// Forget clears the failure count of a nonce that was relayed.
func (q *RetryQueue) Forget(n types.Nonce) {
	delete(q.failures, n)
}

// Take returns the queued events and empties the queue. Failure counts are
// kept until Forget or the event is dropped.
func (q *RetryQueue) Take() []types.LockEvent {
	out := q.pending
	q.pending = nil
	q.queued = make(map[types.Nonce]bool)
	return out
}

func (q *RetryQueue) Len() int { return len(q.pending) }
