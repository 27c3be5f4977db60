package session

import (
	"errors"
	"sync"

	"github.com/rlkelly/p2p/wire"
)

// ErrClosed is returned by Send once the session's outbound queue has
// been closed (the session is gone) — this is how a queued ping or
// gossip send notices a dead peer's connection mid-tick.
var ErrClosed = errors.New("session: outbound queue closed")

// outboundQueue is an unbounded, non-blocking-push FIFO. Unlike a
// fixed-capacity Go channel, Send only ever fails once the queue is
// closed — never because it is "full".
type outboundQueue struct {
	mu     sync.Mutex
	items  []wire.Message
	notify chan struct{}
	closed bool
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{notify: make(chan struct{}, 1)}
}

func (q *outboundQueue) push(m wire.Message) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, m)
	q.mu.Unlock()
	q.wake()
	return nil
}

func (q *outboundQueue) tryPop() (wire.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return wire.Message{}, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

func (q *outboundQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *outboundQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *outboundQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
