package manager

import (
	"sync"
	"time"

	"github.com/nerrad567/hsb-core/internal/transport"
)

// Item is one unit of work for the dispatch loop. The set of variants is
// closed: only the types in this file implement it.
type Item interface {
	item()
}

// InboundFrame is a frame received from a transport.
type InboundFrame struct {
	Envelope transport.Envelope
}

// OutboundFrame is a frame a driver wants written to a transport.
type OutboundFrame struct {
	Envelope transport.Envelope
}

// ClientCommand is a parsed request from a client. Origin names the
// connection the reply must go back to.
type ClientCommand struct {
	Origin  string
	Request Request
}

// OutboundEvent is an event for every publisher.
type OutboundEvent struct {
	Event Event
}

// OutboundReply is a reply for the publisher owning Reply.Origin.
type OutboundReply struct {
	Reply Reply
}

// Deferred is work scheduled to re-enter the loop, such as a delayed scene
// action.
type Deferred struct {
	Fn func()
}

func (InboundFrame) item()  {}
func (OutboundFrame) item() {}
func (ClientCommand) item() {}
func (OutboundEvent) item() {}
func (OutboundReply) item() {}
func (Deferred) item()      {}

// Queue is an unbounded multi-producer, single-consumer FIFO.
type Queue struct {
	mu     sync.Mutex
	items  []Item
	notify chan struct{}
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends an item. It never blocks. Items pushed after Close are
// dropped and Push returns false.
func (q *Queue) Push(it Item) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest item, waiting at most timeout for one to arrive.
// It returns false on timeout or once the queue is closed and drained.
func (q *Queue) Pop(timeout time.Duration) (Item, bool) {
	var deadline <-chan time.Time
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return it, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed || timeout <= 0 {
			return nil, false
		}
		if deadline == nil {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			deadline = timer.C
		}

		select {
		case <-q.notify:
		case <-deadline:
			return nil, false
		}
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting items and wakes a waiting Pop.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
