// ABOUTME: Channel-backed notification bus
// ABOUTME: Non-blocking publish from any goroutine, drained by one consumer
package notify

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the number of events held for a slow consumer
const DefaultBufferSize = 256

// Publisher is the producer side of a Bus
type Publisher interface {
	Publish(e Event)
}

// Bus delivers events to a single consumer. Publish never blocks;
// events published while the buffer is full are dropped.
type Bus struct {
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	dropped atomic.Int64
}

// NewBus creates a bus holding up to size undelivered events
func NewBus(size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{ch: make(chan Event, size)}
}

// Publish enqueues e if there is room
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	select {
	case b.ch <- e:
	default:
		b.dropped.Add(1)
	}
}

// Events returns the channel the consumer drains
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Dropped returns the number of events lost to a full buffer
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops delivery and closes the events channel
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}

// Recorder collects events synchronously; useful as a Publisher in tests
// and for batch tools without a consumer loop.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a snapshot of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}
