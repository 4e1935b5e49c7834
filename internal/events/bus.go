// Package events carries run lifecycle notifications from the jobs to the
// live websocket stream. Delivery is best-effort: a slow subscriber loses
// events rather than blocking a job.
package events

import (
	"sync"
	"time"
)

// Stages of a job run.
const (
	StageStarted  = "started"
	StageAuth     = "authenticated"
	StageFinished = "finished"
)

// Event is one run lifecycle notification.
type Event struct {
	Time   time.Time `json:"time"`
	Job    string    `json:"job"`
	Stage  string    `json:"stage"`
	Status string    `json:"status,omitempty"` // set on finished
	Detail string    `json:"detail,omitempty"`
}

// Bus is an in-process broadcast channel fan-out.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered subscriber channel. The caller must
// Unsubscribe when done.
func (b *Bus) Subscribe(buffer int) chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers ev to every subscriber, dropping it for any whose buffer
// is full.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Full buffer: the subscriber is behind, drop for it.
		}
	}
}
