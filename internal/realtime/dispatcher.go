// Package realtime fans message-insert events out to subscribers scoped by
// recipient identity.
package realtime

import (
	"context"
	"sync"
	"time"
)

// MessageEvent mirrors a newly inserted message row.
type MessageEvent struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dispatcher routes events to subscribers registered for the receiving user.
// Delivery is at-most-once with no retry: a subscriber whose buffer is full
// misses the event, and a dropped subscription is only re-established when
// the client subscribes again.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

type subscriber struct {
	id     int64
	stream chan MessageEvent
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[string]map[int64]*subscriber),
		bufferSize:  16,
	}
}

// Subscribe registers for events addressed to userID. The stream is torn
// down when ctx ends or the returned cancel function runs; there is no
// reconnection logic behind it.
func (d *Dispatcher) Subscribe(ctx context.Context, userID string) (<-chan MessageEvent, func()) {
	if userID == "" {
		ch := make(chan MessageEvent)
		close(ch)
		return ch, func() {}
	}
	sub := &subscriber{
		id:     d.nextSequence(),
		stream: make(chan MessageEvent, d.bufferSize),
	}
	d.register(userID, sub)
	cleanup := func() {
		d.unregister(userID, sub.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return sub.stream, cleanup
}

// Publish delivers the event to every subscriber of its receiver without
// blocking on slow consumers.
func (d *Dispatcher) Publish(event MessageEvent) {
	if event.ReceiverID == "" {
		return
	}
	d.mu.RLock()
	subs := d.subscribers[event.ReceiverID]
	if len(subs) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		copies = append(copies, sub)
	}
	d.mu.RUnlock()
	for _, sub := range copies {
		select {
		case sub.stream <- event:
		default:
		}
	}
}

func (d *Dispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Dispatcher) register(userID string, sub *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[userID]; !ok {
		d.subscribers[userID] = make(map[int64]*subscriber)
	}
	d.subscribers[userID][sub.id] = sub
}

func (d *Dispatcher) unregister(userID string, subscriberID int64) {
	d.mu.Lock()
	subs := d.subscribers[userID]
	if subs != nil {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(d.subscribers, userID)
		}
	}
	d.mu.Unlock()
}
