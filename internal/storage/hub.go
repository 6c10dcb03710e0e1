package storage

import (
	"context"
	"sync"

	"github.com/mmynk/housesplit/internal/models"
)

// Hub fans expense snapshots out to subscribers. Backends embed one and call
// Publish after every successful write.
//
// Each subscriber owns a one-slot mailbox drained by its own goroutine. A
// publish that finds the mailbox full replaces the pending snapshot, so a slow
// subscriber skips intermediate states but always ends on the latest one.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

type subscriber struct {
	mailbox chan []models.Expense
	done    chan struct{}
	once    sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// offer puts snap in the mailbox, evicting an undelivered older snapshot.
func (s *subscriber) offer(snap []models.Expense) {
	for {
		select {
		case s.mailbox <- snap:
			return
		default:
		}
		select {
		case <-s.mailbox:
		default:
		}
	}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers onChange and queues initial as its first delivery.
func (h *Hub) Subscribe(ctx context.Context, initial []models.Expense, onChange func([]models.Expense)) (Unsubscribe, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	id := h.nextID
	h.nextID++
	sub := &subscriber{
		mailbox: make(chan []models.Expense, 1),
		done:    make(chan struct{}),
	}
	sub.mailbox <- initial
	h.subs[id] = sub
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		sub.stop()
	}

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case <-ctx.Done():
				unsubscribe()
				return
			case snap := <-sub.mailbox:
				select {
				case <-sub.done:
					return
				default:
				}
				onChange(snap)
			}
		}
	}()

	return unsubscribe, nil
}

// Publish delivers snap to every subscriber. It never blocks on a slow
// subscriber. Subscribers must treat snap as read-only.
func (h *Hub) Publish(snap []models.Expense) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		sub.offer(snap)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		sub.stop()
		delete(h.subs, id)
	}
}
