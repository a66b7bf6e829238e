package liveevents

import (
	"errors"
	"strings"
	"sync"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// LiveEvent is one API key request as seen by the owner's activity stream.
type LiveEvent struct {
	KeyID      string `json:"key_id"`
	Endpoint   string `json:"endpoint"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
	IPAddress  string `json:"ip_address"`
	RecordedAt string `json:"recorded_at"`
}

var (
	ErrUnavailable  = errors.New("hub_unavailable")
	ErrInvalidOwner = errors.New("invalid_owner")
)

// Hub fans usage events out to live subscribers, one stream per user. Each
// stream keeps a short backlog that new subscribers receive first. Slow
// subscribers miss events rather than block publishers.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []LiveEvent
	subs   map[uint64]chan LiveEvent
	nextID uint64
}

type Subscription struct {
	hub   *Hub
	owner string
	id    uint64
	ch    chan LiveEvent
	once  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(owner string, event LiveEvent) {
	if h == nil {
		return
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return
	}
	h.mu.RLock()
	stream := h.streams[owner]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, event)
	if len(stream.buffer) > h.bufferSize {
		stream.buffer = stream.buffer[len(stream.buffer)-h.bufferSize:]
	}
	subs := make([]chan LiveEvent, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Subscribe(owner string) (*Subscription, []LiveEvent, error) {
	if h == nil {
		return nil, nil, ErrUnavailable
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, nil, ErrInvalidOwner
	}

	// Registration holds the hub lock so unsubscribe cannot drop the stream
	// between lookup and insert.
	h.mu.Lock()
	current := h.streams[owner]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan LiveEvent)}
		h.streams[owner] = current
	}
	current.mu.Lock()
	id := current.nextID
	current.nextID++
	ch := make(chan LiveEvent, h.subscriberBuffer)
	current.subs[id] = ch
	buffer := append([]LiveEvent(nil), current.buffer...)
	current.mu.Unlock()
	h.mu.Unlock()

	return &Subscription{
		hub:   h,
		owner: owner,
		id:    id,
		ch:    ch,
	}, buffer, nil
}

func (h *Hub) unsubscribe(owner string, id uint64) {
	if h == nil {
		return
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return
	}

	h.mu.RLock()
	stream := h.streams[owner]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.streams[owner]
	if current != stream {
		h.mu.Unlock()
		return
	}
	stream.mu.Lock()
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, owner)
	}
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan LiveEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.owner, s.id)
	})
}
