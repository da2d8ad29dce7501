package keystore

import (
	"context"
	"sync"

	"critterdex/internal/common"
)

// Hub is shared in-memory storage. Each handle opened from a Hub behaves
// like one browser tab: all handles see the same data, and a mutation made
// through one handle notifies subscribers on every other handle.
type Hub struct {
	mu      sync.Mutex
	data    map[string]string
	handles map[*MemoryStore]struct{}
}

// NewHub creates an empty in-memory hub.
func NewHub() *Hub {
	return &Hub{
		data:    make(map[string]string),
		handles: make(map[*MemoryStore]struct{}),
	}
}

// Open attaches a new handle to the hub.
func (h *Hub) Open() *MemoryStore {
	s := &MemoryStore{hub: h, subs: make(map[int]Handler)}
	h.mu.Lock()
	h.handles[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// broadcast delivers ev to every handle except origin. Handlers are collected
// under the hub lock but invoked outside it, so they may call back into the
// store.
func (h *Hub) broadcast(origin *MemoryStore, ev Event) {
	var handlers []Handler
	h.mu.Lock()
	for s := range h.handles {
		if s == origin {
			continue
		}
		s.mu.Lock()
		for _, fn := range s.subs {
			handlers = append(handlers, fn)
		}
		s.mu.Unlock()
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// MemoryStore is one handle on a Hub. It satisfies Store.
type MemoryStore struct {
	hub *Hub

	mu     sync.Mutex
	subs   map[int]Handler
	nextID int
	closed bool
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	s.hub.mu.Lock()
	v, ok := s.hub.data[key]
	s.hub.mu.Unlock()
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.hub.mu.Lock()
	prev, existed := s.hub.data[key]
	s.hub.data[key] = value
	s.hub.mu.Unlock()

	if existed && prev == value {
		return nil
	}
	s.hub.broadcast(s, Event{Key: key, Value: value, Present: true})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.hub.mu.Lock()
	_, existed := s.hub.data[key]
	delete(s.hub.data, key)
	s.hub.mu.Unlock()

	if !existed {
		return nil
	}
	s.hub.broadcast(s, Event{Key: key})
	return nil
}

func (s *MemoryStore) Subscribe(h Handler) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = h
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[int]Handler)
	s.mu.Unlock()

	s.hub.mu.Lock()
	delete(s.hub.handles, s)
	s.hub.mu.Unlock()
	return nil
}

func (s *MemoryStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrorClosed
	}
	return nil
}
