package core

import (
	"context"
	"sync"
	"time"
)

// fakeConn captures delivered events in memory.
type fakeConn struct {
	id    string
	ident Identity

	mu     sync.Mutex
	events []Event
	full   bool
	kicked bool
	closed bool
}

func newFakeConn(id, identityID string) *fakeConn {
	return &fakeConn{id: id, ident: Identity{ID: identityID, Name: identityID}}
}

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) Identity() Identity { return c.ident }

func (c *fakeConn) Enqueue(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true // the transport silently drops frames after close
	}
	if c.full {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

// markClosed mirrors the transport closing the socket: later enqueues are
// accepted and discarded.
func (c *fakeConn) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) Kick(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kicked = true
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) messages() []MessageEvent {
	var out []MessageEvent
	for _, ev := range c.received() {
		if m, ok := ev.(MessageEvent); ok {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) presences() []PresenceEvent {
	var out []PresenceEvent
	for _, ev := range c.received() {
		if p, ok := ev.(PresenceEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

func (c *fakeConn) wasKicked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kicked
}

// fakeStore answers durable-membership queries from a fixture map and
// records appends.
type fakeStore struct {
	mu       sync.Mutex
	members  map[string][]string
	appended []MessageEvent
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{members: make(map[string][]string)}
}

func (s *fakeStore) AppendMessage(_ context.Context, msg MessageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.appended = append(s.appended, msg)
	return nil
}

func (s *fakeStore) ListMembers(_ context.Context, roomID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.members[roomID], nil
}

func (s *fakeStore) appendedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

// fakeBus records the order room publishes reach the wire. stallFirst delays
// the seq-0 publish so any publish-path concurrency shows up as reordering.
type fakeBus struct {
	mu         sync.Mutex
	roomSeqs   []uint64
	stallFirst time.Duration
}

func (b *fakeBus) PublishRoom(_ context.Context, _ string, ev Event) error {
	msg, ok := ev.(MessageEvent)
	if !ok {
		return nil
	}
	if msg.Seq == 0 && b.stallFirst > 0 {
		time.Sleep(b.stallFirst)
	}
	b.mu.Lock()
	b.roomSeqs = append(b.roomSeqs, msg.Seq)
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) PublishIdentity(context.Context, string, Event) error { return nil }
func (b *fakeBus) Subscribe(string)                                     {}
func (b *fakeBus) Unsubscribe(string)                                   {}
func (b *fakeBus) SubscribeIdentity(string)                             {}
func (b *fakeBus) UnsubscribeIdentity(string)                           {}

func (b *fakeBus) publishedSeqs() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint64, len(b.roomSeqs))
	copy(out, b.roomSeqs)
	return out
}
