package core

import "sync"

// Sequencer hands out per-room delivery sequence numbers. The first value
// for a room is 0 and values strictly increase for the process lifetime;
// counters are never reset while a room has live members. The sequence is
// only meaningful within one process's delivery session — a restart starts
// over at 0, and durable message ids come from the store instead.
type Sequencer struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{counters: make(map[string]uint64)}
}

// Next returns the next sequence number for roomID.
func (s *Sequencer) Next(roomID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.counters[roomID]
	s.counters[roomID] = n + 1
	return n
}
