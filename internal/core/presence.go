package core

import "sync"

// PresenceTracker keeps per-identity counts of open connections.
// Online means count > 0; only the 0→1 and 1→0 edges are reported, so a
// second device connecting (1→2) stays silent. inc/dec are atomic with
// respect to concurrent register/unregister for the same identity: two
// near-simultaneous connects can never both observe count 0.
type PresenceTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{counts: make(map[string]int)}
}

// inc records one more connection and reports whether the identity just
// came online.
func (p *PresenceTracker) inc(identityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[identityID]++
	return p.counts[identityID] == 1
}

// dec records one closed connection and reports whether the identity just
// went offline.
func (p *PresenceTracker) dec(identityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.counts[identityID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(p.counts, identityID)
		return true
	}
	p.counts[identityID] = n - 1
	return false
}

// Online reports whether the identity holds at least one open connection.
func (p *PresenceTracker) Online(identityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[identityID] > 0
}
