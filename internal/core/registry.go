package core

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// Conn is the engine's handle on one live transport session. The transport
// layer owns the socket; the engine only ever references connections through
// this interface.
type Conn interface {
	ID() string
	Identity() Identity
	// Enqueue offers ev to the connection's bounded outbound queue without
	// blocking. A false return means the queue is full and the connection
	// must be dropped (slow-consumer policy).
	Enqueue(ev Event) bool
	// Kick asks the transport to close the connection. The transport reacts
	// by detaching, so Kick must never be called under engine locks.
	Kick(reason string)
}

type connEntry struct {
	conn      Conn
	identity  Identity
	createdAt time.Time
	rooms     map[string]struct{}
}

// ConnectionRegistry maps identities to their open connections and each
// connection to the rooms it joined. It is the single writer of membership
// entries: every join/leave/unregister flows through here and is mirrored
// into the MembershipIndex under the registry lock, so an entry can never
// outlive its connection.
type ConnectionRegistry struct {
	mu         sync.RWMutex
	conns      map[string]*connEntry
	byIdentity map[string]map[string]Conn
	rooms      *MembershipIndex
}

func NewConnectionRegistry(rooms *MembershipIndex) *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:      make(map[string]*connEntry),
		byIdentity: make(map[string]map[string]Conn),
		rooms:      rooms,
	}
}

// Register adds a connection. The connection id must be unique per process.
func (r *ConnectionRegistry) Register(c Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if _, exists := r.conns[id]; exists {
		return ErrDuplicateConnection
	}
	r.conns[id] = &connEntry{
		conn:      c,
		identity:  c.Identity(),
		createdAt: time.Now(),
		rooms:     make(map[string]struct{}),
	}

	ident := c.Identity().ID
	set, ok := r.byIdentity[ident]
	if !ok {
		set = make(map[string]Conn)
		r.byIdentity[ident] = set
	}
	set[id] = c
	return nil
}

// Unregister removes a connection and prunes its membership entries,
// returning the owning identity and the rooms it had joined. Unregistering
// an unknown id is a no-op returning ok=false, which makes
// double-disconnects safe.
func (r *ConnectionRegistry) Unregister(connID string) (Identity, []string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[connID]
	if !ok {
		return Identity{}, nil, false
	}
	delete(r.conns, connID)

	ident := entry.identity.ID
	if set, ok := r.byIdentity[ident]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byIdentity, ident)
		}
	}

	joined := lo.Keys(entry.rooms)
	for _, roomID := range joined {
		r.rooms.removeMember(roomID, connID)
	}
	return entry.identity, joined, true
}

// JoinRoom records membership for a registered connection. Joining a room
// the connection is already in is idempotent; added reports whether a new
// membership entry was actually created.
func (r *ConnectionRegistry) JoinRoom(connID, roomID string) (added bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[connID]
	if !ok {
		return false, ErrUnknownConnection
	}
	if _, already := entry.rooms[roomID]; already {
		return false, nil
	}
	entry.rooms[roomID] = struct{}{}
	r.rooms.addMember(roomID, entry.conn)
	return true, nil
}

// LeaveRoom drops membership, reporting whether an entry was removed; a
// no-op when the connection is not a member or not registered.
func (r *ConnectionRegistry) LeaveRoom(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, member := entry.rooms[roomID]; !member {
		return false
	}
	delete(entry.rooms, roomID)
	r.rooms.removeMember(roomID, connID)
	return true
}

// IsMember reports whether the connection currently belongs to roomID.
func (r *ConnectionRegistry) IsMember(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, member := entry.rooms[roomID]
	return member
}

// ConnectionsForIdentity returns every open connection for an identity,
// across all of its devices.
func (r *ConnectionRegistry) ConnectionsForIdentity(identityID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byIdentity[identityID])
}

// RoomsForConnection returns the rooms the connection has joined.
func (r *ConnectionRegistry) RoomsForConnection(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[connID]
	if !ok {
		return nil
	}
	return lo.Keys(entry.rooms)
}
