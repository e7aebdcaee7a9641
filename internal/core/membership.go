package core

import "sync"

// MembershipIndex tracks, per room, the set of currently-connected members.
// It is a derived view: only the ConnectionRegistry mutates it (join, leave,
// unregister), which keeps the two structures from diverging. Rooms whose
// last live member leaves are pruned; durable room rows elsewhere are
// untouched.
type MembershipIndex struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn // roomID -> connID -> conn
}

func NewMembershipIndex() *MembershipIndex {
	return &MembershipIndex{rooms: make(map[string]map[string]Conn)}
}

func (i *MembershipIndex) addMember(roomID string, c Conn) {
	i.mu.Lock()
	defer i.mu.Unlock()

	set, ok := i.rooms[roomID]
	if !ok {
		set = make(map[string]Conn)
		i.rooms[roomID] = set
	}
	set[c.ID()] = c
}

func (i *MembershipIndex) removeMember(roomID, connID string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	set, ok := i.rooms[roomID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(i.rooms, roomID)
	}
}

// MembersOf returns a snapshot of the live connections in roomID.
// I/O on the result happens outside the index lock.
func (i *MembershipIndex) MembersOf(roomID string) []Conn {
	i.mu.RLock()
	defer i.mu.RUnlock()

	set, ok := i.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// LiveRoomCount reports how many rooms currently hold at least one member.
func (i *MembershipIndex) LiveRoomCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.rooms)
}
