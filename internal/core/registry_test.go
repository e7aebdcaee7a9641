package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newRegistry() (*ConnectionRegistry, *MembershipIndex) {
	idx := NewMembershipIndex()
	return NewConnectionRegistry(idx), idx
}

func TestRegisterRejectsDuplicateConnection(t *testing.T) {
	reg, _ := newRegistry()

	require.NoError(t, reg.Register(newFakeConn("c1", "u1")))
	err := reg.Register(newFakeConn("c1", "u2"))
	require.ErrorIs(t, err, ErrDuplicateConnection)
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	reg, _ := newRegistry()

	ident, rooms, ok := reg.Unregister("ghost")
	require.False(t, ok)
	require.Empty(t, rooms)
	require.Empty(t, ident.ID)

	// Double disconnect: second unregister of a real connection is also safe.
	require.NoError(t, reg.Register(newFakeConn("c1", "u1")))
	_, _, ok = reg.Unregister("c1")
	require.True(t, ok)
	_, _, ok = reg.Unregister("c1")
	require.False(t, ok)
}

func TestUnregisterReturnsJoinedRoomsAndPrunesIndex(t *testing.T) {
	reg, idx := newRegistry()
	c := newFakeConn("c1", "u1")
	require.NoError(t, reg.Register(c))

	for _, room := range []string{"r1", "r2"} {
		added, err := reg.JoinRoom("c1", room)
		require.NoError(t, err)
		require.True(t, added)
	}
	require.Len(t, idx.MembersOf("r1"), 1)

	_, rooms, ok := reg.Unregister("c1")
	require.True(t, ok)
	require.ElementsMatch(t, []string{"r1", "r2"}, rooms)

	// Membership entries never outlive their connection.
	require.Empty(t, idx.MembersOf("r1"))
	require.Empty(t, idx.MembersOf("r2"))
	require.Zero(t, idx.LiveRoomCount())
}

func TestJoinRoomUnknownConnection(t *testing.T) {
	reg, _ := newRegistry()
	_, err := reg.JoinRoom("ghost", "r1")
	require.ErrorIs(t, err, ErrUnknownConnection)
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	reg, idx := newRegistry()
	require.NoError(t, reg.Register(newFakeConn("c1", "u1")))

	added, err := reg.JoinRoom("c1", "r1")
	require.NoError(t, err)
	require.True(t, added)

	added, err = reg.JoinRoom("c1", "r1")
	require.NoError(t, err)
	require.False(t, added)

	require.Len(t, idx.MembersOf("r1"), 1)
	require.ElementsMatch(t, []string{"r1"}, reg.RoomsForConnection("c1"))
}

func TestLeaveRoomIsNoopForNonMember(t *testing.T) {
	reg, _ := newRegistry()
	require.NoError(t, reg.Register(newFakeConn("c1", "u1")))

	require.False(t, reg.LeaveRoom("c1", "r1"))
	require.False(t, reg.LeaveRoom("ghost", "r1"))

	_, err := reg.JoinRoom("c1", "r1")
	require.NoError(t, err)
	require.True(t, reg.LeaveRoom("c1", "r1"))
	require.False(t, reg.IsMember("c1", "r1"))
}

func TestConnectionsForIdentitySpansDevices(t *testing.T) {
	reg, _ := newRegistry()
	require.NoError(t, reg.Register(newFakeConn("devA", "u1")))
	require.NoError(t, reg.Register(newFakeConn("devB", "u1")))
	require.NoError(t, reg.Register(newFakeConn("other", "u2")))

	conns := reg.ConnectionsForIdentity("u1")
	require.Len(t, conns, 2)

	ids := []string{conns[0].ID(), conns[1].ID()}
	require.ElementsMatch(t, []string{"devA", "devB"}, ids)

	_, _, ok := reg.Unregister("devA")
	require.True(t, ok)
	require.Len(t, reg.ConnectionsForIdentity("u1"), 1)
}
