package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrivateRoomIDIsSymmetric(t *testing.T) {
	require.Equal(t, PrivateRoomID("alice", "bob"), PrivateRoomID("bob", "alice"))
}

func TestPrivateRoomIDDistinctPerPair(t *testing.T) {
	require.NotEqual(t, PrivateRoomID("alice", "bob"), PrivateRoomID("alice", "carol"))
	require.NotEqual(t, PrivateRoomID("alice", "bob"), PrivateRoomID("bob", "carol"))
}

func TestPrivateRoomIDAmbiguityResistant(t *testing.T) {
	// Concatenation without a separator would collide "ab"+"c" with "a"+"bc".
	require.NotEqual(t, PrivateRoomID("ab", "c"), PrivateRoomID("a", "bc"))
}

func TestIsPrivateRoom(t *testing.T) {
	require.True(t, IsPrivateRoom(PrivateRoomID("a", "b")))
	require.False(t, IsPrivateRoom(PublicRoomID))
	require.False(t, IsPrivateRoom("some-named-room"))
}
