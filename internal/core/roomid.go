package core

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// PublicRoomID is the single well-known room every connection joins on attach.
const PublicRoomID = "public"

const privateRoomPrefix = "priv:"

// PrivateRoomID derives the room id shared by two identities. The pair is
// sorted before hashing so both participants resolve the same id no matter
// who initiates: PrivateRoomID(a,b) == PrivateRoomID(b,a).
func PrivateRoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := sha1.Sum([]byte(a + "\x00" + b))
	return privateRoomPrefix + hex.EncodeToString(sum[:])
}

// IsPrivateRoom reports whether id was produced by PrivateRoomID.
func IsPrivateRoom(id string) bool {
	return strings.HasPrefix(id, privateRoomPrefix)
}
