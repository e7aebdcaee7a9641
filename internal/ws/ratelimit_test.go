package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstThenDeny(t *testing.T) {
	b := newTokenBucket(2, 0) // no refill

	require.True(t, b.allow())
	require.True(t, b.allow())
	require.False(t, b.allow())
}

func TestTokenBucketRefills(t *testing.T) {
	b := newTokenBucket(1, 1000) // refills fast enough for a short sleep

	require.True(t, b.allow())
	require.False(t, b.allow())

	time.Sleep(5 * time.Millisecond)
	require.True(t, b.allow())
}
