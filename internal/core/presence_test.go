package core

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresenceEdgesFireOncePerTransition(t *testing.T) {
	p := NewPresenceTracker()

	require.True(t, p.inc("u1"))  // 0→1
	require.False(t, p.inc("u1")) // 1→2 silent
	require.True(t, p.Online("u1"))

	require.False(t, p.dec("u1")) // 2→1 silent
	require.True(t, p.dec("u1"))  // 1→0
	require.False(t, p.Online("u1"))
}

func TestPresenceDecWithoutIncIsSafe(t *testing.T) {
	p := NewPresenceTracker()
	require.False(t, p.dec("u1"))
}

func TestPresenceConcurrentConnectsSingleOnlineEdge(t *testing.T) {
	p := NewPresenceTracker()

	const n = 64
	var onlines atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if p.inc("u1") {
				onlines.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, onlines.Load())

	var offlines atomic.Int32
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if p.dec("u1") {
				offlines.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, offlines.Load())
	require.False(t, p.Online("u1"))
}
