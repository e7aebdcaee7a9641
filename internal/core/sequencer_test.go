package core

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequencerStartsAtZero(t *testing.T) {
	s := NewSequencer()
	require.EqualValues(t, 0, s.Next("r1"))
	require.EqualValues(t, 1, s.Next("r1"))
	require.EqualValues(t, 2, s.Next("r1"))
}

func TestSequencerRoomsAreIndependent(t *testing.T) {
	s := NewSequencer()
	require.EqualValues(t, 0, s.Next("r1"))
	require.EqualValues(t, 1, s.Next("r1"))
	require.EqualValues(t, 0, s.Next("r2"))
}

func TestSequencerConcurrentNextIsGapless(t *testing.T) {
	s := NewSequencer()

	const n = 200
	out := make(chan uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			out <- s.Next("r1")
		}()
	}
	wg.Wait()
	close(out)

	seen := make([]uint64, 0, n)
	for v := range out {
		seen = append(seen, v)
	}
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })

	require.Len(t, seen, n)
	for i, v := range seen {
		require.EqualValues(t, i, v) // distinct and consecutive, no gaps
	}
}
