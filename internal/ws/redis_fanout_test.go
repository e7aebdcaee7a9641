package ws

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatroomgo/internal/core"
)

func TestSubscriptionBookkeepingStaysOffBrokerIO(t *testing.T) {
	// A dead broker address: SUBSCRIBE never completes, yet the refcount
	// bookkeeping must stay responsive.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	f := NewFanout(rdb, core.NewEngine(nil, zap.NewNop()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Subscribe("r1")
		f.Subscribe("r1")
		f.Subscribe("r2")
		f.Unsubscribe("r1")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription bookkeeping blocked on broker I/O")
	}

	f.mu.Lock()
	require.Equal(t, 1, f.subs[roomChannel("r1")].refCnt)
	require.Equal(t, 1, f.subs[roomChannel("r2")].refCnt)
	f.mu.Unlock()

	f.Unsubscribe("r1")
	f.Unsubscribe("r2")

	f.mu.Lock()
	require.Empty(t, f.subs)
	f.mu.Unlock()
}
