package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatroomgo/internal/core"
)

const (
	appendTimeout = 3 * time.Second
	maxAttempts   = 3
	retryBackoff  = 500 * time.Millisecond
)

// AsyncWriter makes durability fire-and-forget from the router's viewpoint:
// AppendMessage only enqueues, a background goroutine drains the queue and
// retries transient failures. When the store stays down or the queue fills
// up, messages are dropped from history with a degraded-mode log line —
// live delivery is never blocked or rolled back.
type AsyncWriter struct {
	inner core.Store
	queue chan core.MessageEvent
	log   *zap.Logger
}

func NewAsyncWriter(inner core.Store, queueSize int, log *zap.Logger) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &AsyncWriter{
		inner: inner,
		queue: make(chan core.MessageEvent, queueSize),
		log:   log,
	}
}

// Run drains the queue until ctx is cancelled. Start once at service boot.
func (w *AsyncWriter) Run(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-w.queue:
				w.persist(ctx, msg)
			}
		}
	}()
}

// AppendMessage enqueues the write and returns immediately.
func (w *AsyncWriter) AppendMessage(_ context.Context, msg core.MessageEvent) error {
	select {
	case w.queue <- msg:
	default:
		w.log.Warn("store.queue_full",
			zap.String("room", msg.RoomID),
			zap.Uint64("seq", msg.Seq))
	}
	return nil
}

// ListMembers is a synchronous read-through; joins need the answer now.
func (w *AsyncWriter) ListMembers(ctx context.Context, roomID string) ([]string, error) {
	return w.inner.ListMembers(ctx, roomID)
}

func (w *AsyncWriter) persist(ctx context.Context, msg core.MessageEvent) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		wctx, cancel := context.WithTimeout(ctx, appendTimeout)
		err := w.inner.AppendMessage(wctx, msg)
		cancel()
		if err == nil {
			return
		}
		if attempt == maxAttempts {
			w.log.Error("store.append_dropped",
				zap.String("room", msg.RoomID),
				zap.Uint64("seq", msg.Seq),
				zap.Error(err))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
}
