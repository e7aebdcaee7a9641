package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"chatroomgo/internal/core"
)

// errMalformedEvent marks a frame whose body failed to decode; the event is
// rejected, the connection stays open.
var errMalformedEvent = errors.New("malformed_event")

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, s *session, body json.RawMessage) (any, error)

// Router maps inbound event names to handlers, à-la gin.Engine. The handler
// set is closed at construction time, so dispatch over the protocol's
// inbound variants is exhaustive.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds an event name to a strongly-typed handler.
func Register[Req any, Res any](
	r *Router,
	event string,
	h func(ctx context.Context, s *session, req Req) (Res, error),
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(ctx context.Context, s *session, body json.RawMessage) (any, error) {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, errMalformedEvent
			}
		}
		return h(ctx, s, req)
	}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, s *session, env Envelope) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return nil, core.ErrUnknownEvent
	}
	return h(ctx, s, env.Body)
}
