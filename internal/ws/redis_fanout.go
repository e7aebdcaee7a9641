package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatroomgo/internal/core"
)

// Fanout is the cross-process extension point: every delivered room event
// is published to Redis, and a refcounted subscription per channel pulls
// events published by other processes into the local engine. Room channels
// carry room-scoped events; identity channels carry private messages so a
// recipient's process receives them even before any of its connections
// joined the pair room.
//
// Channel layout: "room:<roomID>:events" and "ident:<identityID>:events".
type Fanout struct {
	rdb    *redis.Client
	engine *core.Engine

	mu   sync.Mutex
	subs map[string]*subEntry // channel -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

// busFrame is the payload on the wire. Origin lets a process drop its own
// echoes.
type busFrame struct {
	Origin string          `json:"origin"`
	Event  string          `json:"event"`
	Body   json.RawMessage `json:"body"`
}

func NewFanout(rdb *redis.Client, engine *core.Engine) *Fanout {
	return &Fanout{
		rdb:    rdb,
		engine: engine,
		subs:   make(map[string]*subEntry),
	}
}

// ──────────────────────────── core.Bus: publish ──────────────────────────────

func (f *Fanout) PublishRoom(ctx context.Context, roomID string, ev core.Event) error {
	return f.publish(ctx, roomChannel(roomID), ev)
}

func (f *Fanout) PublishIdentity(ctx context.Context, identityID string, ev core.Event) error {
	return f.publish(ctx, identityChannel(identityID), ev)
}

func (f *Fanout) publish(ctx context.Context, channel string, ev core.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(busFrame{
		Origin: f.engine.InstanceID(),
		Event:  ev.EventName(),
		Body:   body,
	})
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, channel, frame).Err()
}

// ──────────────────────────── core.Bus: subscriptions ────────────────────────

func (f *Fanout) Subscribe(roomID string) {
	f.subscribe(roomChannel(roomID), func(ev core.Event) {
		f.engine.DeliverRemoteRoom(roomID, ev)
	})
}

func (f *Fanout) Unsubscribe(roomID string) {
	f.unsubscribe(roomChannel(roomID))
}

func (f *Fanout) SubscribeIdentity(identityID string) {
	f.subscribe(identityChannel(identityID), func(ev core.Event) {
		f.engine.DeliverToIdentity(identityID, ev)
	})
}

func (f *Fanout) UnsubscribeIdentity(identityID string) {
	f.unsubscribe(identityChannel(identityID))
}

// subscribe guarantees exactly one Redis subscription per channel no matter
// how many local memberships reference it; subsequent calls only bump the
// ref-counter.
func (f *Fanout) subscribe(channel string, deliver func(core.Event)) {
	f.mu.Lock()
	if e, ok := f.subs[channel]; ok {
		e.refCnt++
		f.mu.Unlock()
		return
	}

	// First local consumer → reserve the slot, then create the Redis SUB
	// and fan-in loop. SUBSCRIBE is a network round-trip and must not run
	// under f.mu, where it would stall every other channel's bookkeeping.
	ctx, cancel := context.WithCancel(context.Background())
	f.subs[channel] = &subEntry{refCnt: 1, cancel: cancel}
	f.mu.Unlock()

	go func() {
		ps := f.rdb.Subscribe(ctx, channel)
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed.
					return
				}
				ev, origin, err := f.decode(m.Payload)
				if err != nil {
					zap.L().Warn("fanout.decode", zap.String("channel", channel), zap.Error(err))
					continue
				}
				if origin == f.engine.InstanceID() {
					continue // local members already got it
				}
				deliver(ev)
			}
		}
	}()
}

// unsubscribe decrements the ref-counter and tears the Redis SUB down when
// the last local membership referencing the channel is gone.
func (f *Fanout) unsubscribe(channel string) {
	f.mu.Lock()
	e, ok := f.subs[channel]
	if !ok {
		f.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		f.mu.Unlock()
		return
	}
	delete(f.subs, channel)
	f.mu.Unlock()

	// Outside the lock → stop the fan-in goroutine.
	e.cancel()
}

func (f *Fanout) decode(payload string) (core.Event, string, error) {
	var frame busFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return nil, "", err
	}
	ev, err := core.DecodeEvent(frame.Event, frame.Body)
	if err != nil {
		return nil, "", err
	}
	return ev, frame.Origin, nil
}

func roomChannel(roomID string) string         { return "room:" + roomID + ":events" }
func identityChannel(identityID string) string { return "ident:" + identityID + ":events" }
