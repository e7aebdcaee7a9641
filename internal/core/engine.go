package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const busPublishTimeout = 2 * time.Second

// Store is the persistence collaborator as seen from the router: best-effort
// durability for delivered messages plus the durable membership list used to
// authorize named-room joins. Append failures degrade history, never live
// delivery.
type Store interface {
	AppendMessage(ctx context.Context, msg MessageEvent) error
	ListMembers(ctx context.Context, roomID string) ([]string, error)
}

// Bus is the cross-process fan-out extension point. A nil bus means
// single-process deployment. Subscribe/Unsubscribe calls are refcounted by
// the implementation; the engine reports every live-membership edge so the
// bus always mirrors the set of rooms this process holds members of.
type Bus interface {
	PublishRoom(ctx context.Context, roomID string, ev Event) error
	PublishIdentity(ctx context.Context, identityID string, ev Event) error
	Subscribe(roomID string)
	Unsubscribe(roomID string)
	SubscribeIdentity(identityID string)
	UnsubscribeIdentity(identityID string)
}

// Engine is the event router: the single entry point for inbound client
// events. It owns the registry, membership index, presence tracker and
// sequencer for one process and is constructed at boot and injected where
// needed — no ambient singletons.
type Engine struct {
	log        *zap.Logger
	store      Store
	bus        Bus
	instanceID string

	registry *ConnectionRegistry
	rooms    *MembershipIndex
	presence *PresenceTracker
	seq      *Sequencer

	// One dispatch mutex per room: sequence assignment, recipient
	// resolution and enqueue happen atomically with respect to other sends
	// in the same room. Unrelated rooms proceed in parallel.
	dispatch sync.Map // roomID -> *sync.Mutex

	// Bus publishes go through one FIFO queue drained by a single
	// goroutine, so remote processes observe events in the same order the
	// sequencer assigned them. Enqueueing is a slice append and is safe to
	// do while a room dispatch mutex is held.
	pubMu    sync.Mutex
	pubQueue []publishJob
	pubWake  chan struct{}
}

type publishJob struct {
	roomID   string // set for room-scoped events
	identity string // set for identity-addressed events
	ev       Event
}

func NewEngine(store Store, log *zap.Logger) *Engine {
	rooms := NewMembershipIndex()
	return &Engine{
		log:        log,
		store:      store,
		instanceID: uuid.NewString(),
		registry:   NewConnectionRegistry(rooms),
		rooms:      rooms,
		presence:   NewPresenceTracker(),
		seq:        NewSequencer(),
		pubWake:    make(chan struct{}, 1),
	}
}

// UseBus wires the cross-process bus and starts the publisher goroutine.
// Must be called before the first Attach.
func (e *Engine) UseBus(bus Bus) {
	e.bus = bus
	go e.publishLoop()
}

// InstanceID identifies this engine on the bus so it can drop its own
// echoes.
func (e *Engine) InstanceID() string { return e.instanceID }

// ──────────────────────────── Connection lifecycle ───────────────────────────

// Attach registers a verified connection, implicitly joins it to the public
// room and emits presence/online when this is the identity's first open
// connection.
func (e *Engine) Attach(c Conn) error {
	if err := e.registry.Register(c); err != nil {
		return err
	}
	e.joinRoom(c.ID(), PublicRoomID)

	ident := c.Identity().ID
	if e.bus != nil {
		e.bus.SubscribeIdentity(ident)
	}
	if e.presence.inc(ident) {
		e.fanPresence(ident, []string{PublicRoomID},
			PresenceEvent{Identity: ident, Online: true})
	}
	return nil
}

// Detach removes the connection from every index. After Detach returns no
// further event is routed to the connection; detaching an unknown id is a
// no-op. Emits presence/offline when the identity's last connection closed.
func (e *Engine) Detach(connID string) {
	ident, rooms, ok := e.registry.Unregister(connID)
	if !ok {
		return
	}
	if e.bus != nil {
		for _, roomID := range rooms {
			e.bus.Unsubscribe(roomID)
		}
		e.bus.UnsubscribeIdentity(ident.ID)
	}
	if e.presence.dec(ident.ID) {
		now := time.Now().UTC()
		e.fanPresence(ident.ID, rooms,
			PresenceEvent{Identity: ident.ID, LastSeen: &now})
	}
}

// ──────────────────────────── Room operations ────────────────────────────────

// HandleJoin adds the connection to a room. Named rooms are authorized
// against the durable membership list; public and private rooms carry
// implicit membership and skip the check.
func (e *Engine) HandleJoin(ctx context.Context, c Conn, roomID string) error {
	if roomID == "" {
		return ErrUnknownRoomKind
	}
	if roomID != PublicRoomID && !IsPrivateRoom(roomID) {
		allowed, err := e.authorizeJoin(ctx, c.Identity().ID, roomID)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrNotAMember
		}
	}

	added, err := e.joinRoom(c.ID(), roomID)
	if err != nil {
		return err
	}
	if added && roomID != PublicRoomID && !IsPrivateRoom(roomID) {
		ev := MemberEvent{RoomID: roomID, Identity: c.Identity().ID, Joined: true}
		e.fanToRoom(roomID, ev, c.ID())
		e.publishRoom(roomID, ev)
	}
	return nil
}

// HandleLeave removes the connection from a room; a no-op when it is not a
// member.
func (e *Engine) HandleLeave(c Conn, roomID string) {
	if !e.leaveRoom(c.ID(), roomID) {
		return
	}
	if roomID != PublicRoomID && !IsPrivateRoom(roomID) {
		ev := MemberEvent{RoomID: roomID, Identity: c.Identity().ID}
		e.fanToRoom(roomID, ev, c.ID())
		e.publishRoom(roomID, ev)
	}
}

// ──────────────────────────── Send & typing ──────────────────────────────────

// HandleSend resolves the target room, stamps the next sequence number and
// fans the message out. Sequence assignment, recipient resolution, enqueue
// and bus-publish queueing run under the room's dispatch lock; persistence
// and the publish I/O itself happen off the critical path.
func (e *Engine) HandleSend(ctx context.Context, c Conn, ev SendEvent) (MessageEvent, error) {
	content := strings.TrimSpace(ev.Content)
	if content == "" {
		return MessageEvent{}, ErrEmptyMessage
	}

	ident := c.Identity()
	var roomID string
	switch ev.Kind {
	case RoomPublic:
		roomID = PublicRoomID
		e.joinRoom(c.ID(), roomID) // implicit membership, idempotent
	case RoomPrivate:
		if ev.Target == "" || ev.Target == ident.ID {
			return MessageEvent{}, ErrMissingTarget
		}
		roomID = PrivateRoomID(ident.ID, ev.Target)
		// Both participants are implicit members: materialize entries for
		// the sender and every local device of the target so later typing
		// and presence resolution see them.
		e.joinRoom(c.ID(), roomID)
		for _, tc := range e.registry.ConnectionsForIdentity(ev.Target) {
			e.joinRoom(tc.ID(), roomID)
		}
	case RoomNamed:
		if ev.Target == "" {
			return MessageEvent{}, ErrMissingTarget
		}
		roomID = ev.Target
		if !e.registry.IsMember(c.ID(), roomID) {
			return MessageEvent{}, ErrNotAMember
		}
	default:
		return MessageEvent{}, ErrUnknownRoomKind
	}

	mu := e.roomLock(roomID)
	mu.Lock()
	msg := MessageEvent{
		RoomID:     roomID,
		Seq:        e.seq.Next(roomID),
		Sender:     ident.ID,
		SenderName: ident.Name,
		Content:    content,
		ServerTime: time.Now().UTC(),
	}
	slow := e.deliver(e.rooms.MembersOf(roomID), msg, "")
	// Queue the bus publish while the dispatch mutex is still held so the
	// publisher stream carries the room's messages in sequence order.
	if ev.Kind == RoomPrivate {
		e.publishIdentities(msg, ev.Target, ident.ID)
	} else {
		e.publishRoom(roomID, msg)
	}
	mu.Unlock()

	e.kick(slow)
	e.persist(msg)
	return msg, nil
}

// HandleTyping fans a typing notice to the room. Not sequenced, not
// persisted; latest-wins semantics.
func (e *Engine) HandleTyping(c Conn, roomID string, isTyping bool) error {
	if roomID == "" {
		return ErrUnknownRoomKind
	}
	if roomID == PublicRoomID {
		e.joinRoom(c.ID(), roomID)
	} else if !e.registry.IsMember(c.ID(), roomID) {
		return ErrNotAMember
	}

	ident := c.Identity().ID
	ev := TypingEvent{RoomID: roomID, Identity: ident, IsTyping: isTyping}
	slow := e.deliver(e.rooms.MembersOf(roomID), ev, ident)
	e.kick(slow)
	e.publishRoom(roomID, ev)
	return nil
}

// ──────────────────────────── Bus re-injection ───────────────────────────────

// DeliverRemoteRoom pushes an event originating on another process to the
// local members of roomID. Sequencing happened at the origin.
func (e *Engine) DeliverRemoteRoom(roomID string, ev Event) {
	e.kick(e.deliver(e.rooms.MembersOf(roomID), ev, ""))
}

// DeliverToIdentity pushes an identity-addressed remote event to every local
// device of the identity. Private messages also materialize the implicit
// membership entries, same as a local send would.
func (e *Engine) DeliverToIdentity(identityID string, ev Event) {
	conns := e.registry.ConnectionsForIdentity(identityID)
	if msg, ok := ev.(MessageEvent); ok && IsPrivateRoom(msg.RoomID) {
		for _, c := range conns {
			e.joinRoom(c.ID(), msg.RoomID)
		}
	}
	e.kick(e.deliver(conns, ev, ""))
}

// ──────────────────────────── Internals ──────────────────────────────────────

func (e *Engine) roomLock(roomID string) *sync.Mutex {
	mu, _ := e.dispatch.LoadOrStore(roomID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// joinRoom wraps the registry call and keeps the bus room subscription
// refcount in step with actual membership edges.
func (e *Engine) joinRoom(connID, roomID string) (bool, error) {
	added, err := e.registry.JoinRoom(connID, roomID)
	if err != nil {
		return false, err
	}
	if added && e.bus != nil {
		e.bus.Subscribe(roomID)
	}
	return added, nil
}

func (e *Engine) leaveRoom(connID, roomID string) bool {
	removed := e.registry.LeaveRoom(connID, roomID)
	if removed && e.bus != nil {
		e.bus.Unsubscribe(roomID)
	}
	return removed
}

func (e *Engine) authorizeJoin(ctx context.Context, identityID, roomID string) (bool, error) {
	members, err := e.store.ListMembers(ctx, roomID)
	if err != nil {
		// Fail closed: without the durable list we cannot prove membership.
		return false, fmt.Errorf("list members %s: %w", roomID, err)
	}
	for _, m := range members {
		if m == identityID {
			return true, nil
		}
	}
	return false, nil
}

// deliver enqueues ev on every connection, at most once each, skipping
// connections owned by excludeIdentity. Returns the connections whose
// outbound queue was full.
func (e *Engine) deliver(conns []Conn, ev Event, excludeIdentity string) []Conn {
	var slow []Conn
	for _, c := range conns {
		if excludeIdentity != "" && c.Identity().ID == excludeIdentity {
			continue
		}
		if !c.Enqueue(ev) {
			slow = append(slow, c)
		}
	}
	return slow
}

// fanToRoom delivers ev to the room's members except the given connection.
func (e *Engine) fanToRoom(roomID string, ev Event, excludeConnID string) {
	var slow []Conn
	for _, c := range e.rooms.MembersOf(roomID) {
		if c.ID() == excludeConnID {
			continue
		}
		if !c.Enqueue(ev) {
			slow = append(slow, c)
		}
	}
	e.kick(slow)
}

// fanPresence delivers a presence transition to every connection sharing a
// room with the identity, exactly once per connection, never to the
// identity's own devices.
func (e *Engine) fanPresence(identityID string, rooms []string, ev Event) {
	seen := make(map[string]struct{})
	var slow []Conn
	for _, roomID := range rooms {
		for _, c := range e.rooms.MembersOf(roomID) {
			if c.Identity().ID == identityID {
				continue
			}
			if _, dup := seen[c.ID()]; dup {
				continue
			}
			seen[c.ID()] = struct{}{}
			if !c.Enqueue(ev) {
				slow = append(slow, c)
			}
		}
	}
	e.kick(slow)
}

// kick disconnects slow consumers outside any engine lock. The transport's
// close path calls Detach, which prunes membership and re-evaluates
// presence like a normal disconnect.
func (e *Engine) kick(slow []Conn) {
	for _, c := range slow {
		e.log.Warn("ws.slow_consumer",
			zap.String("conn", c.ID()),
			zap.String("identity", c.Identity().ID))
		c.Kick("slow_consumer")
	}
}

func (e *Engine) persist(msg MessageEvent) {
	if err := e.store.AppendMessage(context.Background(), msg); err != nil {
		// Live delivery already happened; history is degraded, chat is not.
		e.log.Warn("store.append_degraded",
			zap.String("room", msg.RoomID),
			zap.Uint64("seq", msg.Seq),
			zap.Error(err))
	}
}

func (e *Engine) publishRoom(roomID string, ev Event) {
	if e.bus == nil {
		return
	}
	e.enqueuePublish(publishJob{roomID: roomID, ev: ev})
}

func (e *Engine) publishIdentities(ev Event, identityIDs ...string) {
	if e.bus == nil {
		return
	}
	for _, id := range identityIDs {
		e.enqueuePublish(publishJob{identity: id, ev: ev})
	}
}

func (e *Engine) enqueuePublish(job publishJob) {
	e.pubMu.Lock()
	e.pubQueue = append(e.pubQueue, job)
	e.pubMu.Unlock()
	select {
	case e.pubWake <- struct{}{}:
	default: // publisher already signalled
	}
}

// publishLoop is the single publisher: it drains the queue in FIFO order so
// the bus sees events exactly as they were enqueued.
func (e *Engine) publishLoop() {
	for range e.pubWake {
		for {
			e.pubMu.Lock()
			if len(e.pubQueue) == 0 {
				e.pubMu.Unlock()
				break
			}
			job := e.pubQueue[0]
			e.pubQueue = e.pubQueue[1:]
			e.pubMu.Unlock()
			e.publishOne(job)
		}
	}
}

func (e *Engine) publishOne(job publishJob) {
	ctx, cancel := context.WithTimeout(context.Background(), busPublishTimeout)
	defer cancel()
	if job.roomID != "" {
		if err := e.bus.PublishRoom(ctx, job.roomID, job.ev); err != nil {
			e.log.Warn("bus.publish_room", zap.String("room", job.roomID), zap.Error(err))
		}
		return
	}
	if err := e.bus.PublishIdentity(ctx, job.identity, job.ev); err != nil {
		e.log.Warn("bus.publish_identity", zap.String("identity", job.identity), zap.Error(err))
	}
}
