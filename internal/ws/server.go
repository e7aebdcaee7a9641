package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatroomgo/internal/auth"
	"chatroomgo/internal/core"
)

const (
	maxFrameSize    = 4096
	dispatchTimeout = 1900 * time.Millisecond
)

// Options tune per-connection behavior.
type Options struct {
	SendQueueSize   int
	TypingBurst     float64
	TypingPerSecond float64
}

// WsServer owns the websocket side: handshake + auth, the reader loop per
// connection and the inbound event router. All routing decisions live in
// the core engine; this layer only encodes/decodes frames.
type WsServer struct {
	engine   *core.Engine
	verifier auth.Verifier
	router   *Router
	opts     Options
	upgrader websocket.Upgrader
}

// session is the per-connection state handed to event handlers.
type session struct {
	conn   *clientConn
	typing *tokenBucket
}

func NewWsServer(engine *core.Engine, verifier auth.Verifier, opts Options) *WsServer {
	srv := &WsServer{
		engine:   engine,
		verifier: verifier,
		router:   NewRouter(),
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
		},
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	credential := ginCtx.Query("token")
	if credential == "" {
		credential = ginCtx.GetHeader("Authorization")
	}
	identity, err := s.verifier.Verify(credential)
	if err != nil {
		ginCtx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
		return
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxFrameSize)

	// ─────────────────── Client attached ────────────────────────
	conn := newClientConn(uuid.NewString(), identity, rawConn, s.opts.SendQueueSize)
	if err := s.engine.Attach(conn); err != nil {
		conn.close(websocket.CloseInternalServerErr, core.ErrorCode(err))
		return
	}

	go conn.writePump()
	go s.reader(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 chat/join ------------------------------------------------------------
	Register(
		s.router,
		"chat/join",
		func(ctx context.Context, sess *session, req JoinBody) (AckBody, error) {
			return AckBody{}, s.engine.HandleJoin(ctx, sess.conn, req.RoomID)
		},
	)

	// 🔹 chat/leave -----------------------------------------------------------
	Register(
		s.router,
		"chat/leave",
		func(_ context.Context, sess *session, req LeaveBody) (AckBody, error) {
			s.engine.HandleLeave(sess.conn, req.RoomID)
			return AckBody{}, nil
		},
	)

	// 🔹 chat/send ------------------------------------------------------------
	Register(
		s.router,
		"chat/send",
		func(ctx context.Context, sess *session, req SendBody) (SendAck, error) {
			msg, err := s.engine.HandleSend(ctx, sess.conn, core.SendEvent{
				Kind:    core.RoomKind(req.Kind),
				Target:  req.Target,
				Content: req.Content,
			})
			if err != nil {
				return SendAck{}, err
			}
			return SendAck{RoomID: msg.RoomID, Seq: msg.Seq}, nil
		},
	)

	// 🔹 chat/typing ----------------------------------------------------------
	Register(
		s.router,
		"chat/typing",
		func(_ context.Context, sess *session, req TypingBody) (AckBody, error) {
			if !sess.typing.allow() {
				return AckBody{}, nil // over the limit: dropped, not an error
			}
			return AckBody{}, s.engine.HandleTyping(sess.conn, req.RoomID, req.IsTyping)
		},
	)
}

func (s *WsServer) reader(conn *clientConn) {
	defer func() {
		s.engine.Detach(conn.ID())
		conn.close(websocket.CloseNormalClosure, "")
	}()

	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})
	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))

	sess := &session{
		conn:   conn,
		typing: newTokenBucket(s.opts.TypingBurst, s.opts.TypingPerSecond),
	}

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}
		_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		res, err := s.router.dispatch(ctx, sess, env)
		cancel()

		// ---- error -> {"event":"error", "body":{...}} ---------------
		if err != nil {
			code := errorCode(err)
			conn.writeJSON(map[string]any{
				"event": "error",
				"body":  ErrorBody{Code: code, Message: errorMessage(err, code)},
			})
			continue
		}

		// ---- success -> {"event":"<evt>-ack", "body":{...}} --------
		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		conn.writeJSON(reply)
	}
}

func errorCode(err error) string {
	if errors.Is(err, errMalformedEvent) {
		return "malformed_event"
	}
	return core.ErrorCode(err)
}

// errorMessage picks the client-facing text. Unclassified failures carry
// backend detail (SQL errors, hostnames) in err.Error(), so those get a
// generic message.
func errorMessage(err error, code string) string {
	if code == "internal" {
		return "internal error"
	}
	return err.Error()
}
