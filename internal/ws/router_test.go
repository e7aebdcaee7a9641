package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"chatroomgo/internal/core"
)

func TestRouterDispatchesTypedHandler(t *testing.T) {
	r := NewRouter()
	Register(r, "chat/join",
		func(_ context.Context, _ *session, req JoinBody) (AckBody, error) {
			require.Equal(t, "R", req.RoomID)
			return AckBody{}, nil
		})

	res, err := r.dispatch(context.Background(), &session{},
		Envelope{Event: "chat/join", Body: json.RawMessage(`{"room_id":"R"}`)})
	require.NoError(t, err)
	require.Equal(t, AckBody{}, res)
}

func TestRouterRejectsUnknownEvent(t *testing.T) {
	r := NewRouter()
	_, err := r.dispatch(context.Background(), &session{},
		Envelope{Event: "chat/unknown"})
	require.ErrorIs(t, err, core.ErrUnknownEvent)
}

func TestRouterRejectsMalformedBody(t *testing.T) {
	r := NewRouter()
	Register(r, "chat/join",
		func(_ context.Context, _ *session, _ JoinBody) (AckBody, error) {
			return AckBody{}, nil
		})

	_, err := r.dispatch(context.Background(), &session{},
		Envelope{Event: "chat/join", Body: json.RawMessage(`{"room_id":42}`)})
	require.ErrorIs(t, err, errMalformedEvent)
	require.Equal(t, "malformed_event", errorCode(err))
}

func TestRouterEmptyBodyIsZeroValueRequest(t *testing.T) {
	r := NewRouter()
	Register(r, "chat/leave",
		func(_ context.Context, _ *session, req LeaveBody) (AckBody, error) {
			require.Empty(t, req.RoomID)
			return AckBody{}, nil
		})

	_, err := r.dispatch(context.Background(), &session{}, Envelope{Event: "chat/leave"})
	require.NoError(t, err)
}
