package core

import "errors"

var (
	ErrDuplicateConnection = errors.New("duplicate_connection")
	ErrUnknownConnection   = errors.New("unknown_connection")
	ErrNotAMember          = errors.New("not_a_member")
	ErrMissingTarget       = errors.New("missing_target")
	ErrEmptyMessage        = errors.New("empty_message")
	ErrUnknownRoomKind     = errors.New("unknown_room_kind")
	ErrUnknownEvent        = errors.New("unknown_event")
)

// ErrorCode maps an engine error onto the stable wire code carried by the
// "error" outbound event. Unrecognised errors collapse to "internal" so
// internals never leak to clients.
func ErrorCode(err error) string {
	for _, sentinel := range []error{
		ErrDuplicateConnection,
		ErrUnknownConnection,
		ErrNotAMember,
		ErrMissingTarget,
		ErrEmptyMessage,
		ErrUnknownRoomKind,
		ErrUnknownEvent,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal"
}
