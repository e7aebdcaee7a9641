package ws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"chatroomgo/internal/core"
)

func TestErrorReplyKeepsClassifiedMessage(t *testing.T) {
	err := fmt.Errorf("joining: %w", core.ErrNotAMember)
	code := errorCode(err)

	require.Equal(t, "not_a_member", code)
	require.Equal(t, err.Error(), errorMessage(err, code))
}

func TestErrorReplyHidesBackendDetail(t *testing.T) {
	err := fmt.Errorf("list members R: %w", errors.New("pq: connection refused on db-1.internal"))
	code := errorCode(err)

	require.Equal(t, "internal", code)
	require.Equal(t, "internal error", errorMessage(err, code))
}
