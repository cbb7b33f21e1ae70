package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := NotFound("payment not found")
	wrapped := fmt.Errorf("verify: %w", base)

	require.Equal(t, KindNotFound, KindOf(wrapped))
	require.True(t, IsKind(wrapped, KindNotFound))
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestIs_MatchesSentinelByKindAndMessage(t *testing.T) {
	dup := Conflict("duplicate reference")

	require.ErrorIs(t, fmt.Errorf("create: %w", dup), dup)
	require.ErrorIs(t, Conflict("duplicate reference"), &Error{Kind: KindConflict})
	require.NotErrorIs(t, Conflict("outstanding payment"), dup)
}

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(KindProviderUnavailable, "wave checkout", cause)

	require.Equal(t, "wave checkout: dial tcp: timeout", err.Error())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "VALIDATION", (&Error{Kind: KindValidation}).Error())
}
