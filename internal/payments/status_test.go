package payments

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusCompleted, StatusRefunded, true},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, StatusRefunded, false},
		{StatusPending, StatusPending, false},
	}
	for _, c := range cases {
		require.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestSources(t *testing.T) {
	require.Equal(t, []Status{StatusPending}, Sources(StatusCompleted))
	require.Equal(t, []Status{StatusCompleted}, Sources(StatusRefunded))
	require.Empty(t, Sources(StatusPending))
}

func TestTerminal(t *testing.T) {
	require.False(t, StatusPending.Terminal())
	require.True(t, StatusCompleted.Terminal())
	require.True(t, StatusFailed.Terminal())
	require.False(t, Status("BOGUS").Terminal())
}

func TestParseMethod(t *testing.T) {
	cases := map[string]Method{
		"":              MethodWave,
		"mobile_money":  MethodWave,
		"card":          MethodCard,
		"bank_transfer": MethodBankTransfer,
		"om":            MethodOM,
		"WAVE":          MethodWave,
	}
	for raw, want := range cases {
		got, err := ParseMethod(raw, MethodWave)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseMethod("paypal", MethodWave)
	require.Error(t, err)
}

func TestFinal(t *testing.T) {
	require.False(t, StatusPending.Final())
	require.False(t, StatusCompleted.Final(), "a completed payment can still be refunded")
	require.True(t, StatusFailed.Final())
	require.True(t, StatusRefunded.Final())
	require.True(t, StatusCancelled.Final())
	require.False(t, Status("BOGUS").Final())
}
