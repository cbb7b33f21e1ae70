package payments

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewReference_Format(t *testing.T) {
	dakar := time.FixedZone("GMT", 0)
	g := &ReferenceGenerator{
		Location: dakar,
		Now:      func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) },
		Random:   func() string { return "AB12CD34" },
	}
	require.Equal(t, "PAY-AB12CD34-20250304050607", g.NewReference(PrefixPayment))
}

func TestNewReference_DefaultRandomIsUnique(t *testing.T) {
	g := NewReferenceGenerator(nil)
	re := regexp.MustCompile(`^PAY-[0-9A-F]{8}-\d{14}$`)

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		ref := g.NewReference(PrefixPayment)
		require.Regexp(t, re, ref)
		require.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestReservationPrefix(t *testing.T) {
	require.Equal(t, "RES-0F8FAD5B", ReservationPrefix("0f8fad5b-d9cb-469f-a165-70867728950e"))
	require.Equal(t, "RES-ABC", ReservationPrefix("abc"))
}
