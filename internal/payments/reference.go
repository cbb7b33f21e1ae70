package payments

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixPayment     = "PAY"
	PrefixReservation = "RES"
)

// ReferenceGenerator builds <prefix>-<random>-<yyyyMMddHHmmss> tokens.
// The random part carries the uniqueness; the timestamp is for humans.
type ReferenceGenerator struct {
	Location *time.Location
	Now      func() time.Time
	Random   func() string
}

func NewReferenceGenerator(loc *time.Location) *ReferenceGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &ReferenceGenerator{Location: loc}
}

func (g *ReferenceGenerator) NewReference(prefix string) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	rnd := randomPart
	if g.Random != nil {
		rnd = g.Random
	}
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}
	return prefix + "-" + rnd() + "-" + now().In(loc).Format("20060102150405")
}

// ReservationPrefix namespaces a reference by the first 8 chars of the reservation id.
func ReservationPrefix(reservationID string) string {
	id := strings.ReplaceAll(reservationID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return PrefixReservation + "-" + strings.ToUpper(id)
}

func randomPart() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
