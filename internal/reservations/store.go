package reservations

import (
	"context"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
)

var ErrNotFound = apperr.NotFound("reservation not found")

// Store persists reservations. Status and payment linkage are written with
// conditional updates only.
type Store interface {
	Create(ctx context.Context, r *Reservation) error
	FindByID(ctx context.Context, id string) (*Reservation, error)
	FindByUser(ctx context.Context, userID string) ([]Reservation, error)
	UpdateStatus(ctx context.Context, id string, to Status) (*Reservation, error)
	// AttachPayment records the in-flight payment on a PENDING reservation.
	AttachPayment(ctx context.Context, id, paymentID string) (*Reservation, error)
	// Confirm moves PENDING to CONFIRMED and records the settling payment.
	// Confirming again with the same payment is a no-op.
	Confirm(ctx context.Context, id, paymentID string) (*Reservation, error)
	// LinkPayment sets paymentId only when none is recorded yet. It reports
	// whether this call wrote the link.
	LinkPayment(ctx context.Context, id, paymentID string) (bool, error)
}

func Validate(r *Reservation) error {
	switch {
	case r.StartDate.IsZero():
		return apperr.Validation(`"startDate" is required`)
	case r.Address == "":
		return apperr.Validation(`"address" is required`)
	case r.Amount <= 0:
		return apperr.Validation(`"amount" must be a positive number`)
	}
	return nil
}

func TransitionError(from, to Status) error {
	return apperr.Newf(apperr.KindInvalidTransition, "reservation cannot move from %s to %s", from, to)
}

// NotPayableError reports a reservation that can no longer take a payment.
func NotPayableError(s Status) error {
	return apperr.Newf(apperr.KindConflict, "reservation is %s", s)
}
