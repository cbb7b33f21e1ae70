package payments

import (
	"context"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
)

var (
	ErrNotFound           = apperr.NotFound("payment not found")
	ErrDuplicateReference = apperr.Conflict("duplicate payment reference")
	ErrOutstanding        = apperr.Conflict("reservation already has a pending payment")
)

// Ledger persists payments. Status writes are compare-and-set against the
// transition table; no caller writes status any other way.
type Ledger interface {
	Create(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id string) (*Payment, error)
	FindByReference(ctx context.Context, ref string) (*Payment, error)
	FindByUser(ctx context.Context, userID string) ([]Payment, error)
	FindPendingByReservation(ctx context.Context, reservationID string) (*Payment, error)
	UpdateStatus(ctx context.Context, id string, to Status, transactionID string) (*Payment, error)
	SetLink(ctx context.Context, id, link string) (*Payment, error)
	// ListOrphans returns the payments whose reservation side was lost:
	// PENDING/COMPLETED payments whose reservation points at no payment, and
	// COMPLETED payments whose linked reservation is still PENDING.
	ListOrphans(ctx context.Context, limit int) ([]Payment, error)
}

// Validate checks the creation invariants shared by every Ledger.
func Validate(p *Payment) error {
	switch {
	case p.Amount <= 0:
		return apperr.Validation(`"amount" must be a positive number`)
	case !ValidCurrency(p.Currency):
		return apperr.Validation(`"currency" must be one of XOF, USD, EUR`)
	case !ValidMethod(p.Method):
		return apperr.Validation(`"method" must be one of OM, WAVE, CARD, BANK_TRANSFER`)
	case p.Method == MethodOM && p.Currency != CurrencyXOF:
		return apperr.Validation(`method OM only accepts currency XOF`)
	case !ValidType(p.Type):
		return apperr.Validation(`"type" must be one of payment, refund, payment_link`)
	case p.Client == "":
		return apperr.Validation(`"client" is required`)
	case p.Reference == "":
		return apperr.Validation(`"reference" is required`)
	}
	return nil
}

// TransitionError reports a refused status change.
func TransitionError(from, to Status) error {
	return apperr.Newf(apperr.KindInvalidTransition, "payment cannot move from %s to %s", from, to)
}
