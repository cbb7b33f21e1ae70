package orchestrator

import (
	"context"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

func (o Outcome) Status() (payments.Status, error) {
	switch o {
	case OutcomeSuccess:
		return payments.StatusCompleted, nil
	case OutcomeFailure:
		return payments.StatusFailed, nil
	}
	return "", apperr.Newf(apperr.KindValidation, "unknown callback outcome %q", o)
}

// OutcomeFromStatus maps the status field of a JSON provider callback.
func OutcomeFromStatus(status string) (Outcome, error) {
	switch payments.Status(status) {
	case payments.StatusCompleted:
		return OutcomeSuccess, nil
	case payments.StatusFailed:
		return OutcomeFailure, nil
	}
	switch Outcome(status) {
	case OutcomeSuccess, OutcomeFailure:
		return Outcome(status), nil
	}
	return "", apperr.Validation(`"status" must be COMPLETED or FAILED`)
}

// HandleCallback applies a provider outcome. Replaying the outcome a payment
// already has succeeds without side effects; a different outcome on a settled
// payment is refused and leaves it untouched.
func (s *Service) HandleCallback(ctx context.Context, reference string, outcome Outcome, transactionID string) (*payments.Payment, error) {
	if reference == "" {
		return nil, apperr.Validation(`"reference" is required`)
	}
	to, err := outcome.Status()
	if err != nil {
		return nil, err
	}
	p, err := s.Payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	updated, changed, err := s.transition(ctx, p, to, transactionID)
	switch {
	case err != nil:
		s.log().Warn("callback refused", "reference", reference, "status", p.Status, "outcome", outcome, "err", err)
		return nil, err
	case !changed:
		s.log().Info("duplicate callback", "reference", reference, "status", updated.Status, "outcome", outcome)
	default:
		s.log().Info("callback applied", "reference", reference, "status", updated.Status, "transaction_id", transactionID)
	}
	return updated, nil
}

// transition moves p to `to` through the ledger's compare-and-set. It
// reports changed=false when the payment already is in `to`, including when
// a concurrent writer got there first.
func (s *Service) transition(ctx context.Context, p *payments.Payment, to payments.Status, transactionID string) (*payments.Payment, bool, error) {
	if p.Status == to {
		s.settleReservation(ctx, p)
		return p, false, nil
	}
	updated, err := s.Payments.UpdateStatus(ctx, p.ID, to, transactionID)
	if apperr.IsKind(err, apperr.KindInvalidTransition) {
		cur, ferr := s.Payments.FindByID(ctx, p.ID)
		if ferr == nil && cur.Status == to {
			s.settleReservation(ctx, cur)
			return cur, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}

	s.invalidate(ctx, updated.Reference)
	s.publishStatus(ctx, updated)
	s.settleReservation(ctx, updated)
	return updated, true, nil
}

// settleReservation confirms the reservation of a COMPLETED payment. It runs
// on replays too, so a provider retry repairs a confirmation that failed the
// first time. Failures never undo the payment; the reconciler retries them.
func (s *Service) settleReservation(ctx context.Context, p *payments.Payment) {
	if p.Status != payments.StatusCompleted {
		return
	}
	if err := s.confirmReservation(ctx, p); err != nil {
		s.log().Error("reservation sync failed", "reference", p.Reference,
			"reservation_id", p.ReservationRef(), "err", err)
	}
}

// confirmReservation moves the correlated reservation to CONFIRMED and
// records the payment on it. Payments without a reservation are ignored, and
// a payment that does not cover the reservation never confirms it.
func (s *Service) confirmReservation(ctx context.Context, p *payments.Payment) error {
	resID := p.ReservationRef()
	if resID == "" || s.Reservations == nil {
		return nil
	}
	res, err := s.Reservations.FindByID(ctx, resID)
	if err != nil {
		return err
	}
	if res.Status == reservations.StatusConfirmed && res.PaymentID == p.ID {
		return nil
	}
	if p.Currency != payments.CurrencyXOF || p.Amount < res.Amount {
		return apperr.Newf(apperr.KindConflict, "payment %s (%d %s) does not cover reservation %s (%d %s)",
			p.Reference, p.Amount, p.Currency, res.ID, res.Amount, payments.CurrencyXOF)
	}
	res, err = s.Reservations.Confirm(ctx, resID, p.ID)
	if err != nil {
		return err
	}
	s.publishOnce(ctx, payments.EventReservationConfirmed, p.Reference, "reservation:"+res.ID+":"+p.ID,
		payments.ReservationConfirmedPayload{ReservationID: res.ID, PaymentID: p.ID, Reference: p.Reference})
	return nil
}
