package orchestrator

import (
	"context"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/identity"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
)

// UpdatePaymentStatus is the administrative status change. It goes through
// the same transition table as callbacks.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, to payments.Status, transactionID string, who identity.Requester) (*payments.Payment, error) {
	if !who.IsAdmin() {
		return nil, apperr.Forbidden("admin only")
	}
	if !to.Valid() {
		return nil, apperr.Validation(`"status" must be one of PENDING, COMPLETED, FAILED, REFUNDED, CANCELLED`)
	}
	p, err := s.Payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, changed, err := s.transition(ctx, p, to, transactionID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.log().Info("payment status updated", "reference", updated.Reference, "status", updated.Status, "by", who.UserID)
	}
	return updated, nil
}

// CancelPayment abandons a PENDING payment. Owners and admins only.
func (s *Service) CancelPayment(ctx context.Context, reference string, who identity.Requester) (*payments.Payment, error) {
	p, err := s.visiblePayment(ctx, reference, who, false)
	if err != nil {
		return nil, err
	}
	updated, _, err := s.transition(ctx, p, payments.StatusCancelled, "")
	return updated, err
}

// RefundPayment marks a COMPLETED payment refunded. Money movement happens
// outside this service.
func (s *Service) RefundPayment(ctx context.Context, reference string, who identity.Requester) (*payments.Payment, error) {
	if !who.IsAdmin() {
		return nil, apperr.Forbidden("admin only")
	}
	p, err := s.Payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	updated, _, err := s.transition(ctx, p, payments.StatusRefunded, "")
	return updated, err
}
