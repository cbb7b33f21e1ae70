package orchestrator

import (
	"context"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/identity"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/redisx"
)

// Verify returns the payment behind reference if the requester may see it.
// Payments outside the requester's scope read as not found.
func (s *Service) Verify(ctx context.Context, reference string, who identity.Requester) (*payments.Payment, error) {
	return s.visiblePayment(ctx, reference, who, true)
}

// visiblePayment reads through the status cache only when cached is set;
// callers about to write want the stored row.
func (s *Service) visiblePayment(ctx context.Context, reference string, who identity.Requester, cached bool) (*payments.Payment, error) {
	if reference == "" {
		return nil, apperr.Validation(`"reference" is required`)
	}
	var p *payments.Payment
	var err error
	if cached {
		p, err = s.lookup(ctx, reference)
	} else {
		p, err = s.Payments.FindByReference(ctx, reference)
	}
	if err != nil {
		return nil, err
	}
	if !who.Owns(p.UserID) {
		return nil, payments.ErrNotFound
	}
	return p, nil
}

func (s *Service) lookup(ctx context.Context, reference string) (*payments.Payment, error) {
	var cached payments.Payment
	hit, err := s.Cache.GetJSON(ctx, statusKey(reference), &cached)
	if err != nil {
		s.log().Warn("status cache read failed", "reference", reference, "err", err)
	}
	if hit {
		return &cached, nil
	}

	p, err := s.Payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	// a fill racing a transition could store the old row; final rows cannot go stale
	if !p.Status.Final() {
		return p, nil
	}
	if err := s.Cache.SetJSON(ctx, statusKey(reference), p, redisx.TTLStatusCache); err != nil {
		s.log().Warn("status cache write failed", "reference", reference, "err", err)
	}
	return p, nil
}

// PaymentsByUser lists a user's payments, newest first. Only admins may list
// someone else's.
func (s *Service) PaymentsByUser(ctx context.Context, userID string, who identity.Requester) ([]payments.Payment, error) {
	userID, err := scopedUser(userID, who, "payments")
	if err != nil {
		return nil, err
	}
	list, err := s.Payments.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []payments.Payment{}
	}
	return list, nil
}

func scopedUser(userID string, who identity.Requester, what string) (string, error) {
	if !who.Authenticated() {
		return "", apperr.Forbidden("authentication required")
	}
	if userID == "" {
		userID = who.UserID
	}
	if !who.IsAdmin() && userID != who.UserID {
		return "", apperr.Forbidden("not allowed to read another user's " + what)
	}
	return userID, nil
}
