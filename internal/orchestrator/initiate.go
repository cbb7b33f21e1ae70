package orchestrator

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/identity"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/provider"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
)

type PaymentInput struct {
	Amount      int64
	Currency    payments.Currency
	Method      payments.Method
	Type        payments.Type
	Reference   string
	Client      string
	Phone       string
	Email       string
	Description string
	Metadata    map[string]any
	// RequireLink makes a provider failure an error of the call. The payment
	// is still created and returned alongside the error.
	RequireLink bool
}

type ReservationPaymentInput struct {
	ReservationID string
	Amount        int64
	// Method accepts the enum names and the mobile_money/card/bank_transfer aliases.
	Method      string
	PhoneNumber string
	RequireLink bool
}

// InitiatePayment persists a PENDING payment and then tries to attach a
// checkout link. Provider trouble never loses the payment record.
func (s *Service) InitiatePayment(ctx context.Context, in PaymentInput, who identity.Requester) (*payments.Payment, error) {
	// reservation payments carry checks this path does not make
	if _, ok := in.Metadata[payments.MetaReservationID]; ok {
		return nil, apperr.Validation(`"metadata.reservationId" is reserved; reservations are paid through InitiateForReservation`)
	}
	p := &payments.Payment{
		Amount:      in.Amount,
		Currency:    in.Currency,
		Method:      in.Method,
		Type:        in.Type,
		Reference:   in.Reference,
		Client:      in.Client,
		Phone:       in.Phone,
		Email:       in.Email,
		Description: in.Description,
		Metadata:    in.Metadata,
	}
	if err := s.resolvePayer(ctx, p, who); err != nil {
		return nil, err
	}
	s.applyDefaults(p)

	if err := s.create(ctx, p, payments.PrefixPayment); err != nil {
		return nil, err
	}
	return s.linkAfterCreate(ctx, p, in.RequireLink)
}

// InitiateForReservation starts the payment of a PENDING reservation. The
// payment insert and the reservation update are separate writes; if the
// second one is lost the payment is an orphan that RepairOrphans links later.
func (s *Service) InitiateForReservation(ctx context.Context, in ReservationPaymentInput, who identity.Requester) (*payments.Payment, error) {
	if in.ReservationID == "" {
		return nil, apperr.Validation(`"reservationId" is required`)
	}
	method, err := payments.ParseMethod(in.Method, s.defaultMethod())
	if err != nil {
		return nil, err
	}

	res, err := s.Reservations.FindByID(ctx, in.ReservationID)
	if err != nil {
		return nil, err
	}
	if !res.Payable() {
		return nil, reservations.NotPayableError(res.Status)
	}
	// fast path only; the store's pending index settles races
	if cur, err := s.Payments.FindPendingByReservation(ctx, res.ID); err != nil {
		return nil, err
	} else if cur != nil {
		return nil, payments.ErrOutstanding
	}

	amount := in.Amount
	if amount == 0 {
		amount = res.Amount
	}
	if amount < res.Amount {
		return nil, apperr.Newf(apperr.KindValidation, `"amount" must cover the reservation amount of %d XOF`, res.Amount)
	}
	meta := map[string]any{
		payments.MetaReservationID: res.ID,
		"paymentMethod":            in.Method,
	}
	if in.PhoneNumber != "" {
		meta["phoneNumber"] = in.PhoneNumber
	}
	phone := in.PhoneNumber
	if phone == "" {
		phone = res.ClientPhone
	}
	p := &payments.Payment{
		ReservationID: res.ID,
		Amount:        amount,
		Currency:      payments.CurrencyXOF,
		Method:        method,
		Type:          payments.TypePayment,
		Client:        "client-" + res.ID,
		Phone:         phone,
		Email:         res.ClientEmail,
		Metadata:      meta,
	}
	if who.Authenticated() {
		p.UserID = who.UserID
	}

	if err := s.create(ctx, p, payments.ReservationPrefix(res.ID)); err != nil {
		return nil, err
	}
	if _, err := s.Reservations.AttachPayment(ctx, res.ID, p.ID); err != nil {
		s.log().Error("reservation not linked to payment, left for reconciliation",
			"reservation_id", res.ID, "reference", p.Reference, "err", err)
	}
	return s.linkAfterCreate(ctx, p, in.RequireLink)
}

// RegenerateLink asks the provider again for a PENDING payment's link.
// Calling it repeatedly only overwrites the stored link.
func (s *Service) RegenerateLink(ctx context.Context, reference string, who identity.Requester) (*payments.Payment, error) {
	p, err := s.visiblePayment(ctx, reference, who, false)
	if err != nil {
		return nil, err
	}
	if p.Status != payments.StatusPending {
		return nil, apperr.Newf(apperr.KindInvalidTransition, "payment is %s, link can only be issued while PENDING", p.Status)
	}
	return s.attachLink(ctx, p)
}

func (s *Service) resolvePayer(ctx context.Context, p *payments.Payment, who identity.Requester) error {
	if !who.Authenticated() {
		return nil
	}
	p.UserID = who.UserID
	if s.Users == nil {
		return nil
	}
	u, err := s.Users.FindUser(ctx, who.UserID)
	if errors.Is(err, identity.ErrNotFound) {
		s.log().Warn("requester not in directory", "user_id", who.UserID)
		return nil
	}
	if err != nil {
		return err
	}
	if p.Client == "" {
		p.Client = u.FullName()
	}
	if p.Phone == "" {
		p.Phone = u.Phone
	}
	if p.Email == "" {
		p.Email = u.Email
	}
	return nil
}

func (s *Service) applyDefaults(p *payments.Payment) {
	if p.Method == "" {
		p.Method = s.defaultMethod()
	}
	if p.Currency == "" {
		p.Currency = payments.CurrencyXOF
	}
	if p.Type == "" {
		p.Type = payments.TypePayment
	}
}

// create inserts p, generating its reference when absent. A generated
// reference that collides is regenerated once; a caller-chosen one is not.
func (s *Service) create(ctx context.Context, p *payments.Payment, prefix string) error {
	generated := p.Reference == ""
	if generated {
		p.Reference = s.refs().NewReference(prefix)
	}
	err := s.Payments.Create(ctx, p)
	if generated && errors.Is(err, payments.ErrDuplicateReference) {
		s.log().Warn("generated reference collided, retrying", "reference", p.Reference)
		p.Reference = s.refs().NewReference(prefix)
		err = s.Payments.Create(ctx, p)
	}
	if err != nil {
		return err
	}
	s.log().Info("payment created", "reference", p.Reference, "method", p.Method, "amount", p.Amount)
	s.publishStatus(ctx, p)
	return nil
}

func (s *Service) linkAfterCreate(ctx context.Context, p *payments.Payment, requireLink bool) (*payments.Payment, error) {
	if !s.wantsLink(p) {
		return p, nil
	}
	linked, err := s.attachLink(ctx, p)
	if err != nil {
		if requireLink {
			return p, err
		}
		return p, nil
	}
	return linked, nil
}

func (s *Service) wantsLink(p *payments.Payment) bool {
	if s.Providers == nil {
		return false
	}
	return p.Type == payments.TypePaymentLink || s.Providers.Supports(p.Method)
}

func (s *Service) attachLink(ctx context.Context, p *payments.Payment) (*payments.Payment, error) {
	if s.Providers == nil {
		return p, provider.ErrNoAdapter
	}
	link, err := s.Providers.GenerateLink(ctx, provider.LinkRequest{
		Method:      p.Method,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Reference:   p.Reference,
		ClientLabel: p.Client,
	})
	if err != nil {
		s.log().Warn("checkout link unavailable", "reference", p.Reference, "method", p.Method,
			"kind", apperr.KindOf(err), "err", err)
		return p, err
	}
	updated, err := s.Payments.SetLink(ctx, p.ID, link)
	if err != nil {
		s.log().Error("store checkout link", "reference", p.Reference, "err", err)
		return p, err
	}
	s.invalidate(ctx, p.Reference)
	return updated, nil
}
