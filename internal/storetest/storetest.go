// Package storetest holds in-memory stores with the same conditional-write
// semantics as the Postgres repositories, for service and handler tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/identity"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
	"github.com/google/uuid"
)

type MemLedger struct {
	mu   sync.Mutex
	rows map[string]*payments.Payment
	// Reservations backs ListOrphans; nil means there are no orphans.
	Reservations *MemReservations
	// CreateErr, when set, fails every Create.
	CreateErr error
	// SetLinkErr, when set, fails every SetLink.
	SetLinkErr error
}

var _ payments.Ledger = (*MemLedger)(nil)

func NewLedger() *MemLedger {
	return &MemLedger{rows: map[string]*payments.Payment{}}
}

func clonePayment(p *payments.Payment) *payments.Payment {
	c := *p
	c.Metadata = make(map[string]any, len(p.Metadata))
	for k, v := range p.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

func (l *MemLedger) Create(_ context.Context, p *payments.Payment) error {
	if l.CreateErr != nil {
		return l.CreateErr
	}
	p.Status = payments.StatusPending
	if err := payments.Validate(p); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	p.ReservationID = p.ReservationRef()
	for _, row := range l.rows {
		if row.Reference == p.Reference {
			return payments.ErrDuplicateReference
		}
		if p.ReservationID != "" && row.ReservationID == p.ReservationID && row.Status == payments.StatusPending {
			return payments.ErrOutstanding
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	l.rows[p.ID] = clonePayment(p)
	return nil
}

func (l *MemLedger) FindByID(_ context.Context, id string) (*payments.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.rows[id]
	if !ok {
		return nil, payments.ErrNotFound
	}
	return clonePayment(p), nil
}

func (l *MemLedger) FindByReference(_ context.Context, ref string) (*payments.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.rows {
		if p.Reference == ref {
			return clonePayment(p), nil
		}
	}
	return nil, payments.ErrNotFound
}

func (l *MemLedger) FindByUser(_ context.Context, userID string) ([]payments.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []payments.Payment
	for _, p := range l.rows {
		if p.UserID == userID {
			out = append(out, *clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (l *MemLedger) FindPendingByReservation(_ context.Context, reservationID string) (*payments.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.rows {
		if p.ReservationID == reservationID && p.Status == payments.StatusPending {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (l *MemLedger) UpdateStatus(_ context.Context, id string, to payments.Status, transactionID string) (*payments.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.rows[id]
	if !ok {
		return nil, payments.ErrNotFound
	}
	if !payments.CanTransition(p.Status, to) {
		return nil, payments.TransitionError(p.Status, to)
	}
	p.Status = to
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	p.UpdatedAt = time.Now().UTC()
	return clonePayment(p), nil
}

func (l *MemLedger) SetLink(_ context.Context, id, link string) (*payments.Payment, error) {
	if l.SetLinkErr != nil {
		return nil, l.SetLinkErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.rows[id]
	if !ok {
		return nil, payments.ErrNotFound
	}
	p.PaymentLink = link
	p.UpdatedAt = time.Now().UTC()
	return clonePayment(p), nil
}

func (l *MemLedger) ListOrphans(_ context.Context, limit int) ([]payments.Payment, error) {
	if l.Reservations == nil {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []payments.Payment
	for _, p := range l.rows {
		if p.ReservationID == "" || (p.Status != payments.StatusPending && p.Status != payments.StatusCompleted) {
			continue
		}
		res, ok := l.Reservations.get(p.ReservationID)
		if !ok {
			continue
		}
		unlinked := res.PaymentID == ""
		unconfirmed := res.PaymentID == p.ID && p.Status == payments.StatusCompleted &&
			res.Status == reservations.StatusPending
		if unlinked || unconfirmed {
			out = append(out, *clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Put stores p as-is, bypassing creation rules. For seeding test state.
func (l *MemLedger) Put(p payments.Payment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	l.rows[p.ID] = clonePayment(&p)
}

func (l *MemLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

type MemReservations struct {
	mu   sync.Mutex
	rows map[string]*reservations.Reservation
	// ConfirmErr and AttachErr inject failures into the payment linkage writes.
	ConfirmErr error
	AttachErr  error
}

var _ reservations.Store = (*MemReservations)(nil)

func NewReservations() *MemReservations {
	return &MemReservations{rows: map[string]*reservations.Reservation{}}
}

func (s *MemReservations) get(id string) (reservations.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return reservations.Reservation{}, false
	}
	return *r, true
}

func (s *MemReservations) Create(_ context.Context, r *reservations.Reservation) error {
	if err := reservations.Validate(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Status = reservations.StatusPending
	r.PaymentID = ""
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	c := *r
	s.rows[r.ID] = &c
	return nil
}

func (s *MemReservations) FindByID(_ context.Context, id string) (*reservations.Reservation, error) {
	r, ok := s.get(id)
	if !ok {
		return nil, reservations.ErrNotFound
	}
	return &r, nil
}

func (s *MemReservations) FindByUser(_ context.Context, userID string) ([]reservations.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservations.Reservation
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemReservations) UpdateStatus(_ context.Context, id string, to reservations.Status) (*reservations.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, reservations.ErrNotFound
	}
	if !reservations.CanTransition(r.Status, to) {
		return nil, reservations.TransitionError(r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	c := *r
	return &c, nil
}

func (s *MemReservations) AttachPayment(_ context.Context, id, paymentID string) (*reservations.Reservation, error) {
	if s.AttachErr != nil {
		return nil, s.AttachErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, reservations.ErrNotFound
	}
	if r.Status != reservations.StatusPending {
		return nil, reservations.NotPayableError(r.Status)
	}
	r.PaymentID = paymentID
	r.UpdatedAt = time.Now().UTC()
	c := *r
	return &c, nil
}

func (s *MemReservations) Confirm(_ context.Context, id, paymentID string) (*reservations.Reservation, error) {
	if s.ConfirmErr != nil {
		return nil, s.ConfirmErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, reservations.ErrNotFound
	}
	switch {
	case r.Status == reservations.StatusPending:
	case r.Status == reservations.StatusConfirmed && r.PaymentID == paymentID:
	default:
		return nil, reservations.TransitionError(r.Status, reservations.StatusConfirmed)
	}
	r.Status = reservations.StatusConfirmed
	r.PaymentID = paymentID
	r.UpdatedAt = time.Now().UTC()
	c := *r
	return &c, nil
}

func (s *MemReservations) LinkPayment(_ context.Context, id, paymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.PaymentID != "" {
		return false, nil
	}
	r.PaymentID = paymentID
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Put stores r as-is, bypassing creation rules.
func (s *MemReservations) Put(r reservations.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.ID] = &r
}

type MemUsers struct {
	mu    sync.Mutex
	users map[string]identity.User
}

var _ identity.Directory = (*MemUsers)(nil)

func NewUsers(users ...identity.User) *MemUsers {
	m := &MemUsers{users: map[string]identity.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MemUsers) FindUser(_ context.Context, id string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &u, nil
}
