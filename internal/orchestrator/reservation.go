package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/identity"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
)

type ReservationInput struct {
	EmployerID  string
	ServiceID   string
	ClientName  string
	ClientEmail string
	ClientPhone string
	// Name, Email and Phone are the booking form's field names; they fill
	// the client fields left empty.
	Name      string
	Email     string
	Phone     string
	StartDate time.Time
	Address   string
	Amount    int64
	Notes     string
}

func (s *Service) CreateReservation(ctx context.Context, in ReservationInput, who identity.Requester) (*reservations.Reservation, error) {
	res := &reservations.Reservation{
		EmployerID:  in.EmployerID,
		ServiceID:   in.ServiceID,
		ClientName:  firstNonEmpty(in.ClientName, in.Name),
		ClientEmail: firstNonEmpty(in.ClientEmail, in.Email),
		ClientPhone: firstNonEmpty(in.ClientPhone, in.Phone),
		StartDate:   in.StartDate,
		Address:     strings.TrimSpace(in.Address),
		Amount:      in.Amount,
		Notes:       in.Notes,
	}
	if res.Amount == 0 {
		res.Amount = s.DefaultReservationAmount
	}

	if who.Authenticated() {
		res.UserID = who.UserID
		if err := s.fillFromDirectory(ctx, res, who.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.Reservations.Create(ctx, res); err != nil {
		return nil, err
	}
	s.log().Info("reservation created", "reservation_id", res.ID, "user_id", res.UserID, "amount", res.Amount)
	return res, nil
}

func (s *Service) fillFromDirectory(ctx context.Context, res *reservations.Reservation, userID string) error {
	if s.Users == nil {
		return nil
	}
	u, err := s.Users.FindUser(ctx, userID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	res.ClientName = firstNonEmpty(res.ClientName, u.FullName())
	res.ClientEmail = firstNonEmpty(res.ClientEmail, u.Email)
	res.ClientPhone = firstNonEmpty(res.ClientPhone, u.Phone)
	return nil
}

// GetReservation is limited to the owner and admins; guest bookings are
// reached through TrackReservation instead.
func (s *Service) GetReservation(ctx context.Context, id string, who identity.Requester) (*reservations.Reservation, error) {
	res, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !who.IsAdmin() && (res.UserID == "" || res.UserID != who.UserID) {
		return nil, reservations.ErrNotFound
	}
	return res, nil
}

// TrackReservation lets a guest follow a booking with its id and the email
// it was made with.
func (s *Service) TrackReservation(ctx context.Context, id, email string) (*reservations.Reservation, error) {
	if id == "" || email == "" {
		return nil, apperr.Validation("reservation id and email are required")
	}
	res, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	known := res.ClientEmail
	if known == "" && res.UserID != "" && s.Users != nil {
		if u, err := s.Users.FindUser(ctx, res.UserID); err == nil {
			known = u.Email
		}
	}
	if known == "" || !strings.EqualFold(known, strings.TrimSpace(email)) {
		return nil, apperr.Forbidden("the details provided do not match this reservation")
	}
	return res, nil
}

func (s *Service) ReservationsByUser(ctx context.Context, userID string, who identity.Requester) ([]reservations.Reservation, error) {
	userID, err := scopedUser(userID, who, "reservations")
	if err != nil {
		return nil, err
	}
	list, err := s.Reservations.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []reservations.Reservation{}
	}
	return list, nil
}

// UpdateReservationStatus is the administrative status change.
func (s *Service) UpdateReservationStatus(ctx context.Context, id string, to reservations.Status, who identity.Requester) (*reservations.Reservation, error) {
	if !who.IsAdmin() {
		return nil, apperr.Forbidden("admin only")
	}
	if !to.Valid() {
		return nil, apperr.Validation(`"status" must be one of PENDING, CONFIRMED, CANCELLED, COMPLETED`)
	}
	res, err := s.Reservations.UpdateStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	s.log().Info("reservation status updated", "reservation_id", id, "status", to, "by", who.UserID)
	return res, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
