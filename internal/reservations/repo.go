package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var columns = []string{
	"id", "user_id", "employer_id", "service_id", "client_name", "client_email",
	"client_phone", "start_date", "address", "amount", "notes", "status",
	"payment_id", "created_at", "updated_at",
}

var selectCols = strings.Join(columns, ", ")

type Repo struct {
	DB  postgres.DBTX
	Now func() time.Time
}

var _ Store = (*Repo)(nil)

func (r *Repo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Repo) Create(ctx context.Context, res *Reservation) error {
	if err := Validate(res); err != nil {
		return err
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	res.Status = StatusPending
	res.PaymentID = ""
	now := r.now()

	_, err := r.DB.Exec(ctx, `
		INSERT INTO reservations (id, user_id, employer_id, service_id, client_name, client_email,
		                          client_phone, start_date, address, amount, notes, status,
		                          payment_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NULL,$13,$13)`,
		res.ID, nullable(res.UserID), nullable(res.EmployerID), nullable(res.ServiceID),
		res.ClientName, res.ClientEmail, res.ClientPhone, res.StartDate.UTC(), res.Address,
		res.Amount, res.Notes, string(res.Status), now,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	res.CreatedAt, res.UpdatedAt = now, now
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Reservation, error) {
	return r.one(ctx, `SELECT `+selectCols+` FROM reservations WHERE id=$1`, id)
}

func (r *Repo) FindByUser(ctx context.Context, userID string) ([]Reservation, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+selectCols+` FROM reservations
		WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status) (*Reservation, error) {
	var from []string
	for _, s := range Sources(to) {
		from = append(from, string(s))
	}
	res, err := r.one(ctx, `
		UPDATE reservations SET status=$2, updated_at=$3
		WHERE id=$1 AND status = ANY($4)
		RETURNING `+selectCols,
		id, string(to), r.now(), from)
	if errors.Is(err, ErrNotFound) {
		cur, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, TransitionError(cur.Status, to)
	}
	return res, err
}

func (r *Repo) AttachPayment(ctx context.Context, id, paymentID string) (*Reservation, error) {
	res, err := r.one(ctx, `
		UPDATE reservations SET payment_id=$2, updated_at=$3
		WHERE id=$1 AND status='PENDING'
		RETURNING `+selectCols,
		id, paymentID, r.now())
	if errors.Is(err, ErrNotFound) {
		cur, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, NotPayableError(cur.Status)
	}
	return res, err
}

func (r *Repo) Confirm(ctx context.Context, id, paymentID string) (*Reservation, error) {
	res, err := r.one(ctx, `
		UPDATE reservations SET status='CONFIRMED', payment_id=$2, updated_at=$3
		WHERE id=$1 AND (status='PENDING' OR (status='CONFIRMED' AND payment_id=$2))
		RETURNING `+selectCols,
		id, paymentID, r.now())
	if errors.Is(err, ErrNotFound) {
		cur, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, TransitionError(cur.Status, StatusConfirmed)
	}
	return res, err
}

func (r *Repo) LinkPayment(ctx context.Context, id, paymentID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE reservations SET payment_id=$2, updated_at=$3
		WHERE id=$1 AND payment_id IS NULL`,
		id, paymentID, r.now())
	if err != nil {
		return false, fmt.Errorf("link payment: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) one(ctx context.Context, q string, args ...any) (*Reservation, error) {
	res, err := scanReservation(r.DB.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query reservation: %w", err)
	}
	return res, nil
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	var userID, employerID, serviceID, paymentID *string
	var status string
	err := row.Scan(
		&res.ID, &userID, &employerID, &serviceID, &res.ClientName, &res.ClientEmail,
		&res.ClientPhone, &res.StartDate, &res.Address, &res.Amount, &res.Notes, &status,
		&paymentID, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.UserID, res.EmployerID = deref(userID), deref(employerID)
	res.ServiceID, res.PaymentID = deref(serviceID), deref(paymentID)
	res.Status = Status(status)
	return &res, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
