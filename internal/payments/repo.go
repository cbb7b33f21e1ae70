package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var columns = []string{
	"id", "user_id", "reservation_id", "amount", "currency", "method", "type",
	"client", "phone", "email", "description", "status", "reference",
	"transaction_id", "payment_link", "metadata", "created_at", "updated_at",
}

func cols(alias string) string {
	if alias == "" {
		return strings.Join(columns, ", ")
	}
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// Repo is the Postgres Ledger.
type Repo struct {
	DB  postgres.DBTX
	Now func() time.Time
}

var _ Ledger = (*Repo)(nil)

func (r *Repo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Repo) Create(ctx context.Context, p *Payment) error {
	p.Status = StatusPending
	if err := Validate(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	p.ReservationID = p.ReservationRef()
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, `"metadata" must be an object`, err)
	}
	now := r.now()

	_, err = r.DB.Exec(ctx, `
		INSERT INTO payments (id, user_id, reservation_id, amount, currency, method, type,
		                      client, phone, email, description, status, reference,
		                      transaction_id, payment_link, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$17)`,
		p.ID, nullable(p.UserID), nullable(p.ReservationID), p.Amount, string(p.Currency),
		string(p.Method), string(p.Type), p.Client, p.Phone, p.Email, p.Description,
		string(p.Status), p.Reference, nullable(p.TransactionID), nullable(p.PaymentLink),
		meta, now,
	)
	if err != nil {
		return mapWriteErr("insert payment", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Payment, error) {
	return r.one(ctx, `SELECT `+cols("")+` FROM payments WHERE id=$1`, id)
}

func (r *Repo) FindByReference(ctx context.Context, ref string) (*Payment, error) {
	return r.one(ctx, `SELECT `+cols("")+` FROM payments WHERE reference=$1`, ref)
}

// FindPendingByReservation returns nil, nil when the reservation has no pending payment.
func (r *Repo) FindPendingByReservation(ctx context.Context, reservationID string) (*Payment, error) {
	p, err := r.one(ctx, `SELECT `+cols("")+` FROM payments
		WHERE reservation_id=$1 AND status='PENDING' LIMIT 1`, reservationID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (r *Repo) FindByUser(ctx context.Context, userID string) ([]Payment, error) {
	return r.many(ctx, `SELECT `+cols("")+` FROM payments WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status, transactionID string) (*Payment, error) {
	sources := Sources(to)
	from := make([]string, 0, len(sources))
	for _, s := range sources {
		from = append(from, string(s))
	}

	p, err := r.one(ctx, `
		UPDATE payments
		SET status=$2, transaction_id=COALESCE($3, transaction_id), updated_at=$4
		WHERE id=$1 AND status = ANY($5)
		RETURNING `+cols(""),
		id, string(to), nullable(transactionID), r.now(), from,
	)
	if errors.Is(err, ErrNotFound) {
		// lost the compare-and-set or the row is gone; tell them apart
		cur, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, TransitionError(cur.Status, to)
	}
	return p, err
}

func (r *Repo) SetLink(ctx context.Context, id, link string) (*Payment, error) {
	return r.one(ctx, `UPDATE payments SET payment_link=$2, updated_at=$3 WHERE id=$1 RETURNING `+cols(""),
		id, link, r.now())
}

func (r *Repo) ListOrphans(ctx context.Context, limit int) ([]Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.many(ctx, `
		SELECT `+cols("p")+`
		FROM payments p
		JOIN reservations r ON r.id = p.reservation_id
		WHERE (r.payment_id IS NULL AND p.status IN ('PENDING','COMPLETED'))
		   OR (r.payment_id = p.id AND p.status = 'COMPLETED' AND r.status = 'PENDING')
		ORDER BY p.created_at
		LIMIT $1`, limit)
}

func (r *Repo) one(ctx context.Context, q string, args ...any) (*Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapWriteErr("query payment", err)
	}
	return p, nil
}

func (r *Repo) many(ctx context.Context, q string, args ...any) ([]Payment, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var userID, reservationID, txnID, link *string
	var currency, method, typ, status string
	var meta []byte
	err := row.Scan(
		&p.ID, &userID, &reservationID, &p.Amount, &currency, &method, &typ,
		&p.Client, &p.Phone, &p.Email, &p.Description, &status, &p.Reference,
		&txnID, &link, &meta, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.UserID, p.ReservationID = deref(userID), deref(reservationID)
	p.TransactionID, p.PaymentLink = deref(txnID), deref(link)
	p.Currency, p.Method, p.Type, p.Status = Currency(currency), Method(method), Type(typ), Status(status)
	p.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &p, nil
}

func mapWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case "payments_reference_key":
			return ErrDuplicateReference
		case "payments_reservation_pending_key":
			return ErrOutstanding
		}
		return apperr.Wrap(apperr.KindConflict, "payment already exists", err)
	}
	return fmt.Errorf("%s: %w", op, err)
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
