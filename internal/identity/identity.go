// Package identity is the read-only view of users the payment flows need:
// who is calling and how to reach them.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/postgres"
	"github.com/jackc/pgx/v5"
)

const RoleAdmin = "admin"

var ErrNotFound = apperr.NotFound("user not found")

type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Requester is the caller of an operation. The zero value is an anonymous guest.
type Requester struct {
	UserID string
	Role   string
}

func (r Requester) Authenticated() bool { return r.UserID != "" }

func (r Requester) IsAdmin() bool { return r.Role == RoleAdmin }

// Owns reports whether the requester may see a record owned by userID.
// Guest records (no owner) are visible to anonymous callers only.
func (r Requester) Owns(userID string) bool {
	switch {
	case r.IsAdmin():
		return true
	case r.Authenticated():
		return userID == r.UserID
	}
	return userID == ""
}

type Directory interface {
	FindUser(ctx context.Context, id string) (*User, error)
}

type Repo struct{ DB postgres.DBTX }

var _ Directory = (*Repo)(nil)

func (r *Repo) FindUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, role
		FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
