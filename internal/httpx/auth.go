package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-placement-payments/internal/identity"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload; the subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// Auth resolves an optional bearer token into an identity.Requester.
type Auth struct {
	Secret []byte
}

func NewAuth(secret string) *Auth { return &Auth{Secret: []byte(secret)} }

// Middleware attaches the requester when a token is present. A request with
// no Authorization header continues as a guest; a bad token is rejected.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		who, err := a.parse(header)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: "invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, who)))
	})
}

func (a *Auth) parse(header string) (identity.Requester, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return identity.Requester{}, jwt.ErrTokenMalformed
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(parts[1], &claims, func(*jwt.Token) (any, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return identity.Requester{}, err
	}
	if claims.Subject == "" {
		return identity.Requester{}, jwt.ErrTokenInvalidClaims
	}
	return identity.Requester{UserID: claims.Subject, Role: claims.Role}, nil
}

// RequireAuth rejects guests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requester(r).Authenticated() {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requester(r *http.Request) identity.Requester {
	who, _ := r.Context().Value(ctxKey{}).(identity.Requester)
	return who
}
