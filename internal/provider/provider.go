// Package provider obtains hosted checkout links from payment providers.
package provider

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/config"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
)

// Callback route names, used as the suffix of success-<name> / error-<name>.
const (
	NameWave   = "wave"
	NameOrange = "om"
	NameCard   = "card"
)

type LinkRequest struct {
	Method      payments.Method
	Amount      int64
	Currency    payments.Currency
	Reference   string
	ClientLabel string
}

// Adapter turns a payment into a URL the payer is redirected to.
type Adapter interface {
	GenerateLink(ctx context.Context, req LinkRequest) (string, error)
}

var ErrNoAdapter = apperr.Validation("payment method has no checkout link")

// Router resolves the adapter for a payment method.
type Router struct {
	adapters map[payments.Method]Adapter
}

func NewRouter(adapters map[payments.Method]Adapter) *Router {
	return &Router{adapters: adapters}
}

// FromConfig wires Orange Money, Wave and card checkout. CARD goes through
// Wave when no Stripe key is configured.
func FromConfig(cfg config.Config) *Router {
	client := NewHTTPClient(cfg.ProviderTimeout)
	wave := &Wave{
		BaseURL:      cfg.Wave.BaseURL,
		Token:        cfg.Wave.Token,
		CallbackBase: cfg.CallbackBaseURL,
		Client:       client,
		Timeout:      cfg.ProviderTimeout,
	}
	orange := &Orange{
		BaseURL:      cfg.Orange.BaseURL,
		BasicAuth:    cfg.Orange.BasicAuth,
		MerchantCode: cfg.Orange.MerchantCode,
		MerchantName: cfg.Orange.MerchantName,
		Validity:     cfg.Orange.ValidityMinutes,
		CallbackBase: cfg.CallbackBaseURL,
		Client:       client,
		Timeout:      cfg.ProviderTimeout,
	}
	var card Adapter = wave
	if cfg.Stripe.SecretKey != "" {
		card = NewCard(cfg.Stripe.SecretKey, cfg.CallbackBaseURL, cfg.Orange.MerchantName, cfg.ProviderTimeout)
	}
	return NewRouter(map[payments.Method]Adapter{
		payments.MethodOM:   orange,
		payments.MethodWave: wave,
		payments.MethodCard: card,
	})
}

func (r *Router) Supports(m payments.Method) bool {
	_, ok := r.adapters[m]
	return ok
}

func (r *Router) GenerateLink(ctx context.Context, req LinkRequest) (string, error) {
	a, ok := r.adapters[req.Method]
	if !ok {
		return "", ErrNoAdapter
	}
	return a.GenerateLink(ctx, req)
}

// NewHTTPClient is the shared outbound client; every adapter also bounds
// each call with its own context deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}
