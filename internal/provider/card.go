package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/stripe/stripe-go/v82"
)

// checkoutSessions is the slice of the Stripe client the card adapter uses.
type checkoutSessions interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// Card opens a Stripe Checkout Session in payment mode.
type Card struct {
	Sessions     checkoutSessions
	CallbackBase string
	ProductName  string
	Timeout      time.Duration
}

func NewCard(secretKey, callbackBase, productName string, timeout time.Duration) *Card {
	sc := stripe.NewClient(secretKey)
	return &Card{
		Sessions:     sc.V1CheckoutSessions,
		CallbackBase: callbackBase,
		ProductName:  productName,
		Timeout:      timeout,
	}
}

func (c *Card) GenerateLink(ctx context.Context, req LinkRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	currency := req.Currency
	if currency == "" {
		currency = payments.CurrencyXOF
	}
	success, failure := CallbackURLs(c.CallbackBase, NameCard, req.Reference)
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(success),
		CancelURL:         stripe.String(failure),
		ClientReferenceID: stripe.String(req.Reference),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(string(currency))),
				UnitAmount: stripe.Int64(minorUnits(req.Amount, currency)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(c.productName(req.ClientLabel)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		Metadata: map[string]string{"reference": req.Reference},
	}

	sess, err := c.Sessions.Create(ctx, params)
	if err != nil {
		return "", classifyStripe(err)
	}
	if sess == nil || sess.URL == "" {
		return "", missingLink("stripe checkout")
	}
	return sess.URL, nil
}

func (c *Card) productName(client string) string {
	name := c.ProductName
	if name == "" {
		name = "Placement"
	}
	if client != "" {
		name += " - " + client
	}
	return name
}

// minorUnits converts whole amounts to Stripe's smallest unit; XOF has none.
func minorUnits(amount int64, cur payments.Currency) int64 {
	if cur == payments.CurrencyXOF {
		return amount
	}
	return amount * 100
}

func classifyStripe(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 {
		return apperr.Wrap(apperr.KindProviderRejected, "stripe checkout", err)
	}
	return apperr.Wrap(apperr.KindProviderUnavailable, "stripe checkout", err)
}
