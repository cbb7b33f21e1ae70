package payments

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
)

type Currency string

const (
	CurrencyXOF Currency = "XOF"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

type Method string

const (
	MethodOM           Method = "OM"
	MethodWave         Method = "WAVE"
	MethodCard         Method = "CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

type Type string

const (
	TypePayment     Type = "payment"
	TypeRefund      Type = "refund"
	TypePaymentLink Type = "payment_link"
)

// MetaReservationID is the metadata key correlating a payment to its reservation.
const MetaReservationID = "reservationId"

type Payment struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId,omitempty"`
	ReservationID string         `json:"reservationId,omitempty"`
	Amount        int64          `json:"amount"`
	Currency      Currency       `json:"currency"`
	Method        Method         `json:"method"`
	Type          Type           `json:"type"`
	Client        string         `json:"client"`
	Phone         string         `json:"phone,omitempty"`
	Email         string         `json:"email,omitempty"`
	Description   string         `json:"description,omitempty"`
	Status        Status         `json:"status"`
	Reference     string         `json:"reference"`
	TransactionID string         `json:"transactionId,omitempty"`
	PaymentLink   string         `json:"paymentLink,omitempty"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// ReservationRef reads the reservation correlation, preferring the column.
func (p *Payment) ReservationRef() string {
	if p.ReservationID != "" {
		return p.ReservationID
	}
	if v, ok := p.Metadata[MetaReservationID]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func ValidCurrency(c Currency) bool {
	switch c {
	case CurrencyXOF, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

func ValidMethod(m Method) bool {
	switch m {
	case MethodOM, MethodWave, MethodCard, MethodBankTransfer:
		return true
	}
	return false
}

func ValidType(t Type) bool {
	switch t {
	case TypePayment, TypeRefund, TypePaymentLink:
		return true
	}
	return false
}

// ParseMethod accepts the enum names plus the front end's generic method
// names (mobile_money, card, bank_transfer). Empty input yields def.
func ParseMethod(raw string, def Method) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return def, nil
	case "mobile_money":
		return MethodWave, nil
	case "card":
		return MethodCard, nil
	case "bank_transfer":
		return MethodBankTransfer, nil
	}
	m := Method(strings.ToUpper(strings.TrimSpace(raw)))
	if !ValidMethod(m) {
		return "", apperr.Validation(`"method" must be one of OM, WAVE, CARD, BANK_TRANSFER`)
	}
	return m, nil
}
