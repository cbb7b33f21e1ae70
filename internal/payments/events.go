package payments

import (
	"encoding/json"
	"time"
)

const (
	EventPaymentInitiated     = "PaymentInitiated"
	EventPaymentCompleted     = "PaymentCompleted"
	EventPaymentFailed        = "PaymentFailed"
	EventPaymentCancelled     = "PaymentCancelled"
	EventPaymentRefunded      = "PaymentRefunded"
	EventReservationConfirmed = "ReservationConfirmed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`                 // e.g. "placement-api"
	CorrelationID string          `json:"correlation_id,omitempty"` // payment reference
	Payload       json.RawMessage `json:"payload"`
}

// StatusPayload is shared by every payment lifecycle event.
type StatusPayload struct {
	PaymentID     string `json:"payment_id"`
	Reference     string `json:"reference"`
	ReservationID string `json:"reservation_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Status        Status `json:"status"`
	Method        Method `json:"method"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type ReservationConfirmedPayload struct {
	ReservationID string `json:"reservation_id"`
	PaymentID     string `json:"payment_id"`
	Reference     string `json:"reference"`
}

// EventFor names the lifecycle event emitted when a payment enters s.
func EventFor(s Status) string {
	switch s {
	case StatusPending:
		return EventPaymentInitiated
	case StatusCompleted:
		return EventPaymentCompleted
	case StatusFailed:
		return EventPaymentFailed
	case StatusCancelled:
		return EventPaymentCancelled
	case StatusRefunded:
		return EventPaymentRefunded
	}
	return ""
}

func NewStatusPayload(p *Payment) StatusPayload {
	return StatusPayload{
		PaymentID:     p.ID,
		Reference:     p.Reference,
		ReservationID: p.ReservationRef(),
		UserID:        p.UserID,
		Status:        p.Status,
		Method:        p.Method,
		Amount:        p.Amount,
		Currency:      string(p.Currency),
		TransactionID: p.TransactionID,
	}
}
