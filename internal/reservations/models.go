package reservations

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusCompleted: true, StatusCancelled: true},
	StatusCancelled: {},
	StatusCompleted: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Sources lists the states allowed to move into to.
func Sources(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
		if validNext[from][to] {
			out = append(out, from)
		}
	}
	return out
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

type Reservation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	EmployerID  string    `json:"employerId,omitempty"`
	ServiceID   string    `json:"serviceId,omitempty"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	ClientPhone string    `json:"clientPhone"`
	StartDate   time.Time `json:"startDate"`
	Address     string    `json:"address"`
	Amount      int64     `json:"amount"`
	Notes       string    `json:"notes,omitempty"`
	Status      Status    `json:"status"`
	PaymentID   string    `json:"paymentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Payable reports whether a new payment may be started for the reservation.
func (r *Reservation) Payable() bool {
	return r.Status == StatusPending
}
