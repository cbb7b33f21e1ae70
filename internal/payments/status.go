package payments

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
	StatusCancelled Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusCompleted: true, StatusFailed: true, StatusCancelled: true},
	StatusCompleted: {StatusRefunded: true},
	StatusFailed:    {},
	StatusRefunded:  {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Sources lists the states allowed to move into to; the ledger uses it as the
// compare-and-set guard.
func Sources(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusCompleted, StatusFailed, StatusRefunded, StatusCancelled} {
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

// Terminal reports whether the provider flow is over for this payment.
// COMPLETED is terminal for callbacks even though a refund may follow.
func (s Status) Terminal() bool {
	return s != StatusPending && s.Valid()
}

// Final reports a status with no way out. A payment in a final status never
// changes again.
func (s Status) Final() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}
