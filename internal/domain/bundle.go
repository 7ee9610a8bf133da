package domain

// Bundle is the aggregate view of all reservation lines created together
// from one cart checkout. Members normally progress together through
// approval, payment and pickup, but each line cancels and returns
// independently.
type Bundle struct {
	BundleID     string        `json:"bundle_id"`
	Reservations []Reservation `json:"reservations"`
}

// Eligible returns the members for which the given event is still legal.
// Terminal members (cancelled, refunded) and members that already passed
// the event's stage are skipped by fan-out operations rather than failing
// the whole batch.
func (b *Bundle) Eligible(event string) []Reservation {
	var out []Reservation
	for _, r := range b.Reservations {
		if r.CanTransition(event) {
			out = append(out, r)
		}
	}
	return out
}

// BatchFailure records one member that a fan-out operation could not
// transition.
type BatchFailure struct {
	ReservationID string `json:"reservation_id"`
	Error         string `json:"error"`
}

// BatchResult is the partial-success accounting for a bundle fan-out
// operation: how many members were attempted, how many succeeded, and what
// went wrong with the rest. Callers surface this as "N of M succeeded"
// rather than a single boolean.
type BatchResult struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// Record accounts for one member outcome.
func (r *BatchResult) Record(reservationID string, err error) {
	r.Attempted++
	if err == nil {
		r.Succeeded++
		return
	}
	r.Failures = append(r.Failures, BatchFailure{ReservationID: reservationID, Error: err.Error()})
}

// AllSucceeded reports whether every attempted member transitioned.
func (r *BatchResult) AllSucceeded() bool {
	return r.Attempted > 0 && r.Succeeded == r.Attempted
}

// Partial reports whether the batch succeeded for some members but not all.
func (r *BatchResult) Partial() bool {
	return r.Succeeded > 0 && r.Succeeded < r.Attempted
}
