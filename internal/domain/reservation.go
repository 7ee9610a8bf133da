package domain

import (
	"fmt"
	"time"
)

// Reservation status constants.
const (
	StatusPending                    = "PENDING"
	StatusApprovedWaitingPayment     = "APPROVED_WAITING_PAYMENT"
	StatusPaidAwaitingPickupApproval = "PAID_AWAITING_PICKUP_APPROVAL"
	StatusPickupRequested            = "PICKUP_REQUESTED"
	StatusApprovedForPickup          = "APPROVED_FOR_PICKUP"
	StatusCompleted                  = "COMPLETED"
	StatusReturnRequested            = "RETURN_REQUESTED"
	StatusReturnedRefunded           = "RETURNED_REFUNDED"
	StatusCancelled                  = "CANCELLED"
)

// Reservation lifecycle events.
const (
	EventApprove       = "approve"
	EventCancel        = "cancel"
	EventPay           = "pay"
	EventRequestPickup = "request_pickup"
	EventApprovePickup = "approve_pickup"
	EventClaim         = "claim"
	EventRequestReturn = "request_return"
	EventApproveReturn = "approve_return"
	EventRejectReturn  = "reject_return"
)

// ReturnWindowDays is the number of days after pickup during which a
// completed reservation can still request a return. The boundary is
// inclusive: a request made exactly ReturnWindowDays after pickup succeeds.
const ReturnWindowDays = 10

// LedgerEffect is the stock mutation a transition requires.
type LedgerEffect int

const (
	// EffectNone leaves the stock ledger untouched.
	EffectNone LedgerEffect = iota
	// EffectDecrement removes the reserved quantity from the ledger.
	EffectDecrement
	// EffectRestockIfDeducted returns the quantity to the ledger, but only
	// when stock was actually committed for this reservation.
	EffectRestockIfDeducted
	// EffectIncrement returns the quantity to the ledger unconditionally.
	EffectIncrement
)

// Reservation is a single line-item order, or one line of a bundle.
// Buyer and item fields are snapshots taken at creation time; later edits
// to the student or catalog records never rewrite historical orders.
type Reservation struct {
	ID            string     `json:"id"`
	BundleID      *string    `json:"bundle_id,omitempty"`
	StudentID     string     `json:"student_id"`
	StudentName   string     `json:"student_name"`
	Course        string     `json:"course"`
	ItemCode      int        `json:"item_code"`
	ItemName      string     `json:"item_name"`
	Size          string     `json:"size"`
	Quantity      int        `json:"quantity"`
	UnitPrice     int64      `json:"unit_price"`
	TotalPrice    int64      `json:"total_price"`
	Status        string     `json:"status"`
	Paid          bool       `json:"paid"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	StockDeducted bool       `json:"stock_deducted"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TransitionError reports a reservation event that is not legal from the
// current status.
type TransitionError struct {
	From  string
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: event %q from status %q", e.Event, e.From)
}

type transitionKey struct {
	from  string
	event string
}

type transitionResult struct {
	next   string
	effect LedgerEffect
}

// The closed transition table. Every legal (status, event) pair appears here;
// anything else is rejected by Transition.
var transitions = map[transitionKey]transitionResult{
	{StatusPending, EventApprove}: {StatusApprovedWaitingPayment, EffectDecrement},

	{StatusPending, EventCancel}:                    {StatusCancelled, EffectRestockIfDeducted},
	{StatusApprovedWaitingPayment, EventCancel}:     {StatusCancelled, EffectRestockIfDeducted},
	{StatusPaidAwaitingPickupApproval, EventCancel}: {StatusCancelled, EffectRestockIfDeducted},
	{StatusPickupRequested, EventCancel}:            {StatusCancelled, EffectRestockIfDeducted},
	{StatusApprovedForPickup, EventCancel}:          {StatusCancelled, EffectRestockIfDeducted},

	{StatusApprovedWaitingPayment, EventPay}:           {StatusPaidAwaitingPickupApproval, EffectNone},
	{StatusPaidAwaitingPickupApproval, EventRequestPickup}: {StatusPickupRequested, EffectNone},
	{StatusPickupRequested, EventApprovePickup}:        {StatusApprovedForPickup, EffectNone},
	{StatusApprovedForPickup, EventClaim}:              {StatusCompleted, EffectNone},

	{StatusCompleted, EventRequestReturn}:      {StatusReturnRequested, EffectNone},
	{StatusReturnRequested, EventApproveReturn}: {StatusReturnedRefunded, EffectIncrement},
	{StatusReturnRequested, EventRejectReturn}:  {StatusCompleted, EffectNone},
}

// Transition resolves the state machine for a single event. It returns the
// next status and the ledger effect the caller must apply, or a
// *TransitionError when the event is not legal from the current status.
func Transition(current, event string) (string, LedgerEffect, error) {
	res, ok := transitions[transitionKey{from: current, event: event}]
	if !ok {
		return "", EffectNone, &TransitionError{From: current, Event: event}
	}
	return res.next, res.effect, nil
}

// ValidStatuses returns all reservation statuses.
func ValidStatuses() []string {
	return []string{
		StatusPending,
		StatusApprovedWaitingPayment,
		StatusPaidAwaitingPickupApproval,
		StatusPickupRequested,
		StatusApprovedForPickup,
		StatusCompleted,
		StatusReturnRequested,
		StatusReturnedRefunded,
		StatusCancelled,
	}
}

// IsValidStatus checks if a status string is a known reservation status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further events at all.
// COMPLETED is not terminal: it can still branch to RETURN_REQUESTED within
// the return window.
func IsTerminal(status string) bool {
	return status == StatusCancelled || status == StatusReturnedRefunded
}

// CanTransition reports whether the given event is legal from the
// reservation's current status.
func (r *Reservation) CanTransition(event string) bool {
	_, ok := transitions[transitionKey{from: r.Status, event: event}]
	return ok
}

// WithinReturnWindow reports whether a return requested at now is still
// inside the window that opened at pickup. Reservations that were never
// picked up have no window.
func (r *Reservation) WithinReturnWindow(now time.Time) bool {
	if r.CompletedAt == nil {
		return false
	}
	return now.Sub(*r.CompletedAt) <= ReturnWindowDays*24*time.Hour
}

// SplitForReturn carves a partial return of qty units out of the
// reservation. The receiver is reduced to the remainder and keeps its
// status; the returned row carries qty units, a proportional share of the
// total price, and the same bundle and item identity. The two rows always
// sum to the original quantity and total price. The caller assigns the new
// row's ID and persists both rows in one transaction.
func (r *Reservation) SplitForReturn(qty int, reason string, now time.Time) (*Reservation, error) {
	if qty <= 0 || qty >= r.Quantity {
		return nil, fmt.Errorf("partial return quantity must be between 1 and %d, got %d", r.Quantity-1, qty)
	}

	returnedPrice := r.TotalPrice * int64(qty) / int64(r.Quantity)

	returned := *r
	returned.ID = ""
	returned.Quantity = qty
	returned.TotalPrice = returnedPrice
	returned.Status = StatusReturnRequested
	returned.Reason = reason
	returned.CreatedAt = now
	returned.UpdatedAt = now

	r.Quantity -= qty
	r.TotalPrice -= returnedPrice
	r.UpdatedAt = now

	return &returned, nil
}
