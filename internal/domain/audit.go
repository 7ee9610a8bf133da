package domain

import "time"

// Stock audit log statuses.
const (
	AuditStatusPending  = "PENDING"
	AuditStatusApproved = "APPROVED"
	AuditStatusRejected = "REJECTED"
)

// StockAuditLog is a staff-submitted manual stock adjustment awaiting
// admin review. The before/after quantities are snapshots taken when the
// request was filed; the delta is applied to the ledger only on approval,
// exactly once. Approved and rejected entries are immutable.
type StockAuditLog struct {
	ID              string     `json:"id"`
	StaffID         string     `json:"staff_id"`
	ItemCode        int        `json:"item_code"`
	ItemSize        string     `json:"item_size"`
	QuantityBefore  int        `json:"quantity_before"`
	QuantityAfter   int        `json:"quantity_after"`
	QuantityChanged int        `json:"quantity_changed"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
}

// IsPending reports whether the entry still awaits a decision.
func (l *StockAuditLog) IsPending() bool {
	return l.Status == AuditStatusPending
}

// ValidAuditStatuses returns all audit log statuses.
func ValidAuditStatuses() []string {
	return []string{AuditStatusPending, AuditStatusApproved, AuditStatusRejected}
}
