package domain

import "time"

// StockItem is the ledger record for one (item code, size) key. Name,
// course and unit price are descriptive attributes; identity is the
// (ItemCode, Size) pair alone.
type StockItem struct {
	ItemCode          int       `json:"item_code"`
	Size              string    `json:"size"`
	Name              string    `json:"name"`
	Course            string    `json:"course,omitempty"`
	UnitPrice         int64     `json:"unit_price"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsLowStock reports whether the quantity has fallen to or below the
// item's threshold.
func (s *StockItem) IsLowStock() bool {
	return s.Quantity <= s.LowStockThreshold
}

// StockMovement records one ledger mutation, with the reservation or audit
// entry that caused it.
type StockMovement struct {
	ID             string    `json:"id"`
	ItemCode       int       `json:"item_code"`
	Size           string    `json:"size"`
	QuantityChange int       `json:"quantity_change"`
	Reason         string    `json:"reason"`
	ReferenceID    *string   `json:"reference_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Stock movement reasons.
const (
	MovementReasonApproval     = "reservation_approval"
	MovementReasonCancellation = "reservation_cancellation"
	MovementReasonReturn       = "return_refund"
	MovementReasonAudit        = "audit_adjustment"
)

// ValidMovementReasons returns the set of valid movement reasons.
func ValidMovementReasons() []string {
	return []string{
		MovementReasonApproval,
		MovementReasonCancellation,
		MovementReasonReturn,
		MovementReasonAudit,
	}
}

// IsValidMovementReason checks whether the given reason is a valid stock
// movement reason.
func IsValidMovementReason(reason string) bool {
	for _, r := range ValidMovementReasons() {
		if r == reason {
			return true
		}
	}
	return false
}
