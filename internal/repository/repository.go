package repository

import (
	"context"
	"time"

	"github.com/utafrali/CampusMerchGo/internal/domain"
)

// ReservationFilter narrows the reservation list query.
type ReservationFilter struct {
	StudentID string
	Statuses  []string
	BundleID  string
	ItemCode  int
	Page      int
	PerPage   int
}

// ReservationRepository defines the interface for reservation persistence operations.
type ReservationRepository interface {
	// Create inserts a new reservation row.
	Create(ctx context.Context, reservation *domain.Reservation) error

	// GetByID retrieves a reservation by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// GetByBundleID retrieves all member reservations of a bundle, oldest first.
	GetByBundleID(ctx context.Context, bundleID string) ([]domain.Reservation, error)

	// List returns reservations matching the filter with a total count.
	List(ctx context.Context, filter ReservationFilter) ([]domain.Reservation, int, error)

	// ListByStatus returns all reservations currently in any of the given statuses.
	ListByStatus(ctx context.Context, statuses ...string) ([]domain.Reservation, error)

	// ListUnpaid returns approved reservations still awaiting payment.
	ListUnpaid(ctx context.Context) ([]domain.Reservation, error)
}

// StockRepository defines the interface for stock ledger persistence operations.
type StockRepository interface {
	// GetByKey retrieves the ledger record for one (item code, size) key.
	GetByKey(ctx context.Context, itemCode int, size string) (*domain.StockItem, error)

	// GetQuantity returns the current quantity for a key, 0 when the key is
	// unknown. Unknown keys are never an error.
	GetQuantity(ctx context.Context, itemCode int, size string) (int, error)

	// Upsert creates or updates a catalog item.
	Upsert(ctx context.Context, item *domain.StockItem) error

	// Remove deletes a catalog item.
	Remove(ctx context.Context, itemCode int, size string) error

	// List returns catalog items with a total count.
	List(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error)

	// ListLowStock returns items at or below their low-stock threshold.
	ListLowStock(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error)

	// TryDecrement removes amount units iff the current quantity is
	// sufficient, recording a movement row in the same transaction. Returns
	// ErrInsufficientStock without mutating anything when it is not.
	TryDecrement(ctx context.Context, itemCode int, size string, amount int, reason string, refID *string) error

	// Increment adds amount units (restock on cancel or return), recording a
	// movement row in the same transaction.
	Increment(ctx context.Context, itemCode int, size string, amount int, reason string, refID *string) error

	// ListMovements returns the movement history for a key, newest first.
	ListMovements(ctx context.Context, itemCode int, size string, page, perPage int) ([]domain.StockMovement, int, error)
}

// AuditLogRepository defines the interface for stock audit log persistence operations.
type AuditLogRepository interface {
	// Create inserts a new pending audit log entry.
	Create(ctx context.Context, log *domain.StockAuditLog) error

	// GetByID retrieves an audit log entry by id.
	GetByID(ctx context.Context, id string) (*domain.StockAuditLog, error)

	// ListPending returns all entries still awaiting a decision, oldest first.
	ListPending(ctx context.Context) ([]domain.StockAuditLog, error)

	// List returns all entries with a total count, newest first.
	List(ctx context.Context, page, perPage int) ([]domain.StockAuditLog, int, error)

	// Reject marks a pending entry REJECTED. Returns ErrConflict when the
	// entry has already been decided.
	Reject(ctx context.Context, id, approverID, notes string, decidedAt time.Time) error
}

// CartRepository defines the interface for the student cart store.
type CartRepository interface {
	// Get retrieves the student's cart; an empty cart when none exists.
	Get(ctx context.Context, studentID string) (*domain.Cart, error)

	// Save replaces the student's cart.
	Save(ctx context.Context, cart *domain.Cart) error

	// Clear removes the student's cart.
	Clear(ctx context.Context, studentID string) error
}
