package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/internal/event"
	"github.com/utafrali/CampusMerchGo/internal/repository"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

// StockService implements catalog management and the query surface of the
// stock ledger. Reservation-driven and audit-driven ledger mutations live
// with their owning services; Adjust is the immediate-apply path reserved
// for admins by the authorization layer.
type StockService struct {
	repo     repository.StockRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewStockService creates a new stock service.
func NewStockService(repo repository.StockRepository, producer *event.Producer, logger *slog.Logger) *StockService {
	return &StockService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// GetItem retrieves the ledger record for one (item code, size) key.
func (s *StockService) GetItem(ctx context.Context, itemCode int, size string) (*domain.StockItem, error) {
	return s.repo.GetByKey(ctx, itemCode, size)
}

// GetQuantity returns the current quantity for a key, 0 when unknown.
func (s *StockService) GetQuantity(ctx context.Context, itemCode int, size string) (int, error) {
	return s.repo.GetQuantity(ctx, itemCode, size)
}

// UpsertItem creates or updates a catalog item.
func (s *StockService) UpsertItem(ctx context.Context, item *domain.StockItem) (*domain.StockItem, error) {
	if item.ItemCode <= 0 {
		return nil, apperrors.InvalidInput("item_code must be positive")
	}
	if item.Size == "" {
		return nil, apperrors.InvalidInput("size is required")
	}
	if item.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must be non-negative")
	}
	if item.UnitPrice < 0 {
		return nil, apperrors.InvalidInput("unit_price must be non-negative")
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("upsert item: %w", err)
	}

	s.logger.InfoContext(ctx, "stock item upserted",
		slog.Int("item_code", item.ItemCode),
		slog.String("size", item.Size),
		slog.Int("quantity", item.Quantity),
	)
	return item, nil
}

// RemoveItem deletes a catalog item.
func (s *StockService) RemoveItem(ctx context.Context, itemCode int, size string) error {
	if err := s.repo.Remove(ctx, itemCode, size); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}

	s.logger.InfoContext(ctx, "stock item removed",
		slog.Int("item_code", itemCode),
		slog.String("size", size),
	)
	return nil
}

// Adjust applies an immediate quantity change to the ledger: a positive
// delta restocks, a negative delta decrements iff the quantity is
// sufficient. This path bypasses the audit workflow and is restricted to
// admins by the surrounding authorization layer.
func (s *StockService) Adjust(ctx context.Context, itemCode int, size string, delta int, reason string) (*domain.StockItem, error) {
	if delta == 0 {
		return nil, apperrors.InvalidInput("delta must be non-zero")
	}
	if !domain.IsValidMovementReason(reason) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid movement reason %q", reason))
	}

	var err error
	if delta < 0 {
		err = s.repo.TryDecrement(ctx, itemCode, size, -delta, reason, nil)
	} else {
		err = s.repo.Increment(ctx, itemCode, size, delta, reason, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	item, err := s.repo.GetByKey(ctx, itemCode, size)
	if err != nil {
		return nil, fmt.Errorf("get item after adjustment: %w", err)
	}

	if err := s.producer.PublishStockAdjusted(ctx, &event.StockAdjustedData{
		ItemCode:       itemCode,
		Size:           size,
		QuantityChange: delta,
		Reason:         reason,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock.adjusted event",
			slog.Int("item_code", itemCode),
			slog.String("size", size),
			slog.String("error", err.Error()),
		)
	}

	if item.IsLowStock() {
		s.logger.WarnContext(ctx, "stock at or below threshold",
			slog.Int("item_code", item.ItemCode),
			slog.String("size", item.Size),
			slog.Int("quantity", item.Quantity),
			slog.Int("threshold", item.LowStockThreshold),
		)
	}

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.Int("item_code", itemCode),
		slog.String("size", size),
		slog.Int("delta", delta),
		slog.String("reason", reason),
		slog.Int("new_quantity", item.Quantity),
	)
	return item, nil
}

// List returns catalog items with a total count.
func (s *StockService) List(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	return s.repo.List(ctx, page, perPage)
}

// ListLowStock returns items at or below their low-stock threshold.
func (s *StockService) ListLowStock(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	return s.repo.ListLowStock(ctx, page, perPage)
}

// ListMovements returns the movement history for a key, newest first.
func (s *StockService) ListMovements(ctx context.Context, itemCode int, size string, page, perPage int) ([]domain.StockMovement, int, error) {
	return s.repo.ListMovements(ctx, itemCode, size, page, perPage)
}
