package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/internal/event"
	"github.com/utafrali/CampusMerchGo/internal/repository"
	"github.com/utafrali/CampusMerchGo/pkg/database"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

// AuditService implements the two-person-control workflow for manual stock
// adjustments. A staff request only snapshots the intended change; nothing
// touches the ledger until a separate approver applies it, and each entry
// can be applied exactly once. Requester/approver role separation is
// enforced by the authorization layer; the workflow refuses double
// application regardless of who calls it.
type AuditService struct {
	repo      repository.AuditLogRepository
	stockRepo repository.StockRepository
	pool      database.DBTX
	producer  *event.Producer
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(
	repo repository.AuditLogRepository,
	stockRepo repository.StockRepository,
	pool database.DBTX,
	producer *event.Producer,
	logger *slog.Logger,
) *AuditService {
	return &AuditService{
		repo:      repo,
		stockRepo: stockRepo,
		pool:      pool,
		producer:  producer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for tests.
func (s *AuditService) WithClock(now func() time.Time) *AuditService {
	s.now = now
	return s
}

// RequestAdjustment files a PENDING audit entry proposing to set the key's
// quantity to newQty. The before/after snapshot is taken now; the ledger is
// untouched until approval.
func (s *AuditService) RequestAdjustment(ctx context.Context, staffID string, itemCode int, size string, newQty int, reason string) (*domain.StockAuditLog, error) {
	if staffID == "" {
		return nil, apperrors.InvalidInput("staff_id is required")
	}
	if newQty < 0 {
		return nil, apperrors.InvalidInput("new quantity must be non-negative")
	}
	if reason == "" {
		return nil, apperrors.InvalidInput("reason is required")
	}

	item, err := s.stockRepo.GetByKey(ctx, itemCode, size)
	if err != nil {
		return nil, fmt.Errorf("look up item for adjustment: %w", err)
	}

	log := &domain.StockAuditLog{
		ID:              uuid.New().String(),
		StaffID:         staffID,
		ItemCode:        itemCode,
		ItemSize:        size,
		QuantityBefore:  item.Quantity,
		QuantityAfter:   newQty,
		QuantityChanged: newQty - item.Quantity,
		Reason:          reason,
		Status:          domain.AuditStatusPending,
		CreatedAt:       s.now(),
	}

	if err := s.repo.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	s.logger.InfoContext(ctx, "stock adjustment requested",
		slog.String("log_id", log.ID),
		slog.String("staff_id", staffID),
		slog.Int("item_code", itemCode),
		slog.String("size", size),
		slog.Int("delta", log.QuantityChanged),
	)
	return log, nil
}

// ApproveAndApply applies a pending entry's delta to the ledger and marks
// it APPROVED, all in one transaction. The entry row is locked for the
// duration, so concurrent approvals of the same entry serialize and the
// loser gets a conflict, never a second application. When the delta would
// drive the key negative the whole approval fails and the entry stays
// PENDING.
func (s *AuditService) ApproveAndApply(ctx context.Context, logID, approverID string) error {
	if approverID == "" {
		return apperrors.InvalidInput("approver_id is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit approval transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		status  string
		staffID string
		code    int
		size    string
		delta   int
	)
	err = tx.QueryRow(ctx, `
		SELECT status, staff_id, item_code, item_size, quantity_changed
		FROM stock_audit_logs
		WHERE id = $1
		FOR UPDATE`, logID).Scan(&status, &staffID, &code, &size, &delta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("audit log", logID)
		}
		return fmt.Errorf("lock audit log: %w", err)
	}
	if status != domain.AuditStatusPending {
		return apperrors.Conflict(fmt.Sprintf("audit log %s is already %s", logID, status))
	}

	switch {
	case delta < 0:
		ct, err := tx.Exec(ctx, `
			UPDATE stock_items
			SET quantity = quantity - $1, updated_at = NOW()
			WHERE item_code = $2 AND size = $3 AND quantity >= $1`,
			-delta, code, size)
		if err != nil {
			return fmt.Errorf("apply audit decrement: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.InsufficientStock(fmt.Sprintf(
				"insufficient stock to apply audit log %s: item %d size %s delta %d", logID, code, size, delta))
		}
	case delta > 0:
		if _, err := tx.Exec(ctx, `
			UPDATE stock_items
			SET quantity = quantity + $1, updated_at = NOW()
			WHERE item_code = $2 AND size = $3`,
			delta, code, size); err != nil {
			return fmt.Errorf("apply audit increment: %w", err)
		}
	}

	if delta != 0 {
		if err := insertMovementTx(ctx, tx, code, size, delta, domain.MovementReasonAudit, logID, s.now()); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE stock_audit_logs
		SET status = $1, approved_by = $2, decided_at = $3
		WHERE id = $4`, domain.AuditStatusApproved, approverID, s.now(), logID); err != nil {
		return fmt.Errorf("mark audit log approved: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit approval transaction: %w", err)
	}

	if err := s.producer.PublishAuditApplied(ctx, &event.AuditAppliedData{
		LogID:           logID,
		StaffID:         staffID,
		ApprovedBy:      approverID,
		ItemCode:        code,
		ItemSize:        size,
		QuantityChanged: delta,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish audit.applied event",
			slog.String("log_id", logID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "stock adjustment approved",
		slog.String("log_id", logID),
		slog.String("approved_by", approverID),
		slog.Int("item_code", code),
		slog.String("size", size),
		slog.Int("delta", delta),
	)
	return nil
}

// Reject marks a pending entry REJECTED with the approver's notes. The
// ledger is untouched, and an already-decided entry is a conflict.
func (s *AuditService) Reject(ctx context.Context, logID, approverID, notes string) error {
	if approverID == "" {
		return apperrors.InvalidInput("approver_id is required")
	}

	if _, err := s.repo.GetByID(ctx, logID); err != nil {
		return fmt.Errorf("look up audit log: %w", err)
	}

	if err := s.repo.Reject(ctx, logID, approverID, notes, s.now()); err != nil {
		return fmt.Errorf("reject audit log: %w", err)
	}

	s.logger.InfoContext(ctx, "stock adjustment rejected",
		slog.String("log_id", logID),
		slog.String("rejected_by", approverID),
	)
	return nil
}

// ListPending returns all entries awaiting a decision.
func (s *AuditService) ListPending(ctx context.Context) ([]domain.StockAuditLog, error) {
	return s.repo.ListPending(ctx)
}

// ListLogs returns the full audit history.
func (s *AuditService) ListLogs(ctx context.Context, page, perPage int) ([]domain.StockAuditLog, int, error) {
	return s.repo.List(ctx, page, perPage)
}
