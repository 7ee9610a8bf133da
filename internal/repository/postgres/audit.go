package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/pkg/database"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

const auditColumns = `id, staff_id, item_code, item_size, quantity_before, quantity_after,
	quantity_changed, reason, status, approved_by, notes, created_at, decided_at`

// AuditLogRepository implements repository.AuditLogRepository using PostgreSQL.
type AuditLogRepository struct {
	pool database.DBTX
}

// NewAuditLogRepository creates a new PostgreSQL-backed audit log repository.
func NewAuditLogRepository(pool database.DBTX) *AuditLogRepository {
	return &AuditLogRepository{pool: pool}
}

func scanAuditLog(row pgx.Row) (*domain.StockAuditLog, error) {
	var l domain.StockAuditLog
	err := row.Scan(
		&l.ID,
		&l.StaffID,
		&l.ItemCode,
		&l.ItemSize,
		&l.QuantityBefore,
		&l.QuantityAfter,
		&l.QuantityChanged,
		&l.Reason,
		&l.Status,
		&l.ApprovedBy,
		&l.Notes,
		&l.CreatedAt,
		&l.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a new pending audit log entry.
func (r *AuditLogRepository) Create(ctx context.Context, log *domain.StockAuditLog) error {
	query := `
		INSERT INTO stock_audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.StaffID,
		log.ItemCode,
		log.ItemSize,
		log.QuantityBefore,
		log.QuantityAfter,
		log.QuantityChanged,
		log.Reason,
		log.Status,
		log.ApprovedBy,
		log.Notes,
		log.CreatedAt,
		log.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// GetByID retrieves an audit log entry by id.
func (r *AuditLogRepository) GetByID(ctx context.Context, id string) (*domain.StockAuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM stock_audit_logs WHERE id = $1`

	log, err := scanAuditLog(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("audit log", id)
		}
		return nil, fmt.Errorf("get audit log by id: %w", err)
	}
	return log, nil
}

// ListPending returns all entries still awaiting a decision, oldest first.
func (r *AuditLogRepository) ListPending(ctx context.Context) ([]domain.StockAuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM stock_audit_logs WHERE status = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, domain.AuditStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.StockAuditLog
	for rows.Next() {
		l, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit log row: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log rows: %w", err)
	}
	if logs == nil {
		logs = []domain.StockAuditLog{}
	}
	return logs, nil
}

// List returns all entries with a total count, newest first.
func (r *AuditLogRepository) List(ctx context.Context, page, perPage int) ([]domain.StockAuditLog, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	query := `SELECT ` + auditColumns + `, count(*) OVER() AS total_count
		FROM stock_audit_logs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var (
		logs       []domain.StockAuditLog
		totalCount int
	)
	for rows.Next() {
		var l domain.StockAuditLog
		if err := rows.Scan(
			&l.ID,
			&l.StaffID,
			&l.ItemCode,
			&l.ItemSize,
			&l.QuantityBefore,
			&l.QuantityAfter,
			&l.QuantityChanged,
			&l.Reason,
			&l.Status,
			&l.ApprovedBy,
			&l.Notes,
			&l.CreatedAt,
			&l.DecidedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit log row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit log rows: %w", err)
	}
	if logs == nil {
		logs = []domain.StockAuditLog{}
	}
	return logs, totalCount, nil
}

// Reject marks a pending entry REJECTED. The WHERE clause doubles as the
// not-already-decided check, so a second decision can never overwrite the
// first.
func (r *AuditLogRepository) Reject(ctx context.Context, id, approverID, notes string, decidedAt time.Time) error {
	query := `
		UPDATE stock_audit_logs
		SET status = $1, approved_by = $2, notes = $3, decided_at = $4
		WHERE id = $5 AND status = $6`

	ct, err := r.pool.Exec(ctx, query,
		domain.AuditStatusRejected, approverID, notes, decidedAt, id, domain.AuditStatusPending)
	if err != nil {
		return fmt.Errorf("reject audit log: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("audit log %s is not pending", id))
	}
	return nil
}
