package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/pkg/database"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

const stockColumns = `item_code, size, name, course, unit_price, quantity, low_stock_threshold, created_at, updated_at`

// StockRepository implements repository.StockRepository using PostgreSQL.
// The sufficiency check of TryDecrement and its mutation happen in one
// conditional UPDATE, so a concurrent decrement can never drive a key
// negative.
type StockRepository struct {
	pool database.DBTX
}

// NewStockRepository creates a new PostgreSQL-backed stock repository.
func NewStockRepository(pool database.DBTX) *StockRepository {
	return &StockRepository{pool: pool}
}

func scanStockItem(row pgx.Row) (*domain.StockItem, error) {
	var s domain.StockItem
	err := row.Scan(
		&s.ItemCode,
		&s.Size,
		&s.Name,
		&s.Course,
		&s.UnitPrice,
		&s.Quantity,
		&s.LowStockThreshold,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByKey retrieves the ledger record for one (item code, size) key.
func (r *StockRepository) GetByKey(ctx context.Context, itemCode int, size string) (*domain.StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE item_code = $1 AND size = $2`

	item, err := scanStockItem(r.pool.QueryRow(ctx, query, itemCode, size))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("stock item", fmt.Sprintf("%d/%s", itemCode, size))
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return item, nil
}

// GetQuantity returns the current quantity for a key, 0 when the key is unknown.
func (r *StockRepository) GetQuantity(ctx context.Context, itemCode int, size string) (int, error) {
	query := `SELECT quantity FROM stock_items WHERE item_code = $1 AND size = $2`

	var quantity int
	err := r.pool.QueryRow(ctx, query, itemCode, size).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get stock quantity: %w", err)
	}
	return quantity, nil
}

// Upsert creates or updates a catalog item.
func (r *StockRepository) Upsert(ctx context.Context, item *domain.StockItem) error {
	query := `
		INSERT INTO stock_items (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (item_code, size) DO UPDATE SET
			name = EXCLUDED.name,
			course = EXCLUDED.course,
			unit_price = EXCLUDED.unit_price,
			quantity = EXCLUDED.quantity,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		item.ItemCode,
		item.Size,
		item.Name,
		item.Course,
		item.UnitPrice,
		item.Quantity,
		item.LowStockThreshold,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock item: %w", err)
	}
	return nil
}

// Remove deletes a catalog item.
func (r *StockRepository) Remove(ctx context.Context, itemCode int, size string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM stock_items WHERE item_code = $1 AND size = $2`, itemCode, size)
	if err != nil {
		return fmt.Errorf("remove stock item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("stock item", fmt.Sprintf("%d/%s", itemCode, size))
	}
	return nil
}

// List returns catalog items with a total count.
func (r *StockRepository) List(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	query := `SELECT ` + stockColumns + `, count(*) OVER() AS total_count
		FROM stock_items ORDER BY item_code ASC, size ASC LIMIT $1 OFFSET $2`
	return r.listItems(ctx, query, page, perPage)
}

// ListLowStock returns items at or below their low-stock threshold.
func (r *StockRepository) ListLowStock(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	query := `SELECT ` + stockColumns + `, count(*) OVER() AS total_count
		FROM stock_items WHERE quantity <= low_stock_threshold
		ORDER BY quantity ASC, item_code ASC LIMIT $1 OFFSET $2`
	return r.listItems(ctx, query, page, perPage)
}

func (r *StockRepository) listItems(ctx context.Context, query string, page, perPage int) ([]domain.StockItem, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	rows, err := r.pool.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()

	var (
		items      []domain.StockItem
		totalCount int
	)
	for rows.Next() {
		var s domain.StockItem
		if err := rows.Scan(
			&s.ItemCode,
			&s.Size,
			&s.Name,
			&s.Course,
			&s.UnitPrice,
			&s.Quantity,
			&s.LowStockThreshold,
			&s.CreatedAt,
			&s.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan stock item row: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stock item rows: %w", err)
	}
	if items == nil {
		items = []domain.StockItem{}
	}
	return items, totalCount, nil
}

// TryDecrement removes amount units iff the current quantity is sufficient,
// recording a movement row in the same transaction.
func (r *StockRepository) TryDecrement(ctx context.Context, itemCode int, size string, amount int, reason string, refID *string) error {
	if amount < 0 {
		return apperrors.InvalidInput("decrement amount must be non-negative")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin decrement transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The WHERE clause is the sufficiency check; zero rows affected means
	// either an unknown key or not enough stock.
	updateQuery := `
		UPDATE stock_items
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE item_code = $2 AND size = $3 AND quantity >= $1`

	ct, err := tx.Exec(ctx, updateQuery, amount, itemCode, size)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.InsufficientStock(fmt.Sprintf("insufficient stock for item %d size %s: requested %d", itemCode, size, amount))
	}

	if err := insertMovement(ctx, tx, itemCode, size, -amount, reason, refID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit decrement transaction: %w", err)
	}
	return nil
}

// Increment adds amount units, recording a movement row in the same transaction.
func (r *StockRepository) Increment(ctx context.Context, itemCode int, size string, amount int, reason string, refID *string) error {
	if amount < 0 {
		return apperrors.InvalidInput("increment amount must be non-negative")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin increment transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updateQuery := `
		UPDATE stock_items
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE item_code = $2 AND size = $3`

	ct, err := tx.Exec(ctx, updateQuery, amount, itemCode, size)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("stock item", fmt.Sprintf("%d/%s", itemCode, size))
	}

	if err := insertMovement(ctx, tx, itemCode, size, amount, reason, refID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit increment transaction: %w", err)
	}
	return nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, itemCode int, size string, change int, reason string, refID *string) error {
	query := `
		INSERT INTO stock_movements (id, item_code, size, quantity_change, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query, uuid.New().String(), itemCode, size, change, reason, refID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// ListMovements returns the movement history for a key, newest first.
func (r *StockRepository) ListMovements(ctx context.Context, itemCode int, size string, page, perPage int) ([]domain.StockMovement, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	query := `
		SELECT id, item_code, size, quantity_change, reason, reference_id, created_at,
			count(*) OVER() AS total_count
		FROM stock_movements
		WHERE item_code = $1 AND size = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, itemCode, size, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var (
		movements  []domain.StockMovement
		totalCount int
	)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(
			&m.ID,
			&m.ItemCode,
			&m.Size,
			&m.QuantityChange,
			&m.Reason,
			&m.ReferenceID,
			&m.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan stock movement row: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stock movement rows: %w", err)
	}
	if movements == nil {
		movements = []domain.StockMovement{}
	}
	return movements, totalCount, nil
}
