package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/pkg/database"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupStockRepo(t *testing.T) (*StockRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewStockRepository(mock)
	return repo, mock
}

var stockCols = []string{
	"item_code", "size", "name", "course", "unit_price",
	"quantity", "low_stock_threshold", "created_at", "updated_at",
}

func sampleStockItem() domain.StockItem {
	return domain.StockItem{
		ItemCode:          2001,
		Size:              "M",
		Name:              "School Polo",
		Course:            "BSIT",
		UnitPrice:         300,
		Quantity:          25,
		LowStockThreshold: 5,
		CreatedAt:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// GetByKey / GetQuantity
// ---------------------------------------------------------------------------

func TestStockRepository_GetByKey_Success(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	s := sampleStockItem()
	mock.ExpectQuery("SELECT .+ FROM stock_items WHERE").
		WithArgs(s.ItemCode, s.Size).
		WillReturnRows(
			pgxmock.NewRows(stockCols).
				AddRow(s.ItemCode, s.Size, s.Name, s.Course, s.UnitPrice,
					s.Quantity, s.LowStockThreshold, s.CreatedAt, s.UpdatedAt),
		)

	result, err := repo.GetByKey(context.Background(), s.ItemCode, s.Size)
	require.NoError(t, err)
	assert.Equal(t, s.ItemCode, result.ItemCode)
	assert.Equal(t, s.Size, result.Size)
	assert.Equal(t, s.Quantity, result.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_GetQuantity_UnknownKeyIsZero(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT quantity FROM stock_items WHERE").
		WithArgs(9999, "XL").
		WillReturnError(pgx.ErrNoRows)

	qty, err := repo.GetQuantity(context.Background(), 9999, "XL")
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_GetQuantity_Known(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT quantity FROM stock_items WHERE").
		WithArgs(2001, "M").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(25))

	qty, err := repo.GetQuantity(context.Background(), 2001, "M")
	require.NoError(t, err)
	assert.Equal(t, 25, qty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// TryDecrement
// ---------------------------------------------------------------------------

func TestStockRepository_TryDecrement_Success(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	refID := "res-1"
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stock_items").
		WithArgs(3, 2001, "M").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(pgxmock.AnyArg(), 2001, "M", -3, domain.MovementReasonApproval, &refID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.TryDecrement(context.Background(), 2001, "M", 3, domain.MovementReasonApproval, &refID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_TryDecrement_InsufficientStock(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stock_items").
		WithArgs(50, 2001, "M").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.TryDecrement(context.Background(), 2001, "M", 50, domain.MovementReasonApproval, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_TryDecrement_NegativeAmount(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	err := repo.TryDecrement(context.Background(), 2001, "M", -1, domain.MovementReasonApproval, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// ---------------------------------------------------------------------------
// Increment
// ---------------------------------------------------------------------------

func TestStockRepository_Increment_Success(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stock_items").
		WithArgs(3, 2001, "M").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(pgxmock.AnyArg(), 2001, "M", 3, domain.MovementReasonReturn, (*string)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Increment(context.Background(), 2001, "M", 3, domain.MovementReasonReturn, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_Increment_UnknownKey(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stock_items").
		WithArgs(1, 9999, "XL").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Increment(context.Background(), 9999, "XL", 1, domain.MovementReasonReturn, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Upsert / Remove
// ---------------------------------------------------------------------------

func TestStockRepository_Upsert_Success(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	s := sampleStockItem()
	mock.ExpectExec("INSERT INTO stock_items").
		WithArgs(s.ItemCode, s.Size, s.Name, s.Course, s.UnitPrice,
			s.Quantity, s.LowStockThreshold, s.CreatedAt, s.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Upsert(context.Background(), &s)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_Remove_NotFound(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM stock_items").
		WithArgs(9999, "XL").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Remove(context.Background(), 9999, "XL")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListLowStock / ListMovements
// ---------------------------------------------------------------------------

func TestStockRepository_ListLowStock(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	s := sampleStockItem()
	s.Quantity = 2
	cols := append(append([]string{}, stockCols...), "total_count")
	mock.ExpectQuery("SELECT .+ FROM stock_items WHERE quantity <= low_stock_threshold").
		WithArgs(20, 0).
		WillReturnRows(
			pgxmock.NewRows(cols).
				AddRow(s.ItemCode, s.Size, s.Name, s.Course, s.UnitPrice,
					s.Quantity, s.LowStockThreshold, s.CreatedAt, s.UpdatedAt, 1),
		)

	items, total, err := repo.ListLowStock(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockRepository_ListMovements(t *testing.T) {
	repo, mock := setupStockRepo(t)
	defer mock.Close()

	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "item_code", "size", "quantity_change", "reason", "reference_id", "created_at", "total_count"}
	mock.ExpectQuery("SELECT .+ FROM stock_movements").
		WithArgs(2001, "M", 20, 0).
		WillReturnRows(
			pgxmock.NewRows(cols).
				AddRow("m1", 2001, "M", -3, domain.MovementReasonApproval, (*string)(nil), now, 2).
				AddRow("m2", 2001, "M", 3, domain.MovementReasonReturn, (*string)(nil), now, 2),
		)

	movements, total, err := repo.ListMovements(context.Background(), 2001, "M", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, movements, 2)
	assert.Equal(t, -3, movements[0].QuantityChange)
	assert.NoError(t, mock.ExpectationsWereMet())
}
