package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

func newStockService(repo *mockStockRepository) *StockService {
	return NewStockService(repo, newTestProducer(), newTestLogger())
}

// --- UpsertItem ---

func TestUpsertItem_Success(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)

	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.StockItem")).Return(nil)

	item, err := svc.UpsertItem(context.Background(), &domain.StockItem{
		ItemCode:          2001,
		Size:              "M",
		Name:              "School Polo",
		Course:            "BSIT",
		UnitPrice:         100,
		Quantity:          25,
		LowStockThreshold: 5,
	})

	require.NoError(t, err)
	assert.False(t, item.CreatedAt.IsZero())
	assert.False(t, item.UpdatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestUpsertItem_Validation(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)
	ctx := context.Background()

	cases := []struct {
		name string
		item domain.StockItem
	}{
		{"zero item code", domain.StockItem{Size: "M", Quantity: 1}},
		{"missing size", domain.StockItem{ItemCode: 2001, Quantity: 1}},
		{"negative quantity", domain.StockItem{ItemCode: 2001, Size: "M", Quantity: -1}},
		{"negative price", domain.StockItem{ItemCode: 2001, Size: "M", Quantity: 1, UnitPrice: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpsertItem(ctx, &tc.item)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

// --- Adjust ---

func TestAdjust_PositiveDeltaIncrements(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)
	ctx := context.Background()

	after := sampleItem()
	after.Quantity = 30
	repo.On("Increment", ctx, 2001, "M", 5, domain.MovementReasonAudit, (*string)(nil)).Return(nil)
	repo.On("GetByKey", ctx, 2001, "M").Return(after, nil)

	item, err := svc.Adjust(ctx, 2001, "M", 5, domain.MovementReasonAudit)
	require.NoError(t, err)
	assert.Equal(t, 30, item.Quantity)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "TryDecrement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdjust_NegativeDeltaDecrements(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)
	ctx := context.Background()

	after := sampleItem()
	after.Quantity = 20
	repo.On("TryDecrement", ctx, 2001, "M", 5, domain.MovementReasonAudit, (*string)(nil)).Return(nil)
	repo.On("GetByKey", ctx, 2001, "M").Return(after, nil)

	item, err := svc.Adjust(ctx, 2001, "M", -5, domain.MovementReasonAudit)
	require.NoError(t, err)
	assert.Equal(t, 20, item.Quantity)
	repo.AssertExpectations(t)
}

func TestAdjust_InsufficientStock(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)
	ctx := context.Background()

	repo.On("TryDecrement", ctx, 2001, "M", 100, domain.MovementReasonAudit, (*string)(nil)).
		Return(apperrors.InsufficientStock("insufficient stock for item 2001 size M"))

	_, err := svc.Adjust(ctx, 2001, "M", -100, domain.MovementReasonAudit)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	repo.AssertNotCalled(t, "GetByKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdjust_ZeroDelta(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)

	_, err := svc.Adjust(context.Background(), 2001, "M", 0, domain.MovementReasonAudit)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAdjust_InvalidReason(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)

	_, err := svc.Adjust(context.Background(), 2001, "M", 5, "because")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Queries ---

func TestGetQuantity_UnknownKeyIsZero(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)
	ctx := context.Background()

	repo.On("GetQuantity", ctx, 9999, "XL").Return(0, nil)

	qty, err := svc.GetQuantity(ctx, 9999, "XL")
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestListLowStock_PassThrough(t *testing.T) {
	repo := new(mockStockRepository)
	svc := newStockService(repo)
	ctx := context.Background()

	low := sampleItem()
	low.Quantity = 3
	repo.On("ListLowStock", ctx, 1, 20).Return([]domain.StockItem{*low}, 1, nil)

	items, total, err := svc.ListLowStock(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsLowStock())
}
