package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/internal/event"
	"github.com/utafrali/CampusMerchGo/internal/repository"
	pkgkafka "github.com/utafrali/CampusMerchGo/pkg/kafka"
)

// --- Mock ReservationRepository ---

type mockReservationRepository struct {
	mock.Mock
}

func (m *mockReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *mockReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *mockReservationRepository) GetByBundleID(ctx context.Context, bundleID string) ([]domain.Reservation, error) {
	args := m.Called(ctx, bundleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *mockReservationRepository) List(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Reservation), args.Int(1), args.Error(2)
}

func (m *mockReservationRepository) ListByStatus(ctx context.Context, statuses ...string) ([]domain.Reservation, error) {
	callArgs := make([]interface{}, 0, len(statuses)+1)
	callArgs = append(callArgs, ctx)
	for _, s := range statuses {
		callArgs = append(callArgs, s)
	}
	args := m.Called(callArgs...)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *mockReservationRepository) ListUnpaid(ctx context.Context) ([]domain.Reservation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

// --- Mock StockRepository ---

type mockStockRepository struct {
	mock.Mock
}

func (m *mockStockRepository) GetByKey(ctx context.Context, itemCode int, size string) (*domain.StockItem, error) {
	args := m.Called(ctx, itemCode, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockItem), args.Error(1)
}

func (m *mockStockRepository) GetQuantity(ctx context.Context, itemCode int, size string) (int, error) {
	args := m.Called(ctx, itemCode, size)
	return args.Int(0), args.Error(1)
}

func (m *mockStockRepository) Upsert(ctx context.Context, item *domain.StockItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockStockRepository) Remove(ctx context.Context, itemCode int, size string) error {
	args := m.Called(ctx, itemCode, size)
	return args.Error(0)
}

func (m *mockStockRepository) List(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.StockItem), args.Int(1), args.Error(2)
}

func (m *mockStockRepository) ListLowStock(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.StockItem), args.Int(1), args.Error(2)
}

func (m *mockStockRepository) TryDecrement(ctx context.Context, itemCode int, size string, amount int, reason string, refID *string) error {
	args := m.Called(ctx, itemCode, size, amount, reason, refID)
	return args.Error(0)
}

func (m *mockStockRepository) Increment(ctx context.Context, itemCode int, size string, amount int, reason string, refID *string) error {
	args := m.Called(ctx, itemCode, size, amount, reason, refID)
	return args.Error(0)
}

func (m *mockStockRepository) ListMovements(ctx context.Context, itemCode int, size string, page, perPage int) ([]domain.StockMovement, int, error) {
	args := m.Called(ctx, itemCode, size, page, perPage)
	return args.Get(0).([]domain.StockMovement), args.Int(1), args.Error(2)
}

// --- Mock AuditLogRepository ---

type mockAuditLogRepository struct {
	mock.Mock
}

func (m *mockAuditLogRepository) Create(ctx context.Context, log *domain.StockAuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *mockAuditLogRepository) GetByID(ctx context.Context, id string) (*domain.StockAuditLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockAuditLog), args.Error(1)
}

func (m *mockAuditLogRepository) ListPending(ctx context.Context) ([]domain.StockAuditLog, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.StockAuditLog), args.Error(1)
}

func (m *mockAuditLogRepository) List(ctx context.Context, page, perPage int) ([]domain.StockAuditLog, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.StockAuditLog), args.Int(1), args.Error(2)
}

func (m *mockAuditLogRepository) Reject(ctx context.Context, id, approverID, notes string, decidedAt time.Time) error {
	args := m.Called(ctx, id, approverID, notes, decidedAt)
	return args.Error(0)
}

// --- Mock CartRepository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, studentID string) (*domain.Cart, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Clear(ctx context.Context, studentID string) error {
	args := m.Called(ctx, studentID)
	return args.Error(0)
}

// --- Mock receipt sender ---

type mockReceiptSender struct {
	mock.Mock
}

func (m *mockReceiptSender) Send(ctx context.Context, receipt *event.ReceiptData) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer returns a producer pointed at an unreachable broker.
// Publish failures are logged and never fail the business operation, so
// tests exercise exactly that path.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}
