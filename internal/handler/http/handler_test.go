package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/internal/event"
	"github.com/utafrali/CampusMerchGo/internal/receipt"
	"github.com/utafrali/CampusMerchGo/internal/repository"
	"github.com/utafrali/CampusMerchGo/internal/service"
	"github.com/utafrali/CampusMerchGo/pkg/database"
	"github.com/utafrali/CampusMerchGo/pkg/httputil"
	pkgkafka "github.com/utafrali/CampusMerchGo/pkg/kafka"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockReservationRepository struct {
	mock.Mock
}

func (m *mockReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	args := m.Called(ctx, res)
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

// ============================================================================
// Test Helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func testReservationService(t *testing.T, repo *mockReservationRepository, stockRepo *mockStockRepository) (*service.ReservationService, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := database.NewMockPool()
	require.NoError(t, err)
	svc := service.NewReservationService(repo, stockRepo, pool, testEventProducer(), receipt.NopSender{}, testLogger())
	return svc, pool
}

// decodeResponse reads the response body into the httputil.Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// jsonRequest builds a request with a JSON body and the right content type.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(raw))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

const (
	validReservationID = "550e8400-e29b-41d4-a716-446655440001"
	validBundleID      = "550e8400-e29b-41d4-a716-446655440002"
	validAuditLogID    = "550e8400-e29b-41d4-a716-446655440003"
)

func sampleStockItem() *domain.StockItem {
	return &domain.StockItem{
		ItemCode:          2001,
		Size:              "M",
		Name:              "School Polo",
		Course:            "BSIT",
		UnitPrice:         100,
		Quantity:          25,
		LowStockThreshold: 5,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
}

func sampleReservation(status string) domain.Reservation {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.Reservation{
		ID:          validReservationID,
		StudentID:   "2021-00123",
		StudentName: "Ana Cruz",
		Course:      "BSIT",
		ItemCode:    2001,
		ItemName:    "School Polo",
		Size:        "M",
		Quantity:    3,
		UnitPrice:   100,
		TotalPrice:  300,
		Status:      status,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}
