package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/internal/repository"
	"github.com/utafrali/CampusMerchGo/pkg/database"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

const reservationColumns = `id, bundle_id, student_id, student_name, course, item_code, item_name, size,
	quantity, unit_price, total_price, status, paid, payment_method, reason, stock_deducted,
	completed_at, created_at, updated_at`

// ReservationRepository implements repository.ReservationRepository using PostgreSQL.
type ReservationRepository struct {
	pool database.DBTX
}

// NewReservationRepository creates a new PostgreSQL-backed reservation repository.
func NewReservationRepository(pool database.DBTX) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var r domain.Reservation
	err := row.Scan(
		&r.ID,
		&r.BundleID,
		&r.StudentID,
		&r.StudentName,
		&r.Course,
		&r.ItemCode,
		&r.ItemName,
		&r.Size,
		&r.Quantity,
		&r.UnitPrice,
		&r.TotalPrice,
		&r.Status,
		&r.Paid,
		&r.PaymentMethod,
		&r.Reason,
		&r.StockDeducted,
		&r.CompletedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}
	if reservations == nil {
		reservations = []domain.Reservation{}
	}
	return reservations, nil
}

// Create inserts a new reservation row.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query,
		res.ID,
		res.BundleID,
		res.StudentID,
		res.StudentName,
		res.Course,
		res.ItemCode,
		res.ItemName,
		res.Size,
		res.Quantity,
		res.UnitPrice,
		res.TotalPrice,
		res.Status,
		res.Paid,
		res.PaymentMethod,
		res.Reason,
		res.StockDeducted,
		res.CompletedAt,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by its unique identifier.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("reservation", id)
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}
	return res, nil
}

// GetByBundleID retrieves all member reservations of a bundle, oldest first.
func (r *ReservationRepository) GetByBundleID(ctx context.Context, bundleID string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE bundle_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, bundleID)
	if err != nil {
		return nil, fmt.Errorf("get reservations by bundle id: %w", err)
	}
	return collectReservations(rows)
}

// List returns reservations matching the filter with a total count.
func (r *ReservationRepository) List(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, int, error) {
	page := filter.Page
	perPage := filter.PerPage
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.StudentID != "" {
		conditions = append(conditions, "student_id = "+arg(filter.StudentID))
	}
	if filter.BundleID != "" {
		conditions = append(conditions, "bundle_id = "+arg(filter.BundleID))
	}
	if filter.ItemCode != 0 {
		conditions = append(conditions, "item_code = "+arg(filter.ItemCode))
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status = ANY("+arg(filter.Statuses)+")")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT ` + reservationColumns + `, count(*) OVER() AS total_count FROM reservations` +
		where + ` ORDER BY created_at DESC, id DESC LIMIT ` + arg(perPage) + ` OFFSET ` + arg((page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var (
		reservations []domain.Reservation
		totalCount   int
	)
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.BundleID,
			&res.StudentID,
			&res.StudentName,
			&res.Course,
			&res.ItemCode,
			&res.ItemName,
			&res.Size,
			&res.Quantity,
			&res.UnitPrice,
			&res.TotalPrice,
			&res.Status,
			&res.Paid,
			&res.PaymentMethod,
			&res.Reason,
			&res.StockDeducted,
			&res.CompletedAt,
			&res.CreatedAt,
			&res.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reservation rows: %w", err)
	}
	if reservations == nil {
		reservations = []domain.Reservation{}
	}
	return reservations, totalCount, nil
}

// ListByStatus returns all reservations currently in any of the given statuses.
func (r *ReservationRepository) ListByStatus(ctx context.Context, statuses ...string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE status = ANY($1) ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, statuses)
	if err != nil {
		return nil, fmt.Errorf("list reservations by status: %w", err)
	}
	return collectReservations(rows)
}

// ListUnpaid returns approved reservations still awaiting payment.
func (r *ReservationRepository) ListUnpaid(ctx context.Context) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status = $1 AND paid = FALSE ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, domain.StatusApprovedWaitingPayment)
	if err != nil {
		return nil, fmt.Errorf("list unpaid reservations: %w", err)
	}
	return collectReservations(rows)
}
