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
	"github.com/utafrali/CampusMerchGo/internal/receipt"
	"github.com/utafrali/CampusMerchGo/internal/repository"
	"github.com/utafrali/CampusMerchGo/pkg/database"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

// CreateReservationInput carries the buyer snapshot and the requested line
// for a new reservation.
type CreateReservationInput struct {
	StudentID   string
	StudentName string
	Course      string
	ItemCode    int
	Size        string
	Quantity    int
	BundleID    *string
}

// BundleLine is one requested line of a cart checkout.
type BundleLine struct {
	ItemCode int
	Size     string
	Quantity int
}

// LineFailure records a checkout line that could not be created.
type LineFailure struct {
	ItemCode int    `json:"item_code"`
	Size     string `json:"size"`
	Error    string `json:"error"`
}

// BundleCreateResult is the partial-success report of a bundle checkout.
// Lines that failed validation do not roll back their created siblings.
type BundleCreateResult struct {
	BundleID string               `json:"bundle_id"`
	Created  []domain.Reservation `json:"created"`
	Failures []LineFailure        `json:"failures,omitempty"`
}

// ReservationService orchestrates the reservation lifecycle. It is the only
// writer of reservation status and the only caller of reservation-driven
// ledger mutations. Status transitions run inside transactions with the
// reservation row locked, so two operators can never approve or cancel the
// same order concurrently.
type ReservationService struct {
	repo      repository.ReservationRepository
	stockRepo repository.StockRepository
	pool      database.DBTX
	producer  *event.Producer
	receipts  receipt.Sender
	logger    *slog.Logger
	now       func() time.Time
}

// NewReservationService creates a new reservation service.
func NewReservationService(
	repo repository.ReservationRepository,
	stockRepo repository.StockRepository,
	pool database.DBTX,
	producer *event.Producer,
	receipts receipt.Sender,
	logger *slog.Logger,
) *ReservationService {
	return &ReservationService{
		repo:      repo,
		stockRepo: stockRepo,
		pool:      pool,
		producer:  producer,
		receipts:  receipts,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Used by tests to pin the
// return-window boundary.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// transitionConflict turns an illegal state-machine transition into the
// conflict outcome callers expect for repeated or out-of-order operations.
func transitionConflict(err error) error {
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return apperrors.Conflict(te.Error())
	}
	return err
}

// ---------------------------------------------------------------------------
// Creation
// ---------------------------------------------------------------------------

// Create validates availability and records a new PENDING reservation.
// Stock is only checked here, never committed; the decrement happens at
// approval time.
func (s *ReservationService) Create(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error) {
	if input.StudentID == "" {
		return nil, apperrors.InvalidInput("student_id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	item, err := s.stockRepo.GetByKey(ctx, input.ItemCode, input.Size)
	if err != nil {
		return nil, fmt.Errorf("look up item for reservation: %w", err)
	}
	if item.Quantity < input.Quantity {
		return nil, apperrors.InsufficientStock(fmt.Sprintf(
			"insufficient stock for item %d size %s: requested %d, available %d",
			input.ItemCode, input.Size, input.Quantity, item.Quantity,
		))
	}

	now := s.now()
	res := &domain.Reservation{
		ID:          uuid.New().String(),
		BundleID:    input.BundleID,
		StudentID:   input.StudentID,
		StudentName: input.StudentName,
		Course:      input.Course,
		ItemCode:    item.ItemCode,
		ItemName:    item.Name,
		Size:        item.Size,
		Quantity:    input.Quantity,
		UnitPrice:   item.UnitPrice,
		TotalPrice:  item.UnitPrice * int64(input.Quantity),
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	if err := s.producer.PublishReservationCreated(ctx, res); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reservation.created event",
			slog.String("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "reservation created",
		slog.String("reservation_id", res.ID),
		slog.String("student_id", res.StudentID),
		slog.Int("item_code", res.ItemCode),
		slog.String("size", res.Size),
		slog.Int("quantity", res.Quantity),
	)

	return res, nil
}

// CreateBundle creates one reservation per checkout line under a single
// generated bundle id. A line that fails validation is reported in the
// result and does not roll back already-created siblings.
func (s *ReservationService) CreateBundle(ctx context.Context, studentID, studentName, course string, lines []BundleLine) (*BundleCreateResult, error) {
	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("checkout requires at least one line")
	}

	bundleID := uuid.New().String()
	result := &BundleCreateResult{BundleID: bundleID}

	for _, line := range lines {
		res, err := s.Create(ctx, CreateReservationInput{
			StudentID:   studentID,
			StudentName: studentName,
			Course:      course,
			ItemCode:    line.ItemCode,
			Size:        line.Size,
			Quantity:    line.Quantity,
			BundleID:    &bundleID,
		})
		if err != nil {
			result.Failures = append(result.Failures, LineFailure{
				ItemCode: line.ItemCode,
				Size:     line.Size,
				Error:    err.Error(),
			})
			continue
		}
		result.Created = append(result.Created, *res)
	}

	s.logger.InfoContext(ctx, "bundle checkout",
		slog.String("bundle_id", bundleID),
		slog.String("student_id", studentID),
		slog.Int("lines", len(lines)),
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Failures)),
	)

	return result, nil
}

// ---------------------------------------------------------------------------
// Transactional transitions
// ---------------------------------------------------------------------------

const lockReservationQuery = `
	SELECT id, bundle_id, student_id, student_name, course, item_code, item_name, size,
		quantity, unit_price, total_price, status, paid, payment_method, reason, stock_deducted,
		completed_at, created_at, updated_at
	FROM reservations
	WHERE id = $1
	FOR UPDATE`

func lockReservation(ctx context.Context, tx pgx.Tx, id string) (*domain.Reservation, error) {
	var r domain.Reservation
	err := tx.QueryRow(ctx, lockReservationQuery, id).Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("reservation", id)
		}
		return nil, fmt.Errorf("lock reservation: %w", err)
	}
	return &r, nil
}

func insertMovementTx(ctx context.Context, tx pgx.Tx, itemCode int, size string, change int, reason, refID string, at time.Time) error {
	query := `
		INSERT INTO stock_movements (id, item_code, size, quantity_change, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := tx.Exec(ctx, query, uuid.New().String(), itemCode, size, change, reason, &refID, at); err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// Approve performs PENDING -> APPROVED_WAITING_PAYMENT, committing the
// stock decrement in the same transaction. When stock ran out between
// creation and approval, the reservation stays PENDING and the caller gets
// the insufficient-stock outcome.
func (s *ReservationService) Approve(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin approve transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return err
	}

	next, effect, err := domain.Transition(res.Status, domain.EventApprove)
	if err != nil {
		return transitionConflict(err)
	}

	if effect == domain.EffectDecrement {
		ct, err := tx.Exec(ctx, `
			UPDATE stock_items
			SET quantity = quantity - $1, updated_at = NOW()
			WHERE item_code = $2 AND size = $3 AND quantity >= $1`,
			res.Quantity, res.ItemCode, res.Size)
		if err != nil {
			return fmt.Errorf("decrement stock for approval: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.InsufficientStock(fmt.Sprintf(
				"insufficient stock for item %d size %s: requested %d",
				res.ItemCode, res.Size, res.Quantity,
			))
		}
		if err := insertMovementTx(ctx, tx, res.ItemCode, res.Size, -res.Quantity,
			domain.MovementReasonApproval, res.ID, s.now()); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE reservations
		SET status = $1, stock_deducted = TRUE, updated_at = NOW()
		WHERE id = $2`, next, id); err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit approve transaction: %w", err)
	}

	s.publishStatusChanged(ctx, id, res.Status, next, domain.EventApprove)

	s.logger.InfoContext(ctx, "reservation approved",
		slog.String("reservation_id", id),
		slog.Int("item_code", res.ItemCode),
		slog.String("size", res.Size),
		slog.Int("quantity", res.Quantity),
	)
	return nil
}

// Cancel moves any pre-pickup reservation to CANCELLED, returning its
// quantity to the ledger iff stock was actually committed. A second cancel
// finds the row already CANCELLED and fails without re-incrementing.
func (s *ReservationService) Cancel(ctx context.Context, id, reason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cancel transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return err
	}

	next, effect, err := domain.Transition(res.Status, domain.EventCancel)
	if err != nil {
		return transitionConflict(err)
	}

	if effect == domain.EffectRestockIfDeducted && res.StockDeducted {
		if _, err := tx.Exec(ctx, `
			UPDATE stock_items
			SET quantity = quantity + $1, updated_at = NOW()
			WHERE item_code = $2 AND size = $3`,
			res.Quantity, res.ItemCode, res.Size); err != nil {
			return fmt.Errorf("restock cancelled reservation: %w", err)
		}
		if err := insertMovementTx(ctx, tx, res.ItemCode, res.Size, res.Quantity,
			domain.MovementReasonCancellation, res.ID, s.now()); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE reservations
		SET status = $1, reason = $2, stock_deducted = FALSE, updated_at = NOW()
		WHERE id = $3`, next, reason, id); err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cancel transaction: %w", err)
	}

	res.Status = next
	res.Reason = reason
	if err := s.producer.PublishReservationCancelled(ctx, res); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reservation.cancelled event",
			slog.String("reservation_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "reservation cancelled",
		slog.String("reservation_id", id),
		slog.String("reason", reason),
		slog.Bool("restocked", res.StockDeducted),
	)
	return nil
}

// MarkAsPaid performs APPROVED_WAITING_PAYMENT -> PAID_AWAITING_PICKUP_APPROVAL.
// Payment is financially sensitive, so a reservation that is already paid is
// a hard conflict; the recorded payment method is never overwritten.
func (s *ReservationService) MarkAsPaid(ctx context.Context, id, method string) error {
	if method == "" {
		return apperrors.InvalidInput("payment method is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin payment transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return err
	}
	if res.Paid {
		return apperrors.Conflict(fmt.Sprintf("reservation %s is already paid", id))
	}

	next, _, err := domain.Transition(res.Status, domain.EventPay)
	if err != nil {
		return transitionConflict(err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE reservations
		SET status = $1, paid = TRUE, payment_method = $2, updated_at = NOW()
		WHERE id = $3`, next, method, id); err != nil {
		return fmt.Errorf("update reservation payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit payment transaction: %w", err)
	}

	receiptData := &event.ReceiptData{
		ReservationID: res.ID,
		BundleID:      res.BundleID,
		StudentID:     res.StudentID,
		StudentName:   res.StudentName,
		Course:        res.Course,
		ItemCode:      res.ItemCode,
		ItemName:      res.ItemName,
		Size:          res.Size,
		Quantity:      res.Quantity,
		UnitPrice:     res.UnitPrice,
		TotalPrice:    res.TotalPrice,
		PaymentMethod: method,
		PaidAt:        s.now(),
	}
	if err := s.producer.PublishReservationPaid(ctx, receiptData); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reservation.paid event",
			slog.String("reservation_id", id),
			slog.String("error", err.Error()),
		)
	}
	if err := s.receipts.Send(ctx, receiptData); err != nil {
		s.logger.ErrorContext(ctx, "failed to deliver receipt",
			slog.String("reservation_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "reservation paid",
		slog.String("reservation_id", id),
		slog.String("payment_method", method),
		slog.Int64("total_price", res.TotalPrice),
	)
	return nil
}

// transition applies a pure status event with no ledger effect and no extra
// column writes beyond status, reason and completed_at.
func (s *ReservationService) transition(ctx context.Context, id, eventName, reason string, setCompletedAt bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return err
	}

	next, _, err := domain.Transition(res.Status, eventName)
	if err != nil {
		return transitionConflict(err)
	}

	if setCompletedAt {
		if _, err := tx.Exec(ctx, `
			UPDATE reservations
			SET status = $1, completed_at = $2, updated_at = NOW()
			WHERE id = $3`, next, s.now(), id); err != nil {
			return fmt.Errorf("update reservation status: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx, `
			UPDATE reservations
			SET status = $1, reason = $2, updated_at = NOW()
			WHERE id = $3`, next, reason, id); err != nil {
			return fmt.Errorf("update reservation status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transition transaction: %w", err)
	}

	s.publishStatusChanged(ctx, id, res.Status, next, eventName)

	s.logger.InfoContext(ctx, "reservation transitioned",
		slog.String("reservation_id", id),
		slog.String("event", eventName),
		slog.String("from", res.Status),
		slog.String("to", next),
	)
	return nil
}

// RequestPickup performs PAID_AWAITING_PICKUP_APPROVAL -> PICKUP_REQUESTED.
func (s *ReservationService) RequestPickup(ctx context.Context, id string) error {
	return s.transition(ctx, id, domain.EventRequestPickup, "", false)
}

// ApprovePickup performs PICKUP_REQUESTED -> APPROVED_FOR_PICKUP.
func (s *ReservationService) ApprovePickup(ctx context.Context, id string) error {
	return s.transition(ctx, id, domain.EventApprovePickup, "", false)
}

// Claim performs APPROVED_FOR_PICKUP -> COMPLETED and stamps completed_at,
// which starts the return-window clock.
func (s *ReservationService) Claim(ctx context.Context, id string) error {
	return s.transition(ctx, id, domain.EventClaim, "", true)
}

// ---------------------------------------------------------------------------
// Returns
// ---------------------------------------------------------------------------

// RequestReturn performs COMPLETED -> RETURN_REQUESTED for the full
// quantity, enforcing the 10-day window from pickup. The boundary is
// inclusive.
func (s *ReservationService) RequestReturn(ctx context.Context, id, reason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin return transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return err
	}

	next, _, err := domain.Transition(res.Status, domain.EventRequestReturn)
	if err != nil {
		return transitionConflict(err)
	}
	if !res.WithinReturnWindow(s.now()) {
		return apperrors.InvalidInput(fmt.Sprintf("return window of %d days has expired", domain.ReturnWindowDays))
	}

	if _, err := tx.Exec(ctx, `
		UPDATE reservations
		SET status = $1, reason = $2, updated_at = NOW()
		WHERE id = $3`, next, reason, id); err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit return transaction: %w", err)
	}

	s.publishStatusChanged(ctx, id, res.Status, next, domain.EventRequestReturn)

	s.logger.InfoContext(ctx, "return requested",
		slog.String("reservation_id", id),
		slog.String("reason", reason),
	)
	return nil
}

// RequestPartialReturn returns qty of the reservation's units. The original
// row is reduced and keeps its status; a new row for the returned units
// enters RETURN_REQUESTED with a proportional share of the total price.
// Both rows are persisted in one transaction, so their quantities always
// sum to the original. Returns the id of the new return row.
func (s *ReservationService) RequestPartialReturn(ctx context.Context, id string, qty int, reason string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin partial return transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return "", err
	}

	next, _, err := domain.Transition(res.Status, domain.EventRequestReturn)
	if err != nil {
		return "", transitionConflict(err)
	}
	if !res.WithinReturnWindow(s.now()) {
		return "", apperrors.InvalidInput(fmt.Sprintf("return window of %d days has expired", domain.ReturnWindowDays))
	}
	if qty == res.Quantity {
		// Full-quantity request, no split needed.
		if _, err := tx.Exec(ctx, `
			UPDATE reservations
			SET status = $1, reason = $2, updated_at = NOW()
			WHERE id = $3`, next, reason, id); err != nil {
			return "", fmt.Errorf("update reservation status: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return "", fmt.Errorf("commit partial return transaction: %w", err)
		}
		s.publishStatusChanged(ctx, id, res.Status, next, domain.EventRequestReturn)
		return id, nil
	}

	now := s.now()
	returned, err := res.SplitForReturn(qty, reason, now)
	if err != nil {
		return "", apperrors.InvalidInput(err.Error())
	}
	returned.ID = uuid.New().String()

	if _, err := tx.Exec(ctx, `
		UPDATE reservations
		SET quantity = $1, total_price = $2, updated_at = $3
		WHERE id = $4`, res.Quantity, res.TotalPrice, now, id); err != nil {
		return "", fmt.Errorf("reduce original reservation: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO reservations (id, bundle_id, student_id, student_name, course, item_code, item_name, size,
			quantity, unit_price, total_price, status, paid, payment_method, reason, stock_deducted,
			completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		returned.ID, returned.BundleID, returned.StudentID, returned.StudentName, returned.Course,
		returned.ItemCode, returned.ItemName, returned.Size, returned.Quantity, returned.UnitPrice,
		returned.TotalPrice, returned.Status, returned.Paid, returned.PaymentMethod, returned.Reason,
		returned.StockDeducted, returned.CompletedAt, returned.CreatedAt, returned.UpdatedAt,
	); err != nil {
		return "", fmt.Errorf("insert return reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit partial return transaction: %w", err)
	}

	s.publishStatusChanged(ctx, returned.ID, res.Status, returned.Status, domain.EventRequestReturn)

	s.logger.InfoContext(ctx, "partial return requested",
		slog.String("reservation_id", id),
		slog.String("return_reservation_id", returned.ID),
		slog.Int("returned_quantity", qty),
		slog.Int("remaining_quantity", res.Quantity),
	)
	return returned.ID, nil
}

// ApproveReturn performs RETURN_REQUESTED -> RETURNED_REFUNDED and returns
// the quantity to the ledger.
func (s *ReservationService) ApproveReturn(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin return approval transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return err
	}

	next, effect, err := domain.Transition(res.Status, domain.EventApproveReturn)
	if err != nil {
		return transitionConflict(err)
	}

	if effect == domain.EffectIncrement {
		if _, err := tx.Exec(ctx, `
			UPDATE stock_items
			SET quantity = quantity + $1, updated_at = NOW()
			WHERE item_code = $2 AND size = $3`,
			res.Quantity, res.ItemCode, res.Size); err != nil {
			return fmt.Errorf("restock returned reservation: %w", err)
		}
		if err := insertMovementTx(ctx, tx, res.ItemCode, res.Size, res.Quantity,
			domain.MovementReasonReturn, res.ID, s.now()); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE reservations
		SET status = $1, updated_at = NOW()
		WHERE id = $2`, next, id); err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit return approval transaction: %w", err)
	}

	res.Status = next
	if err := s.producer.PublishReservationReturned(ctx, res); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reservation.returned event",
			slog.String("reservation_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "return approved",
		slog.String("reservation_id", id),
		slog.Int("quantity", res.Quantity),
	)
	return nil
}

// RejectReturn performs RETURN_REQUESTED -> COMPLETED with the rejection
// reason recorded. The ledger is untouched.
func (s *ReservationService) RejectReturn(ctx context.Context, id, reason string) error {
	return s.transition(ctx, id, domain.EventRejectReturn, reason, false)
}

// ---------------------------------------------------------------------------
// Bundle fan-out
// ---------------------------------------------------------------------------

// fanOut applies op to every member of the bundle for which the event is
// still legal, returning partial-success accounting instead of one boolean.
func (s *ReservationService) fanOut(ctx context.Context, bundleID, eventName string, op func(ctx context.Context, id string) error) (*domain.BatchResult, error) {
	members, err := s.repo.GetByBundleID(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("load bundle members: %w", err)
	}
	if len(members) == 0 {
		return nil, apperrors.NotFound("bundle", bundleID)
	}

	bundle := &domain.Bundle{BundleID: bundleID, Reservations: members}
	result := &domain.BatchResult{}
	for _, member := range bundle.Eligible(eventName) {
		result.Record(member.ID, op(ctx, member.ID))
	}

	s.logger.InfoContext(ctx, "bundle operation",
		slog.String("bundle_id", bundleID),
		slog.String("event", eventName),
		slog.Int("attempted", result.Attempted),
		slog.Int("succeeded", result.Succeeded),
	)
	return result, nil
}

// ApproveBundle approves every still-pending member of the bundle.
func (s *ReservationService) ApproveBundle(ctx context.Context, bundleID string) (*domain.BatchResult, error) {
	return s.fanOut(ctx, bundleID, domain.EventApprove, s.Approve)
}

// PayBundle marks every payable member of the bundle as paid.
func (s *ReservationService) PayBundle(ctx context.Context, bundleID, method string) (*domain.BatchResult, error) {
	return s.fanOut(ctx, bundleID, domain.EventPay, func(ctx context.Context, id string) error {
		return s.MarkAsPaid(ctx, id, method)
	})
}

// RequestBundlePickup requests pickup for every eligible member.
func (s *ReservationService) RequestBundlePickup(ctx context.Context, bundleID string) (*domain.BatchResult, error) {
	return s.fanOut(ctx, bundleID, domain.EventRequestPickup, s.RequestPickup)
}

// ApproveBundlePickup approves pickup for every eligible member.
func (s *ReservationService) ApproveBundlePickup(ctx context.Context, bundleID string) (*domain.BatchResult, error) {
	return s.fanOut(ctx, bundleID, domain.EventApprovePickup, s.ApprovePickup)
}

// ClaimBundle claims every member approved for pickup.
func (s *ReservationService) ClaimBundle(ctx context.Context, bundleID string) (*domain.BatchResult, error) {
	return s.fanOut(ctx, bundleID, domain.EventClaim, s.Claim)
}

// CancelBundle cancels every still-cancellable member of the bundle.
func (s *ReservationService) CancelBundle(ctx context.Context, bundleID, reason string) (*domain.BatchResult, error) {
	return s.fanOut(ctx, bundleID, domain.EventCancel, func(ctx context.Context, id string) error {
		return s.Cancel(ctx, id, reason)
	})
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Get retrieves a single reservation.
func (s *ReservationService) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBundle retrieves the bundle aggregate.
func (s *ReservationService) GetBundle(ctx context.Context, bundleID string) (*domain.Bundle, error) {
	members, err := s.repo.GetByBundleID(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("get bundle: %w", err)
	}
	if len(members) == 0 {
		return nil, apperrors.NotFound("bundle", bundleID)
	}
	return &domain.Bundle{BundleID: bundleID, Reservations: members}, nil
}

// ListPending returns all reservations awaiting approval.
func (s *ReservationService) ListPending(ctx context.Context) ([]domain.Reservation, error) {
	return s.repo.ListByStatus(ctx, domain.StatusPending)
}

// ListUnpaid returns approved reservations awaiting payment.
func (s *ReservationService) ListUnpaid(ctx context.Context) ([]domain.Reservation, error) {
	return s.repo.ListUnpaid(ctx)
}

// ListReturnRequests returns all reservations awaiting a return decision.
func (s *ReservationService) ListReturnRequests(ctx context.Context) ([]domain.Reservation, error) {
	return s.repo.ListByStatus(ctx, domain.StatusReturnRequested)
}

// List returns reservations matching the filter.
func (s *ReservationService) List(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *ReservationService) publishStatusChanged(ctx context.Context, id, from, to, eventName string) {
	if err := s.producer.PublishStatusChanged(ctx, id, from, to, eventName); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reservation.status_changed event",
			slog.String("reservation_id", id),
			slog.String("error", err.Error()),
		)
	}
}
