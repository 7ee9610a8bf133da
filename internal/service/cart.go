package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/internal/repository"
	apperrors "github.com/utafrali/CampusMerchGo/pkg/errors"
)

// CartService manages the per-student cart and turns it into a reservation
// bundle at checkout. The cart is a scratchpad: availability is only
// validated when lines are added and again at checkout, and nothing is
// committed until approval.
type CartService struct {
	repo         repository.CartRepository
	stockRepo    repository.StockRepository
	reservations *ReservationService
	logger       *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	repo repository.CartRepository,
	stockRepo repository.StockRepository,
	reservations *ReservationService,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		repo:         repo,
		stockRepo:    stockRepo,
		reservations: reservations,
		logger:       logger,
	}
}

// AddItem adds a line to the student's cart, merging quantities for
// duplicate keys. The item must exist in the catalog.
func (s *CartService) AddItem(ctx context.Context, studentID string, item domain.CartItem) (*domain.Cart, error) {
	if studentID == "" {
		return nil, apperrors.InvalidInput("student_id is required")
	}
	if item.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	if _, err := s.stockRepo.GetByKey(ctx, item.ItemCode, item.Size); err != nil {
		return nil, fmt.Errorf("look up item for cart: %w", err)
	}

	cart, err := s.repo.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	cart.Merge(item)
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("student_id", studentID),
		slog.Int("item_code", item.ItemCode),
		slog.String("size", item.Size),
		slog.Int("quantity", item.Quantity),
	)
	return cart, nil
}

// GetCart retrieves the student's cart.
func (s *CartService) GetCart(ctx context.Context, studentID string) (*domain.Cart, error) {
	if studentID == "" {
		return nil, apperrors.InvalidInput("student_id is required")
	}
	return s.repo.Get(ctx, studentID)
}

// RemoveItem removes one line from the student's cart.
func (s *CartService) RemoveItem(ctx context.Context, studentID string, itemCode int, size string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	cart.Remove(itemCode, size)
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

// ClearCart empties the student's cart.
func (s *CartService) ClearCart(ctx context.Context, studentID string) error {
	return s.repo.Clear(ctx, studentID)
}

// Checkout converts the cart into a reservation bundle. Lines that fail
// validation are reported in the result without rolling back created
// siblings; the cart is cleared as soon as at least one line was created.
func (s *CartService) Checkout(ctx context.Context, studentID, studentName, course string) (*BundleCreateResult, error) {
	cart, err := s.repo.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get cart for checkout: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	lines := make([]BundleLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, BundleLine{
			ItemCode: item.ItemCode,
			Size:     item.Size,
			Quantity: item.Quantity,
		})
	}

	result, err := s.reservations.CreateBundle(ctx, studentID, studentName, course, lines)
	if err != nil {
		return nil, fmt.Errorf("checkout cart: %w", err)
	}

	if len(result.Created) > 0 {
		if err := s.repo.Clear(ctx, studentID); err != nil {
			s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
				slog.String("student_id", studentID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "cart checked out",
		slog.String("student_id", studentID),
		slog.String("bundle_id", result.BundleID),
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Failures)),
	)
	return result, nil
}
