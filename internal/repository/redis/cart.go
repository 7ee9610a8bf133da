package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CampusMerchGo/internal/domain"
)

const keyPrefix = "merch:cart:"

// CartRepository implements repository.CartRepository using Redis. Carts
// are transient checkout scratchpads; an absent key is an empty cart, not
// an error.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the student's cart, or an empty cart when none exists.
func (r *CartRepository) Get(ctx context.Context, studentID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+studentID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &domain.Cart{StudentID: studentID, Items: []domain.CartItem{}}, nil
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}

// Save replaces the student's cart, refreshing its TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+cart.StudentID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// Clear removes the student's cart.
func (r *CartRepository) Clear(ctx context.Context, studentID string) error {
	if err := r.client.Del(ctx, keyPrefix+studentID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
