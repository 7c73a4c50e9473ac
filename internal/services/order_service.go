// Package services – OrderService
//
// This file implements OrderService, the application-level component through
// which the support and payment flows read and mutate orders. Reads are
// always owner-scoped; payment mutations touch only payment-related fields
// and leave the wider order lifecycle to the storefront.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/repo"
)

// OrderService exposes owner-scoped order lookups and the payment-related
// mutations consumed by the payment resolver.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewOrderService constructs an OrderService over the given database handle.
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{DB: db}
}

// FindByNumber fetches an order by its public number for the owning user
// only. A matching number owned by a different user yields ErrOrderNotFound,
// identical to a number that does not exist at all.
func (s *OrderService) FindByNumber(ctx context.Context, number, userID string) (*domain.Order, error) {
	o, err := repo.FindOrderByNumberAndOwner(ctx, s.DB, number, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// Recent returns up to limit most-recent orders for userID.
func (s *OrderService) Recent(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 5
	}
	return repo.ListRecentOrders(ctx, s.DB, userID, limit)
}

// Addresses returns the user's saved addresses, default first.
func (s *OrderService) Addresses(ctx context.Context, userID string) ([]domain.Address, error) {
	return repo.ListAddresses(ctx, s.DB, userID)
}

// MarkPaid finalizes an order's payment against the winning intent.
func (s *OrderService) MarkPaid(ctx context.Context, orderID, paymentIntentID string) error {
	return repo.MarkOrderPaid(ctx, s.DB, orderID, paymentIntentID)
}

// MarkProcessing records an in-flight payment for the order.
func (s *OrderService) MarkProcessing(ctx context.Context, orderID, paymentIntentID string) error {
	return repo.MarkPaymentProcessing(ctx, s.DB, orderID, paymentIntentID)
}

// CancelPending cancels the order's pending payment. Idempotent.
func (s *OrderService) CancelPending(ctx context.Context, orderID string) error {
	return repo.CancelPendingPayment(ctx, s.DB, orderID)
}

// IncrementAttempts bumps the order's payment retry counter.
func (s *OrderService) IncrementAttempts(ctx context.Context, orderID string) error {
	return repo.IncrementPaymentAttempts(ctx, s.DB, orderID)
}
