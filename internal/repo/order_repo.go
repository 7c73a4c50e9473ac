// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order
// model and its payment-related mutations.
//
// Ownership: every read here is scoped by userID. A caller may only ever
// retrieve their own orders, never another user's, even when the order
// number matches exactly. Not-found and not-owned are indistinguishable by
// design so the chat surface cannot leak order existence.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
)

// FindOrderByNumberAndOwner fetches an order by its public number, scoped to
// the owning user. Returns ErrNotFound when the order does not exist or
// belongs to someone else.
func FindOrderByNumberAndOwner(ctx context.Context, db *gorm.DB, number, userID string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Where("number = ? AND user_id = ?", number, userID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrder fetches an order by primary key, or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListRecentOrders returns up to limit most-recent orders for userID, newest
// first by placement time.
func ListRecentOrders(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Order, error) {
	var out []domain.Order
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("placed_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkOrderPaid finalizes an order's payment: payment status PAID, order
// status PROCESSING (fulfillment starts), and the winning intent recorded.
// Returns ErrNotFound when no row matches.
func MarkOrderPaid(ctx context.Context, db *gorm.DB, orderID, paymentIntentID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_status":    domain.PaymentPaid,
			"status":            domain.OrderProcessing,
			"payment_intent_id": paymentIntentID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkPaymentProcessing records that the provider is still settling the
// payment; the caller is expected to poll.
func MarkPaymentProcessing(ctx context.Context, db *gorm.DB, orderID, paymentIntentID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_status":    domain.PaymentPending,
			"payment_intent_id": paymentIntentID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CancelPendingPayment cancels an order's pending payment. The update is
// idempotent: it only touches rows whose payment is not already cancelled,
// so repeated calls succeed without extra writes.
func CancelPendingPayment(ctx context.Context, db *gorm.DB, orderID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND payment_status <> ?", orderID, domain.PaymentCancelled).
		Updates(map[string]any{
			"payment_status": domain.PaymentCancelled,
			"status":         domain.OrderOnHold,
		})
	return res.Error
}

// IncrementPaymentAttempts bumps the retry counter after a declined attempt.
func IncrementPaymentAttempts(ctx context.Context, db *gorm.DB, orderID string) error {
	return db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("payment_attempts", gorm.Expr("payment_attempts + 1")).Error
}

// ListAddresses returns a user's saved addresses, default first.
func ListAddresses(ctx context.Context, db *gorm.DB, userID string) ([]domain.Address, error) {
	var out []domain.Address
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default desc, created_at asc").
		Find(&out).Error
	return out, err
}
