package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
)

func seedOrder(t *testing.T, db *gorm.DB, userID, number string, status domain.OrderStatus) *domain.Order {
	t.Helper()
	o := &domain.Order{
		ID:       uuid.NewString(),
		UserID:   userID,
		Number:   number,
		Status:   status,
		Total:    25,
		Currency: "EUR",
		PlacedAt: time.Now().UTC(),
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func TestOrderService_FindByNumber_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db)

	seedOrder(t, db, "alice", "AB123456", domain.OrderShipped)

	got, err := svc.FindByNumber(context.Background(), "AB123456", "alice")
	if err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if got.Number != "AB123456" {
		t.Fatalf("number = %q", got.Number)
	}

	// Same number, different user: indistinguishable from non-existence.
	if _, err := svc.FindByNumber(context.Background(), "AB123456", "mallory"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for non-owner, got %v", err)
	}
	if _, err := svc.FindByNumber(context.Background(), "ZZ999999", "alice"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for missing order, got %v", err)
	}
}

func TestOrderService_Recent_DefaultLimitAndOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db)

	base := time.Now().UTC().Add(-10 * 24 * time.Hour)
	for i := 0; i < 7; i++ {
		o := seedOrder(t, db, "alice", "AB00000"+string(rune('0'+i)), domain.OrderCompleted)
		if err := db.Model(o).Update("placed_at", base.Add(time.Duration(i)*24*time.Hour)).Error; err != nil {
			t.Fatalf("backdate order: %v", err)
		}
	}

	got, err := svc.Recent(context.Background(), "alice", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want default limit 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].PlacedAt.After(got[i-1].PlacedAt) {
			t.Fatalf("orders not newest-first at index %d", i)
		}
	}
}

func TestOrderService_PaymentTransitions(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db)
	o := seedOrder(t, db, "alice", "AB777777", domain.OrderPending)

	if err := svc.MarkProcessing(context.Background(), o.ID, "pi_1"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := svc.IncrementAttempts(context.Background(), o.ID); err != nil {
		t.Fatalf("IncrementAttempts: %v", err)
	}
	if err := svc.MarkPaid(context.Background(), o.ID, "pi_1"); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}

	var got domain.Order
	if err := db.First(&got, "id = ?", o.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("payment_status = %q, want PAID", got.PaymentStatus)
	}
	if got.Status != domain.OrderProcessing {
		t.Fatalf("status = %q, want PROCESSING", got.Status)
	}
	if got.PaymentIntentID != "pi_1" {
		t.Fatalf("payment_intent_id = %q", got.PaymentIntentID)
	}
	if got.PaymentAttempts != 1 {
		t.Fatalf("payment_attempts = %d, want 1", got.PaymentAttempts)
	}
}

func TestOrderService_CancelPending_Idempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db)
	o := seedOrder(t, db, "alice", "AB888888", domain.OrderPending)

	if err := svc.CancelPending(context.Background(), o.ID); err != nil {
		t.Fatalf("first CancelPending: %v", err)
	}
	if err := svc.CancelPending(context.Background(), o.ID); err != nil {
		t.Fatalf("second CancelPending should be a no-op, got %v", err)
	}

	var got domain.Order
	if err := db.First(&got, "id = ?", o.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.PaymentStatus != domain.PaymentCancelled {
		t.Fatalf("payment_status = %q, want CANCELLED", got.PaymentStatus)
	}
	if got.Status != domain.OrderOnHold {
		t.Fatalf("status = %q, want ON_HOLD", got.Status)
	}
}

func TestOrderService_Addresses_DefaultFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db)

	addrs := []domain.Address{
		{ID: uuid.NewString(), UserID: "alice", Label: "Work", Line1: "2 Office Rd", City: "Athens", Country: "GR"},
		{ID: uuid.NewString(), UserID: "alice", Label: "Home", Line1: "1 Main St", City: "Athens", Country: "GR", IsDefault: true},
		{ID: uuid.NewString(), UserID: "bob", Label: "Home", Line1: "9 Other Av", City: "Patras", Country: "GR"},
	}
	for i := range addrs {
		if err := db.Create(&addrs[i]).Error; err != nil {
			t.Fatalf("seed address: %v", err)
		}
	}

	got, err := svc.Addresses(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Addresses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].IsDefault {
		t.Fatalf("default address should be listed first")
	}
}
