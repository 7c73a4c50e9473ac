package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/llm"
	"github.com/tbourn/go-support-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:supportsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.Conversation{}, &domain.ChatMessage{},
		&domain.Pattern{}, &domain.Trigger{}, &domain.Feedback{},
		&domain.Order{}, &domain.OrderItem{}, &domain.Address{},
		&domain.Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeCompletion records the last call and returns a canned reply or error.
type fakeCompletion struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (f *fakeCompletion) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userMessage
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeOrderReader serves canned lookups for dispatcher tests.
type fakeOrderReader struct {
	order  *domain.Order
	err    error
	recent []domain.Order
	addrs  []domain.Address
}

func (f *fakeOrderReader) FindByNumber(context.Context, string, string) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeOrderReader) Recent(context.Context, string, int) ([]domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recent, nil
}

func (f *fakeOrderReader) Addresses(context.Context, string) ([]domain.Address, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.addrs, nil
}

func newSupportService(db *gorm.DB, orders OrderReader, completion llm.CompletionClient) *SupportService {
	return &SupportService{
		DB:              db,
		Orders:          orders,
		Completion:      completion,
		TrackingURLBase: "https://track.example.com/",
		Intn:            func(int) int { return 0 },
	}
}

func seedPattern(t *testing.T, db *gorm.DB, response string, priority int, phrases ...string) *domain.Pattern {
	t.Helper()
	p, err := repo.CreatePattern(context.Background(), db, response, priority, true, phrases)
	if err != nil {
		t.Fatalf("seed pattern: %v", err)
	}
	return p
}

func TestRespond_EmptyMessage(t *testing.T) {
	svc := newSupportService(newTestDB(t), &fakeOrderReader{}, &fakeCompletion{})
	if _, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestRespond_TooLong(t *testing.T) {
	svc := newSupportService(newTestDB(t), &fakeOrderReader{}, &fakeCompletion{})
	svc.MaxPromptRunes = 5
	if _, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "much too long"); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestRespond_Guest_UsesGuestPersonaAndSuggestsSignIn(t *testing.T) {
	db := newTestDB(t)
	fc := &fakeCompletion{reply: "Our return window is 30 days."}
	svc := newSupportService(db, &fakeOrderReader{}, fc)

	r, err := svc.Respond(context.Background(), Identity{}, "sess-guest", "hello")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if r.Authenticated {
		t.Fatalf("guest reply marked authenticated")
	}
	if !strings.Contains(r.Message, "Our return window is 30 days.") {
		t.Fatalf("completion text missing from reply: %q", r.Message)
	}
	if !strings.Contains(strings.ToLower(r.Message), "sign in") {
		t.Fatalf("guest reply should suggest signing in: %q", r.Message)
	}
	if !strings.Contains(strings.ToLower(fc.lastSystem), "sign") {
		t.Fatalf("guest persona not used: %q", fc.lastSystem)
	}
}

func TestRespond_Guest_CompletionFailureFallsBackToApology(t *testing.T) {
	db := newTestDB(t)
	svc := newSupportService(db, &fakeOrderReader{}, &fakeCompletion{err: errors.New("api down")})

	r, err := svc.Respond(context.Background(), Identity{}, "sess-guest", "what are your shipping rates?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(r.Message, "technical difficulties") {
		t.Fatalf("expected apology fallback, got %q", r.Message)
	}
}

func TestRespond_Greeting_UsesDisplayName(t *testing.T) {
	db := newTestDB(t)
	svc := newSupportService(db, &fakeOrderReader{}, &fakeCompletion{})

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1", Name: "Alice"}, "s1", "hello")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if r.Message != "Hi Alice! How can I help you today?" {
		t.Fatalf("unexpected greeting: %q", r.Message)
	}
	if r.Intent != "greeting" {
		t.Fatalf("intent = %q, want greeting", r.Intent)
	}
}

func TestRespond_Greeting_FallsBackToEmailThenThere(t *testing.T) {
	db := newTestDB(t)
	svc := newSupportService(db, &fakeOrderReader{}, &fakeCompletion{})

	r, _ := svc.Respond(context.Background(), Identity{UserID: "u1", Email: "a@example.com"}, "s1", "hi")
	if !strings.Contains(r.Message, "a@example.com") {
		t.Fatalf("expected email in greeting, got %q", r.Message)
	}

	r, _ = svc.Respond(context.Background(), Identity{UserID: "u2"}, "s2", "hi")
	if !strings.Contains(r.Message, "there") {
		t.Fatalf("expected 'there' fallback, got %q", r.Message)
	}
}

func TestRespond_TrustedPatternBypassesClassification(t *testing.T) {
	db := newTestDB(t)
	seedPattern(t, db, "Our refund policy is 30 days, no questions asked.", 1, "refund policy")

	fc := &fakeCompletion{reply: "should not be used"}
	svc := newSupportService(db, &fakeOrderReader{}, fc)

	// Exact trigger: confidence 0.75, above the trust threshold.
	r, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "refund policy")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if r.Message != "Our refund policy is 30 days, no questions asked." {
		t.Fatalf("unexpected reply: %q", r.Message)
	}
	if r.Confidence == nil || *r.Confidence != 0.75 {
		t.Fatalf("confidence = %v, want 0.75", r.Confidence)
	}
	if r.PatternID == nil || *r.PatternID == "" {
		t.Fatalf("pattern id missing")
	}
	if fc.calls != 0 {
		t.Fatalf("completion should not be called on trusted match")
	}
}

func TestRespond_OrderInquiry_WithoutNumberAsksForIt(t *testing.T) {
	db := newTestDB(t)
	svc := newSupportService(db, &fakeOrderReader{}, &fakeCompletion{})

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "where is my package?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(r.Actions) != 1 || r.Actions[0] != ActionRequestOrderNumber {
		t.Fatalf("expected request_order_number action, got %v", r.Actions)
	}
}

func TestRespond_OrderInquiry_NotFoundTemplate(t *testing.T) {
	db := newTestDB(t)
	svc := newSupportService(db, &fakeOrderReader{err: ErrOrderNotFound}, &fakeCompletion{})

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "where is my order AB123456")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(r.Message, "couldn't find that order in your account") {
		t.Fatalf("expected not-found template, got %q", r.Message)
	}
}

func TestRespond_OrderInquiry_ShippedIncludesTracking(t *testing.T) {
	db := newTestDB(t)
	orders := &fakeOrderReader{order: &domain.Order{
		Number:         "AB123456",
		Status:         domain.OrderShipped,
		TrackingNumber: "TRK999",
		Total:          42.50,
		Currency:       "EUR",
		PlacedAt:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Items:          []domain.OrderItem{{Name: "Wireless Mouse", Quantity: 2}},
	}}
	svc := newSupportService(db, orders, &fakeCompletion{})

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "track order AB123456")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	for _, want := range []string{"AB123456", "2 x Wireless Mouse", "42.50 EUR", "on its way", "TRK999", "https://track.example.com/TRK999"} {
		if !strings.Contains(r.Message, want) {
			t.Fatalf("reply missing %q:\n%s", want, r.Message)
		}
	}
}

func TestRespond_AccountInfo_RecentOrders(t *testing.T) {
	db := newTestDB(t)
	orders := &fakeOrderReader{recent: []domain.Order{
		{Number: "AB000001", Status: domain.OrderDelivered, Total: 10, Currency: "EUR", PlacedAt: time.Now()},
		{Number: "AB000002", Status: domain.OrderShipped, Total: 20, Currency: "EUR", PlacedAt: time.Now()},
	}}
	svc := newSupportService(db, orders, &fakeCompletion{})

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "show me my orders")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(r.Message, "AB000001") || !strings.Contains(r.Message, "AB000002") {
		t.Fatalf("recent orders missing from reply: %q", r.Message)
	}
}

func TestRespond_AccountInfo_AddressesWinsOverOrders(t *testing.T) {
	db := newTestDB(t)
	orders := &fakeOrderReader{addrs: []domain.Address{
		{Label: "Home", Line1: "1 Main St", City: "Athens", PostalCode: "10001", Country: "GR"},
	}}
	svc := newSupportService(db, orders, &fakeCompletion{})

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "my orders and my address")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(r.Message, "1 Main St") {
		t.Fatalf("expected address listing, got %q", r.Message)
	}
}

func TestRespond_General_UsableMatchWinsOverCompletion(t *testing.T) {
	db := newTestDB(t)
	// Loose phrasing keeps the score in the usable band below the trust
	// threshold: partial word hits plus keyword overlap.
	seedPattern(t, db, "You can pay by card or bank transfer.", 1, "available payment methods accepted")

	fc := &fakeCompletion{reply: "should not be used"}
	svc := newSupportService(db, &fakeOrderReader{}, fc)

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "which payment methods exist")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if r.Message != "You can pay by card or bank transfer." {
		t.Fatalf("unexpected reply: %q", r.Message)
	}
	if r.Confidence == nil || *r.Confidence <= 0.3 || *r.Confidence > 0.7 {
		t.Fatalf("confidence %v outside usable band", r.Confidence)
	}
	if fc.calls != 0 {
		t.Fatalf("completion should not run when a usable pattern exists")
	}
}

func TestRespond_General_NoMatchFallsThroughToCompletion(t *testing.T) {
	db := newTestDB(t)
	fc := &fakeCompletion{reply: "Let me look into warranties for you."}
	svc := newSupportService(db, &fakeOrderReader{}, fc)

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "s1", "tell me something about warranties")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if r.Message != "Let me look into warranties for you." {
		t.Fatalf("unexpected reply: %q", r.Message)
	}
	if fc.calls != 1 {
		t.Fatalf("completion calls = %d, want 1", fc.calls)
	}
}

func TestRespond_PersistsUserThenAssistantAndBumpsCounter(t *testing.T) {
	db := newTestDB(t)
	svc := newSupportService(db, &fakeOrderReader{}, &fakeCompletion{reply: "ok"})

	if _, err := svc.Respond(context.Background(), Identity{UserID: "u1", Name: "Alice"}, "sess-1", "hello"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	conv, err := repo.GetConversationBySession(context.Background(), db, "sess-1")
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	if conv.UserID != "u1" {
		t.Fatalf("conversation owner = %q, want u1", conv.UserID)
	}
	if conv.TotalMessages != 2 {
		t.Fatalf("total_messages = %d, want 2", conv.TotalMessages)
	}

	msgs, err := repo.ListChatMessagesPage(db, conv.ID, 0, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Fatalf("message order wrong: %q then %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[0].Content != "hello" {
		t.Fatalf("user message content = %q", msgs[0].Content)
	}

	// Second turn reuses the conversation and bumps by two again.
	if _, err := svc.Respond(context.Background(), Identity{UserID: "u1", Name: "Alice"}, "sess-1", "hi again"); err != nil {
		t.Fatalf("second Respond: %v", err)
	}
	conv2, _ := repo.GetConversationBySession(context.Background(), db, "sess-1")
	if conv2.TotalMessages != 4 {
		t.Fatalf("total_messages after second turn = %d, want 4", conv2.TotalMessages)
	}
	if conv2.ID != conv.ID {
		t.Fatalf("second turn created a new conversation")
	}
}

func TestRespond_PersistenceFailureStillReturnsReply(t *testing.T) {
	db := newTestDB(t)
	svc := newSupportService(db, &fakeOrderReader{}, &fakeCompletion{})

	// Break the message table so the transaction fails.
	if err := db.Exec("DROP TABLE chat_messages").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1", Name: "Alice"}, "sess-broken", "hello")
	if err != nil {
		t.Fatalf("Respond should absorb persistence failure, got %v", err)
	}
	if r.Message == "" {
		t.Fatalf("reply missing despite persistence failure")
	}
}

func TestRespond_SubjectGeneratedFromFirstMessage(t *testing.T) {
	db := newTestDB(t)
	svc := newSupportService(db, &fakeOrderReader{}, &fakeCompletion{reply: "ok"})

	if _, err := svc.Respond(context.Background(), Identity{UserID: "u1"}, "sess-subj", "please help with a damaged package delivery"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	conv, err := repo.GetConversationBySession(context.Background(), db, "sess-subj")
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	if conv.Subject == "" || conv.Subject == "New conversation" {
		t.Fatalf("subject not generated: %q", conv.Subject)
	}
	if !strings.Contains(conv.Subject, "Package") {
		t.Fatalf("subject %q should carry content words", conv.Subject)
	}
}

func TestRespond_PatternLoadFailureDegradesToClassification(t *testing.T) {
	db := newTestDB(t)
	if err := db.Exec("DROP TABLE patterns").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}
	svc := newSupportService(db, &fakeOrderReader{}, &fakeCompletion{})

	r, err := svc.Respond(context.Background(), Identity{UserID: "u1", Name: "Alice"}, "s1", "hello")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if r.Intent != "greeting" {
		t.Fatalf("expected greeting despite pattern store failure, got %q", r.Intent)
	}
}
