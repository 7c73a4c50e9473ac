package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-support-backend/internal/domain"
)

func TestPatternService_Create_Validation(t *testing.T) {
	svc := NewPatternService(newTestDB(t))

	if _, err := svc.Create(context.Background(), "   ", 1, true, []string{"refund"}); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("empty response: expected ErrInvalidPattern, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "resp", 1, true, []string{" ", ""}); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("blank phrases: expected ErrInvalidPattern, got %v", err)
	}
}

func TestPatternService_Create_NormalizesAndDedupsPhrases(t *testing.T) {
	svc := NewPatternService(newTestDB(t))

	p, err := svc.Create(context.Background(), "  Our refund  policy ", 2, true,
		[]string{" Refund Policy ", "refund policy", "money back"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Response != "Our refund policy" {
		t.Fatalf("response not normalized: %q", p.Response)
	}
	if len(p.Triggers) != 2 {
		t.Fatalf("len(triggers) = %d, want 2 after case-insensitive dedup", len(p.Triggers))
	}
	if p.Triggers[0].Phrase != "Refund Policy" {
		t.Fatalf("first-seen phrase should survive dedup, got %q", p.Triggers[0].Phrase)
	}
}

func TestPatternService_Get_NotFound(t *testing.T) {
	svc := NewPatternService(newTestDB(t))
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound, got %v", err)
	}
}

func TestPatternService_ListPage_Defaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewPatternService(db)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), "resp", i, true, []string{"phrase"}); err != nil {
			t.Fatalf("seed pattern %d: %v", i, err)
		}
	}

	items, total, err := svc.ListPage(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(items))
	}
	// Highest priority first.
	if items[0].Priority != 2 {
		t.Fatalf("first priority = %d, want 2", items[0].Priority)
	}
}

func TestPatternService_Update_ReplacesTriggersOrKeepsThem(t *testing.T) {
	db := newTestDB(t)
	svc := NewPatternService(db)

	p, err := svc.Create(context.Background(), "resp", 1, true, []string{"old phrase"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// nil phrases keeps existing triggers.
	if err := svc.Update(context.Background(), p.ID, "new resp", 5, false, nil); err != nil {
		t.Fatalf("Update keep: %v", err)
	}
	got, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Response != "new resp" || got.Priority != 5 || got.IsActive {
		t.Fatalf("fields not updated: %+v", got)
	}
	if len(got.Triggers) != 1 || got.Triggers[0].Phrase != "old phrase" {
		t.Fatalf("triggers should be kept on nil phrases: %+v", got.Triggers)
	}

	// Non-nil phrases replace the set.
	if err := svc.Update(context.Background(), p.ID, "new resp", 5, false, []string{"brand new"}); err != nil {
		t.Fatalf("Update replace: %v", err)
	}
	got, _ = svc.Get(context.Background(), p.ID)
	if len(got.Triggers) != 1 || got.Triggers[0].Phrase != "brand new" {
		t.Fatalf("triggers not replaced: %+v", got.Triggers)
	}
}

func TestPatternService_Update_NotFound(t *testing.T) {
	svc := NewPatternService(newTestDB(t))
	if err := svc.Update(context.Background(), "missing", "resp", 1, true, nil); !errors.Is(err, ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound, got %v", err)
	}
}

func TestPatternService_Delete_RemovesTriggers(t *testing.T) {
	db := newTestDB(t)
	svc := NewPatternService(db)

	p, err := svc.Create(context.Background(), "resp", 1, true, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); !errors.Is(err, ErrPatternNotFound) {
		t.Fatalf("pattern should be gone, got %v", err)
	}

	var orphans int64
	if err := db.Model(&domain.Trigger{}).Where("pattern_id = ?", p.ID).Count(&orphans).Error; err != nil {
		t.Fatalf("count triggers: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("triggers left behind: %d", orphans)
	}

	if err := svc.Delete(context.Background(), p.ID); !errors.Is(err, ErrPatternNotFound) {
		t.Fatalf("second delete: expected ErrPatternNotFound, got %v", err)
	}
}
