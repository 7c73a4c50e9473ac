// Package services – PatternService
//
// This file implements the PatternService, which manages the lifecycle of
// admin-curated response patterns and their trigger phrases. It validates and
// normalizes inputs (responses must be non-empty, phrases are trimmed and
// de-duplicated case-insensitively) and coordinates repository operations for
// creating, listing (with pagination), updating, and deleting patterns.
//
// Service-level errors (e.g., ErrPatternNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/repo"
)

// ErrInvalidPattern is returned when a pattern payload fails validation.
var ErrInvalidPattern = errors.New("pattern must have a response and at least one trigger phrase")

// PatternService provides CRUD operations over response patterns. Writes are
// admin-only; the HTTP layer enforces that before calls reach this service.
type PatternService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewPatternService constructs a PatternService over the given database handle.
func NewPatternService(db *gorm.DB) *PatternService {
	return &PatternService{DB: db}
}

// Create inserts a new pattern with its trigger phrases.
// The response must be non-empty and at least one usable phrase must remain
// after normalization; otherwise ErrInvalidPattern.
func (s *PatternService) Create(ctx context.Context, response string, priority int, active bool, phrases []string) (*domain.Pattern, error) {
	response = normalizeText(response)
	phrases = normalizePhrases(phrases)
	if response == "" || len(phrases) == 0 {
		return nil, ErrInvalidPattern
	}
	return repo.CreatePattern(ctx, s.DB, response, priority, active, phrases)
}

// Get fetches one pattern with its triggers, or ErrPatternNotFound.
func (s *PatternService) Get(ctx context.Context, id string) (*domain.Pattern, error) {
	p, err := repo.GetPattern(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatternNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPage returns a page of patterns (active and inactive) with total count.
// It applies defaults for invalid page/pageSize.
func (s *PatternService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Pattern, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountPatterns(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Pattern{}, 0, nil
	}

	items, err := repo.ListPatternsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Update replaces a pattern's response, priority, active flag, and trigger
// set. Passing nil phrases keeps the existing triggers; passing a non-nil
// slice replaces them and must leave at least one usable phrase.
func (s *PatternService) Update(ctx context.Context, id, response string, priority int, active bool, phrases []string) error {
	response = normalizeText(response)
	if response == "" {
		return ErrInvalidPattern
	}
	if phrases != nil {
		phrases = normalizePhrases(phrases)
		if len(phrases) == 0 {
			return ErrInvalidPattern
		}
	}
	if err := repo.UpdatePattern(ctx, s.DB, id, response, priority, active, phrases); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPatternNotFound
		}
		return err
	}
	return nil
}

// Delete removes a pattern and its triggers, or ErrPatternNotFound.
func (s *PatternService) Delete(ctx context.Context, id string) error {
	if err := repo.DeletePattern(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPatternNotFound
		}
		return err
	}
	return nil
}

// normalizePhrases trims phrases, drops empties, and de-duplicates them
// case-insensitively while preserving first-seen order.
func normalizePhrases(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = normalizeText(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// normalizeText trims whitespace and collapses multiple spaces to one.
func normalizeText(s string) string {
	return patternSpaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// patternSpaceRE collapses consecutive whitespace to a single space.
var patternSpaceRE = regexp.MustCompile(`\s+`)
