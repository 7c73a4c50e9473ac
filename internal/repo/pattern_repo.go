// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Pattern
// model and its owned Trigger phrases.
//
// Patterns are read-many (every chat turn) and write-rarely (admin-authored),
// so reads are plain preloaded queries with no locking. Deleting a pattern
// removes its triggers in the same transaction so ownership stays intact even
// when the soft-delete path bypasses the FK cascade.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
)

// ListActivePatterns returns all active patterns with their triggers
// preloaded, ordered by priority descending then creation time.
func ListActivePatterns(ctx context.Context, db *gorm.DB) ([]domain.Pattern, error) {
	var out []domain.Pattern
	err := db.WithContext(ctx).
		Preload("Triggers").
		Where("is_active = ?", true).
		Order("priority desc, created_at asc").
		Find(&out).Error
	return out, err
}

// CountPatterns returns the total number of patterns for pagination.
func CountPatterns(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Pattern{}).Count(&total).Error
	return total, err
}

// ListPatternsPage returns a page of patterns (active and inactive) with
// triggers preloaded, ordered by priority descending.
func ListPatternsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Pattern, error) {
	var out []domain.Pattern
	err := db.WithContext(ctx).
		Preload("Triggers").
		Order("priority desc, created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetPattern fetches a pattern by ID with triggers preloaded, or ErrNotFound.
func GetPattern(ctx context.Context, db *gorm.DB, id string) (*domain.Pattern, error) {
	var p domain.Pattern
	err := db.WithContext(ctx).
		Preload("Triggers").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePattern inserts a pattern together with its trigger phrases in one
// transaction.
func CreatePattern(ctx context.Context, db *gorm.DB, response string, priority int, active bool, phrases []string) (*domain.Pattern, error) {
	now := time.Now().UTC()
	p := &domain.Pattern{
		ID:        uuid.NewString(),
		Response:  response,
		Priority:  priority,
		IsActive:  active,
		CreatedAt: now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Insert every column: the is_active schema default would otherwise
		// override an explicit false, which GORM omits as a zero value.
		if err := tx.Select("*").Create(p).Error; err != nil {
			return err
		}
		for _, phrase := range phrases {
			t := &domain.Trigger{
				ID:        uuid.NewString(),
				PatternID: p.ID,
				Phrase:    phrase,
				CreatedAt: now,
			}
			if err := tx.Create(t).Error; err != nil {
				return err
			}
			p.Triggers = append(p.Triggers, *t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePattern replaces a pattern's response, priority, active flag, and
// trigger set. Passing nil phrases keeps the existing triggers. Returns
// ErrNotFound if the pattern does not exist.
func UpdatePattern(ctx context.Context, db *gorm.DB, id, response string, priority int, active bool, phrases []string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Pattern{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"response":  response,
				"priority":  priority,
				"is_active": active,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if phrases == nil {
			return nil
		}
		if err := tx.Where("pattern_id = ?", id).Delete(&domain.Trigger{}).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, phrase := range phrases {
			t := &domain.Trigger{
				ID:        uuid.NewString(),
				PatternID: id,
				Phrase:    phrase,
				CreatedAt: now,
			}
			if err := tx.Create(t).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePattern removes a pattern and all of its triggers. Returns
// ErrNotFound if the pattern does not exist.
func DeletePattern(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pattern_id = ?", id).Delete(&domain.Trigger{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Pattern{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
