package store

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"newsletter-finder/internal/model"
)

const maxErrorLen = 1024

// Store defines the interface for the verification log.
type Store interface {
	SaveVerifications(ctx context.Context, records []model.Verification) (string, error)
	RecentVerifications(ctx context.Context, limit int) ([]model.Verification, error)
	BatchVerifications(ctx context.Context, batchID string) ([]model.Verification, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// SaveVerifications stores one batch under a fresh time-ordered batch ID.
func (s *gormStore) SaveVerifications(ctx context.Context, records []model.Verification) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate batch id: %w", err)
	}
	batchID := id.String()

	if len(records) == 0 {
		return batchID, nil
	}

	rows := make([]model.Verification, len(records))
	for i, r := range records {
		r.ID = 0
		r.BatchID = batchID
		r.Error = clipUTF8(r.Error, maxErrorLen)
		rows[i] = r
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to save verification batch: %w", err)
	}

	log.Printf("Saved %d verifications in batch %s", len(rows), batchID)
	return batchID, nil
}

// RecentVerifications returns the newest logged checks first.
func (s *gormStore) RecentVerifications(ctx context.Context, limit int) ([]model.Verification, error) {
	var rows []model.Verification
	if err := s.db.WithContext(ctx).
		Order("checked_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return rows, nil
}

// BatchVerifications returns the checks of one batch in insertion order.
func (s *gormStore) BatchVerifications(ctx context.Context, batchID string) ([]model.Verification, error) {
	var rows []model.Verification
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	return rows, nil
}

// clipUTF8 shortens s to at most n bytes without splitting a multi-byte character.
func clipUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
