package repository

import (
	"fmt"

	"gorm.io/gorm"

	"cabinetquote/internal/model"
)

type DraftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) Create(draft *model.Draft) error {
	if err := r.db.Create(draft).Error; err != nil {
		return fmt.Errorf("create draft failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest drafts first.
func (r *DraftRepository) ListRecent(limit int) ([]model.Draft, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var drafts []model.Draft
	if err := r.db.Order("id DESC").Limit(limit).Find(&drafts).Error; err != nil {
		return nil, fmt.Errorf("list drafts failed: %w", err)
	}
	return drafts, nil
}
