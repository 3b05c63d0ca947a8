package repository

import (
	"context"

	"kanbanlive/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an entry. Entries are never updated or deleted.
func (r *ActivityRepository) Create(ctx context.Context, entry *model.ActivityEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecent returns up to limit entries of the board, most recent first, with the actor profile.
func (r *ActivityRepository) ListRecent(ctx context.Context, boardID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	var entries []model.ActivityEntry
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("board_id = ?", boardID).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
