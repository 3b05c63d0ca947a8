package repository

import (
	"context"
	"errors"

	"kanbanlive/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BoardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

// Create inserts the board and makes its owner a member with the owner role.
func (r *BoardRepository) Create(ctx context.Context, board *model.Board) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return err
		}
		return tx.Create(&model.Member{
			BoardID: board.ID,
			UserID:  board.OwnerID,
			Role:    model.RoleOwner,
		}).Error
	})
}

// GetForUser returns every board the user is a member of, newest first.
func (r *BoardRepository) GetForUser(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	var boards []model.Board
	err := r.db.WithContext(ctx).
		Joins("JOIN board_members ON board_members.board_id = boards.id").
		Where("board_members.user_id = ?", userID).
		Order("boards.created_at DESC").
		Find(&boards).Error
	return boards, err
}

func (r *BoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}
	return &board, nil
}

func (r *BoardRepository) Update(ctx context.Context, board *model.Board) error {
	return r.db.WithContext(ctx).Save(board).Error
}

// Delete removes the board; lists, tasks, members and activity go with it through FK cascades.
func (r *BoardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Board{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}
