package repository

import (
	"context"
	"errors"

	"kanbanlive/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Add добавляет пользователя к доске с указанной ролью или обновляет роль существующего участника
func (r *MemberRepository) Add(ctx context.Context, boardID, userID uuid.UUID, role model.Role) (*model.Member, error) {
	member := model.Member{
		BoardID: boardID,
		UserID:  userID,
		Role:    role,
	}

	// Используем транзакцию для предотвращения гонок
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Member
		err := tx.Where("board_id = ? AND user_id = ?", boardID, userID).First(&existing).Error

		if err == nil {
			existing.Role = role
			member = existing
			return tx.Save(&existing).Error
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Remove удаляет участника доски
func (r *MemberRepository) Remove(ctx context.Context, boardID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Delete(&model.Member{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// GetByBoardID возвращает участников доски вместе с профилями
func (r *MemberRepository) GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.Member, error) {
	var members []model.Member
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("board_id = ?", boardID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

// GetRole возвращает роль пользователя на доске (или пустую строку, если доступа нет)
func (r *MemberRepository) GetRole(ctx context.Context, boardID, userID uuid.UUID) (model.Role, error) {
	var member model.Member
	err := r.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&member).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}
