package repository

import (
	"context"
	"errors"

	"kanbanlive/internal/model"
	"kanbanlive/internal/ordering"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

// CreateAtEnd inserts the list after its current siblings.
func (r *ListRepository) CreateAtEnd(ctx context.Context, list *model.List) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.List{}).Where("board_id = ?", list.BoardID).Count(&count).Error; err != nil {
			return err
		}
		list.Position = ordering.AppendPosition(int(count))
		return tx.Create(list).Error
	})
}

func (r *ListRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.List, error) {
	var list model.List
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return &list, nil
}

func (r *ListRepository) GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.List, error) {
	var lists []model.List
	err := r.db.WithContext(ctx).Where("board_id = ?", boardID).Order(orderBySiblings).Find(&lists).Error
	return lists, err
}

func (r *ListRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	result := r.db.WithContext(ctx).Model(&model.List{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrListNotFound
	}
	return nil
}

// Delete removes the list and its tasks, then closes the gap left among the remaining lists.
func (r *ListRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var list model.List
		if err := tx.Where("id = ?", id).First(&list).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrListNotFound
			}
			return err
		}
		if err := tx.Where("list_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.List{}, "id = ?", id).Error; err != nil {
			return err
		}

		var rest []model.List
		if err := tx.Where("board_id = ?", list.BoardID).Order(orderBySiblings).Find(&rest).Error; err != nil {
			return err
		}
		return applyListPositions(tx, ordering.Renumber(rest))
	})
}

// Move places the list at index among the other lists of its board. Siblings whose dense index
// changed are rewritten in the same transaction; a drop onto the current slot writes nothing.
func (r *ListRepository) Move(ctx context.Context, id uuid.UUID, index int) (*model.List, error) {
	var moved model.List
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&moved).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrListNotFound
			}
			return err
		}

		var siblings []model.List
		if err := tx.Where("board_id = ? AND id <> ?", moved.BoardID, id).Find(&siblings).Error; err != nil {
			return err
		}

		placed := ordering.Place(siblings, moved, index)
		if err := applyListPositions(tx, ordering.Renumber(placed)); err != nil {
			return err
		}
		moved.Position = ordering.IndexOf(placed, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

func applyListPositions(tx *gorm.DB, changes []ordering.Change) error {
	for _, ch := range changes {
		if err := tx.Model(&model.List{}).Where("id = ?", ch.ID).
			Update("position", ch.Position).Error; err != nil {
			return err
		}
	}
	return nil
}
