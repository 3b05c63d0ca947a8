package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kanbanlive/internal/model"
	"kanbanlive/internal/ordering"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// MoveResult describes a committed task move.
type MoveResult struct {
	Task       model.Task
	FromListID uuid.UUID
}

// CreateAtEnd inserts the task after its current siblings in the list
func (r *TaskRepository) CreateAtEnd(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).Where("list_id = ?", task.ListID).Count(&count).Error; err != nil {
			return err
		}
		task.Position = ordering.AppendPosition(int(count))
		return tx.Create(task).Error
	})
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// GetByListID retrieves all tasks in a specific list
func (r *TaskRepository) GetByListID(ctx context.Context, listID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).Where("list_id = ?", listID).Order(orderBySiblings).Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// GetByBoardID retrieves the tasks of every list on the board. A non-empty query keeps only
// tasks whose title contains it, case-insensitively.
func (r *TaskRepository) GetByBoardID(ctx context.Context, boardID uuid.UUID, query string) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).Where("board_id = ?", boardID)
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where("title ILIKE ?", "%"+escapeLike(query)+"%")
	}
	result := q.Order(orderBySiblings).Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// Update saves the editable fields of a task. List and position only change through Move.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).Model(task).
		Select("title", "description", "priority", "due_date", "assigned_to").
		Updates(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task and closes the gap in its list
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		if err := tx.Delete(&model.Task{}, "id = ?", id).Error; err != nil {
			return err
		}
		return renumberList(tx, task.ListID)
	})
}

// Move puts the task at index of the destination list, whose siblings are taken without the
// task itself. The destination must belong to the task's board.
func (r *TaskRepository) Move(ctx context.Context, taskID, listID uuid.UUID, index int) (*MoveResult, error) {
	var res MoveResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		var dest model.List
		if err := tx.First(&dest, "id = ?", listID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrListNotFound
			}
			return err
		}
		if dest.BoardID != task.BoardID {
			return ErrCrossBoardMove
		}

		var siblings []model.Task
		if err := tx.Where("list_id = ? AND id <> ?", listID, taskID).Find(&siblings).Error; err != nil {
			return err
		}

		placed := ordering.Place(siblings, task, index)
		newPosition := ordering.IndexOf(placed, taskID)
		res.FromListID = task.ListID

		if task.ListID != listID || task.Position != newPosition {
			if err := tx.Model(&model.Task{}).Where("id = ?", taskID).Updates(map[string]any{
				"list_id":  listID,
				"position": newPosition,
			}).Error; err != nil {
				return err
			}
		}
		for _, ch := range ordering.Renumber(placed) {
			if ch.ID == taskID {
				continue
			}
			if err := tx.Model(&model.Task{}).Where("id = ?", ch.ID).Update("position", ch.Position).Error; err != nil {
				return err
			}
		}
		if task.ListID != listID {
			if err := renumberList(tx, task.ListID); err != nil {
				return err
			}
		}

		task.ListID = listID
		task.Position = newPosition
		res.Task = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// AssignUser assigns a user to a task
func (r *TaskRepository) AssignUser(ctx context.Context, taskID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Update("assigned_to", userID)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// UnassignUser removes user assignment from a task
func (r *TaskRepository) UnassignUser(ctx context.Context, taskID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Update("assigned_to", nil)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func renumberList(tx *gorm.DB, listID uuid.UUID) error {
	var rest []model.Task
	if err := tx.Where("list_id = ?", listID).Order(orderBySiblings).Find(&rest).Error; err != nil {
		return err
	}
	for _, ch := range ordering.Renumber(rest) {
		if err := tx.Model(&model.Task{}).Where("id = ?", ch.ID).Update("position", ch.Position).Error; err != nil {
			return err
		}
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
