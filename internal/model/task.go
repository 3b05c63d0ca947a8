package model

import (
	"time"

	"github.com/google/uuid"

	"kanbanlive/internal/ordering"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ListID      uuid.UUID `gorm:"type:uuid;not null;index"`
	BoardID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description *string
	Priority    Priority `gorm:"type:text;not null;default:medium"`
	DueDate     *time.Time
	AssignedTo  *uuid.UUID `gorm:"type:uuid"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid"`
	Position    int        `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t Task) OrderKey() ordering.Key {
	return ordering.Key{Position: t.Position, CreatedAt: t.CreatedAt, ID: t.ID}
}

func (t Task) WithPosition(position int) Task {
	t.Position = position
	return t
}
