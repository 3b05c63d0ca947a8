package model

import (
	"time"

	"github.com/google/uuid"

	"kanbanlive/internal/ordering"
)

type List struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Position  int       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l List) OrderKey() ordering.Key {
	return ordering.Key{Position: l.Position, CreatedAt: l.CreatedAt, ID: l.ID}
}

func (l List) WithPosition(position int) List {
	l.Position = position
	return l
}
