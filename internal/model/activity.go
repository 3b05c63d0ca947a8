package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionMoved    Action = "moved"
	ActionAssigned Action = "assigned"
)

type EntityType string

const (
	EntityBoard  EntityType = "board"
	EntityList   EntityType = "list"
	EntityTask   EntityType = "task"
	EntityMember EntityType = "member"
)

// ActivityEntry is append-only. Nothing in this module updates or deletes a row.
type ActivityEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Seq        int64      `gorm:"autoIncrement;uniqueIndex"`
	BoardID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null"`
	Action     Action     `gorm:"type:text;not null"`
	EntityType EntityType `gorm:"type:text;not null"`
	EntityID   *uuid.UUID `gorm:"type:uuid"`
	EntityName *string
	Details    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;index"`

	Actor User `gorm:"foreignKey:UserID"`
}
