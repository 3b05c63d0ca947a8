package model

import (
	"time"

	"github.com/google/uuid"
)

// Member связывает пользователя с доской
type Member struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_board_member"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_board_member"`
	Role      Role      `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User User `gorm:"foreignKey:UserID"`
}

func (Member) TableName() string {
	return "board_members"
}

type Role string

// Роли пользователей для доски
const (
	RoleOwner  Role = "owner"  // создатель доски
	RoleEditor Role = "editor" // может редактировать
	RoleViewer Role = "viewer" // может только просматривать
)

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleEditor || r == RoleViewer
}

// CanWrite reports whether the role may mutate lists and tasks.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleEditor
}
