package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GroupMember struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID   uuid.UUID      `json:"groupId" gorm:"type:uuid;uniqueIndex:idx_group_user;not null"`
	UserID    uuid.UUID      `json:"userId" gorm:"type:uuid;uniqueIndex:idx_group_user;not null"`
	JoinedAt  time.Time      `json:"joinedAt"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (gm *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if gm.ID == uuid.Nil {
		gm.ID = uuid.New()
	}
	if gm.JoinedAt.IsZero() {
		gm.JoinedAt = time.Now()
	}
	return nil
}

// MemberInfo is the public shape returned by the members listing.
type MemberInfo struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joinedAt"`
}
