package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupInvite is a single-use invitation code emailed to a prospective
// member. Rows are deleted on redemption; expired rows are treated as
// absent at redemption time.
type GroupInvite struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID   uuid.UUID      `json:"groupId" gorm:"type:uuid;index;not null"`
	Email     string         `json:"email" gorm:"not null"`
	Code      string         `json:"code" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time      `json:"expiresAt" gorm:"not null"`
	CreatedBy uuid.UUID      `json:"createdBy" gorm:"type:uuid;not null"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Group Group `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}

func (gi *GroupInvite) BeforeCreate(tx *gorm.DB) error {
	if gi.ID == uuid.Nil {
		gi.ID = uuid.New()
	}
	return nil
}
