package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SharedGoal is a single-use sharing code for a goal posted into a group.
// Redeeming it clones the goal for the redeemer; the row is deleted on
// redemption.
type SharedGoal struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GoalID    uuid.UUID      `json:"goalId" gorm:"type:uuid;index;not null"`
	GroupID   uuid.UUID      `json:"groupId" gorm:"type:uuid;index;not null"`
	Code      string         `json:"code" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time      `json:"expiresAt" gorm:"not null"`
	SharedBy  uuid.UUID      `json:"sharedBy" gorm:"type:uuid;not null"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Goal  Goal  `json:"goal,omitempty" gorm:"foreignKey:GoalID"`
	Group Group `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}

func (sg *SharedGoal) BeforeCreate(tx *gorm.DB) error {
	if sg.ID == uuid.Nil {
		sg.ID = uuid.New()
	}
	return nil
}
