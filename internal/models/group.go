package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Group struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description"`
	CreatedBy   uuid.UUID      `json:"createdBy" gorm:"type:uuid;not null"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Group DTOs
type CreateGroupRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type JoinGroupRequest struct {
	Code string `json:"code" validate:"required,len=8"`
}

type GroupSummary struct {
	Group
	MemberCount int64 `json:"memberCount"`
	IsCreator   bool  `json:"isCreator"`
}
