package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity categories
const (
	CategoryExercise = "exercise"
	CategoryMeal     = "meal"
)

type Activity struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID      `json:"userId" gorm:"type:uuid;index;not null"`
	Category     string         `json:"category" gorm:"not null"` // exercise, meal
	ActivityType string         `json:"activityType"`             // Run, Cycle, Breakfast, ...
	Name         string         `json:"name"`
	Duration     *float64       `json:"duration"` // minutes
	Calories     float64        `json:"calories" gorm:"not null"`
	Protein      *float64       `json:"protein"` // grams, meals only
	Notes        string         `json:"notes"`
	PerformedAt  time.Time      `json:"performedAt" gorm:"index;not null"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PerformedAt.IsZero() {
		a.PerformedAt = time.Now()
	}
	return nil
}

// ProteinGrams treats a missing protein entry as 0.
func (a *Activity) ProteinGrams() float64 {
	if a.Protein == nil {
		return 0
	}
	return *a.Protein
}

// Activity DTOs
type CreateActivityRequest struct {
	Category     string   `json:"category" validate:"required,oneof=exercise meal"`
	ActivityType string   `json:"activityType"`
	Name         string   `json:"name"`
	Duration     *float64 `json:"duration" validate:"omitempty,gte=0"`
	Calories     float64  `json:"calories" validate:"required,gt=0"`
	Protein      *float64 `json:"protein" validate:"omitempty,gte=0"`
	Notes        string   `json:"notes"`
}

// UpdateActivityRequest deliberately has no performedAt field: the
// timestamp is assigned at creation and immutable thereafter.
type UpdateActivityRequest struct {
	Category     *string  `json:"category" validate:"omitempty,oneof=exercise meal"`
	ActivityType *string  `json:"activityType"`
	Name         *string  `json:"name"`
	Duration     *float64 `json:"duration" validate:"omitempty,gte=0"`
	Calories     *float64 `json:"calories" validate:"omitempty,gt=0"`
	Protein      *float64 `json:"protein" validate:"omitempty,gte=0"`
	Notes        *string  `json:"notes"`
}
