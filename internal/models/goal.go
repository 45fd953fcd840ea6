package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Goal types
const (
	GoalCaloriesBurned   = "calories_burned"
	GoalCaloriesConsumed = "calories_consumed"
	GoalProtein          = "protein"
	GoalWeight           = "weight"
	GoalCustom           = "custom"
)

// Goal periods
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodTotal   = "total"
)

// Goal statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Goal struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `json:"userId" gorm:"type:uuid;index;not null"`
	Title        string    `json:"title" gorm:"not null"`
	Description  string    `json:"description"`
	Type         string    `json:"type" gorm:"not null"`
	Period       string    `json:"period" gorm:"not null;default:'total'"`
	Unit         string    `json:"unit"`
	TargetValue  float64   `json:"targetValue" gorm:"not null"`
	CurrentValue float64   `json:"currentValue" gorm:"default:0"`
	// StartValue is snapshotted at creation and serves as the baseline
	// that classifies a weight goal as loss or gain.
	StartValue float64        `json:"startValue" gorm:"default:0"`
	Status     string         `json:"status" gorm:"not null;default:'in_progress'"`
	EndDate    *time.Time     `json:"endDate"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Status == "" {
		g.Status = StatusInProgress
	}
	return nil
}

// Goal DTOs
type CreateGoalRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Type        string     `json:"type" validate:"required,oneof=calories_burned calories_consumed protein weight custom"`
	Period      string     `json:"period" validate:"omitempty,oneof=daily weekly monthly total"`
	Unit        string     `json:"unit"`
	TargetValue float64    `json:"targetValue" validate:"required,gt=0"`
	EndDate     *time.Time `json:"endDate"`
}

type UpdateGoalRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Unit         *string    `json:"unit"`
	TargetValue  *float64   `json:"targetValue" validate:"omitempty,gt=0"`
	CurrentValue *float64   `json:"currentValue" validate:"omitempty,gte=0"`
	Status       *string    `json:"status" validate:"omitempty,oneof=in_progress completed failed"`
	EndDate      *time.Time `json:"endDate"`
}

type AcceptGoalRequest struct {
	Code string `json:"code" validate:"required,len=8"`
}
