package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Username  string         `json:"username" gorm:"uniqueIndex;not null"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-"`
	Height    *float64       `json:"height"`
	Weight    *float64       `json:"weight"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Goals     []Goal         `json:"goals,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// CurrentWeight returns the live weight used by weight-type goals,
// falling back to 0 when the user never recorded one.
func (u *User) CurrentWeight() float64 {
	if u.Weight == nil {
		return 0
	}
	return *u.Weight
}

// Auth DTOs
type RegisterRequest struct {
	Username string   `json:"username" validate:"required,min=3"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Height   *float64 `json:"height" validate:"omitempty,gt=0"`
	Weight   *float64 `json:"weight" validate:"omitempty,gt=0"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username *string  `json:"username" validate:"omitempty,min=3"`
	Email    *string  `json:"email" validate:"omitempty,email"`
	Height   *float64 `json:"height" validate:"omitempty,gt=0"`
	Weight   *float64 `json:"weight" validate:"omitempty,gt=0"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
