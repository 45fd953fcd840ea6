package handlers

import (
	"context"
	"time"

	"github.com/corex/corex-api/internal/middleware"
	"github.com/corex/corex-api/internal/models"
	"github.com/corex/corex-api/internal/progress"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	// Check if user exists
	var existing models.User
	if err := h.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "User with this email or username already exists",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Height:   req.Height,
		Weight:   req.Weight,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	token, err := middleware.GenerateToken(user.ID, user.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	h.log.Info("user registered", zap.String("userId", user.ID.String()))

	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		Token: token,
		User:  user,
	})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := middleware.GenerateToken(user.ID, user.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(models.AuthResponse{
		Token: token,
		User:  user,
	})
}

// Logout exists for API symmetry; bearer tokens simply expire.
func (h *Handler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(fiber.Map{"user": user})
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.UpdateProfileRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	// Check if username or email is already taken by another user
	if req.Username != nil || req.Email != nil {
		var taken models.User
		if err := h.db.Where("(username = ? OR email = ?) AND id != ?",
			deref(req.Username), deref(req.Email), userID).First(&taken).Error; err == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Username or email is already taken",
			})
		}
	}

	weightChanged := false
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Height != nil {
		user.Height = req.Height
	}
	if req.Weight != nil {
		weightChanged = user.Weight == nil || *user.Weight != *req.Weight
		user.Weight = req.Weight
	}

	if err := h.db.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error updating profile",
		})
	}

	// A weight change moves every weight goal, so recompute immediately
	// rather than waiting for a goal read.
	if weightChanged {
		transitions, err := progress.RecomputeAll(h.db, userID, time.Now())
		if err != nil {
			h.log.Warn("goal recompute after weight change failed", zap.Error(err))
		}
		h.dispatchAll(transitions)
		h.cache.InvalidateUser(context.Background(), userID)
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
