package handlers

import (
	"context"
	"time"

	"github.com/corex/corex-api/internal/middleware"
	"github.com/corex/corex-api/internal/models"
	"github.com/corex/corex-api/internal/progress"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) CreateActivity(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateActivityRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	activity := models.Activity{
		UserID:       userID,
		Category:     req.Category,
		ActivityType: req.ActivityType,
		Name:         req.Name,
		Duration:     req.Duration,
		Calories:     req.Calories,
		Protein:      req.Protein,
		Notes:        req.Notes,
		PerformedAt:  time.Now(),
	}
	if err := h.db.Create(&activity).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error creating activity",
		})
	}

	h.recomputeAfterActivityChange(userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"activity": activity})
}

func (h *Handler) GetActivities(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	query := h.db.Where("user_id = ?", userID)

	// Optional time range
	if start, end := c.Query("start"), c.Query("end"); start != "" && end != "" {
		startAt, err1 := time.Parse(time.RFC3339, start)
		endAt, err2 := time.Parse(time.RFC3339, end)
		if err1 != nil || err2 != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid time range",
			})
		}
		query = query.Where("performed_at BETWEEN ? AND ?", startAt, endAt)
	}

	var activities []models.Activity
	if err := query.Order("performed_at DESC").Find(&activities).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error fetching activities",
		})
	}

	return c.JSON(fiber.Map{"activities": activities})
}

func (h *Handler) UpdateActivity(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid activity ID",
		})
	}

	var req models.UpdateActivityRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	var activity models.Activity
	if err := h.db.Where("id = ? AND user_id = ?", activityID, userID).First(&activity).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Activity not found",
		})
	}

	if req.Category != nil {
		activity.Category = *req.Category
	}
	if req.ActivityType != nil {
		activity.ActivityType = *req.ActivityType
	}
	if req.Name != nil {
		activity.Name = *req.Name
	}
	if req.Duration != nil {
		activity.Duration = req.Duration
	}
	if req.Calories != nil {
		activity.Calories = *req.Calories
	}
	if req.Protein != nil {
		activity.Protein = req.Protein
	}
	if req.Notes != nil {
		activity.Notes = *req.Notes
	}

	if err := h.db.Save(&activity).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error updating activity",
		})
	}

	h.recomputeAfterActivityChange(userID)

	return c.JSON(fiber.Map{"activity": activity})
}

func (h *Handler) DeleteActivity(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid activity ID",
		})
	}

	result := h.db.Where("id = ? AND user_id = ?", activityID, userID).Delete(&models.Activity{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error deleting activity",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Activity not found",
		})
	}

	h.recomputeAfterActivityChange(userID)

	return c.JSON(fiber.Map{"message": "Activity deleted successfully"})
}

// recomputeAfterActivityChange keeps goal state in step with its inputs.
// The activity write has already committed; recompute or notification
// problems are logged, never surfaced.
func (h *Handler) recomputeAfterActivityChange(userID uuid.UUID) {
	transitions, err := progress.RecomputeAll(h.db, userID, time.Now())
	if err != nil {
		h.log.Warn("goal recompute after activity change failed", zap.Error(err))
	}
	h.dispatchAll(transitions)
	h.cache.InvalidateUser(context.Background(), userID)
}
