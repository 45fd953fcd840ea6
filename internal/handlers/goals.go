package handlers

import (
	"context"
	"time"

	"github.com/corex/corex-api/internal/cache"
	"github.com/corex/corex-api/internal/metrics"
	"github.com/corex/corex-api/internal/middleware"
	"github.com/corex/corex-api/internal/models"
	"github.com/corex/corex-api/internal/progress"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) GetGoals(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var goals []models.Goal
	if h.cache.Get(c.Context(), cache.GoalsKey(userID), &goals) {
		return c.JSON(fiber.Map{"goals": goals})
	}

	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&goals).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error fetching goals",
		})
	}

	h.cache.Set(c.Context(), cache.GoalsKey(userID), goals, time.Minute)

	return c.JSON(fiber.Map{"goals": goals})
}

func (h *Handler) CreateGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	now := time.Now()

	var req models.CreateGoalRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	period := req.Period
	if period == "" {
		period = models.PeriodTotal
	}

	startValue, err := h.initialValue(userID, req.Type, period, now)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error creating goal",
		})
	}

	goal := models.Goal{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Period:      period,
		Unit:        req.Unit,
		TargetValue: req.TargetValue,
		// The baseline snapshot: weight goals compare against it, and
		// the first progress read starts from it.
		StartValue:   startValue,
		CurrentValue: startValue,
		EndDate:      req.EndDate,
	}
	if err := h.db.Create(&goal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error creating goal",
		})
	}

	h.cache.InvalidateUser(context.Background(), userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"goal": goal})
}

// initialValue snapshots where the user currently stands for the goal
// type: the live weight for weight goals, the period-window aggregate for
// calorie/protein goals, zero for custom goals.
func (h *Handler) initialValue(userID uuid.UUID, goalType, period string, now time.Time) (float64, error) {
	switch goalType {
	case models.GoalWeight:
		var user models.User
		if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
			return 0, err
		}
		return user.CurrentWeight(), nil
	case models.GoalCustom:
		return 0, nil
	default:
		var activities []models.Activity
		if err := h.db.Where("user_id = ?", userID).Find(&activities).Error; err != nil {
			return 0, err
		}
		start, end := progress.Window(period, now)
		return progress.Aggregate(goalType, activities, start, end), nil
	}
}

func (h *Handler) UpdateGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	now := time.Now()

	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	var req models.UpdateGoalRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	var goal models.Goal
	if err := h.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}

	before := progress.Snapshot{CurrentValue: goal.CurrentValue, Status: goal.Status}

	if req.Title != nil {
		goal.Title = *req.Title
	}
	if req.Description != nil {
		goal.Description = *req.Description
	}
	if req.Unit != nil {
		goal.Unit = *req.Unit
	}
	if req.TargetValue != nil {
		goal.TargetValue = *req.TargetValue
	}
	if req.CurrentValue != nil {
		goal.CurrentValue = *req.CurrentValue
	}
	if req.EndDate != nil {
		goal.EndDate = req.EndDate
	}

	// Status follows the recompute rule unless the user overrides it
	// explicitly via edit.
	if req.Status != nil {
		goal.Status = *req.Status
	} else {
		goal.Status = progress.ResolveStatus(goal, goal.CurrentValue, now)
	}

	if err := h.db.Save(&goal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error updating goal",
		})
	}

	after := progress.Snapshot{CurrentValue: goal.CurrentValue, Status: goal.Status}
	if before != after {
		h.dispatchAll([]progress.Transition{{Goal: goal, Before: before, After: after}})
	}
	h.cache.InvalidateUser(context.Background(), userID)

	return c.JSON(fiber.Map{"goal": goal})
}

func (h *Handler) DeleteGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	result := h.db.Where("id = ? AND user_id = ?", goalID, userID).Delete(&models.Goal{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error deleting goal",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}

	h.cache.InvalidateUser(context.Background(), userID)

	return c.JSON(fiber.Map{"message": "Goal deleted successfully"})
}

// GetGoalProgress recomputes a goal on read and returns the fresh value.
func (h *Handler) GetGoalProgress(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	var goal models.Goal
	if err := h.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}

	transition, err := progress.Recompute(h.db, &goal, time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error calculating goal progress",
		})
	}
	if transition != nil {
		h.dispatchAll([]progress.Transition{*transition})
		h.cache.InvalidateUser(context.Background(), userID)
	}

	return c.JSON(fiber.Map{
		"progress": goal.CurrentValue,
		"status":   goal.Status,
	})
}

// AcceptGoal redeems a sharing code, cloning the shared goal for the
// caller. The clone starts from zero: the recipient runs their own goal
// instance, not a shared mutable one.
func (h *Handler) AcceptGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	now := time.Now()

	var req models.AcceptGoalRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	// Domain checks run against a non-consuming lookup; the code is only
	// consumed once the source goal is known to still exist.
	shared, err := h.registry.LookupGoalShare(req.Code, now)
	if err != nil {
		return h.respondCodeError(c, "goal_share",
			"Invalid sharing code", "This sharing code has expired",
			"Error accepting goal", err)
	}

	var source models.Goal
	if err := h.db.First(&source, "id = ?", shared.GoalID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Shared goal no longer exists",
		})
	}

	if _, err := h.registry.RedeemGoalShare(req.Code, now); err != nil {
		return h.respondCodeError(c, "goal_share",
			"Invalid sharing code", "This sharing code has expired",
			"Error accepting goal", err)
	}
	metrics.CodesRedeemed.WithLabelValues("goal_share", "ok").Inc()

	goal := models.Goal{
		UserID:      userID,
		Title:       source.Title,
		Description: source.Description,
		Type:        source.Type,
		Period:      source.Period,
		Unit:        source.Unit,
		TargetValue: source.TargetValue,
		EndDate:     source.EndDate,
		// Fresh start for the recipient
		CurrentValue: 0,
		StartValue:   0,
	}
	if err := h.db.Create(&goal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error accepting goal",
		})
	}

	h.cache.InvalidateUser(context.Background(), userID)
	h.log.Info("shared goal accepted",
		zap.String("userId", userID.String()),
		zap.String("sourceGoalId", shared.GoalID.String()),
	)

	return c.JSON(fiber.Map{"goal": goal})
}
