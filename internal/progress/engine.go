package progress

import (
	"time"

	"github.com/corex/corex-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Snapshot captures the pair of mutable goal fields the recompute step
// owns. Everything downstream (notification banding, achievement
// detection) works off before/after snapshots.
type Snapshot struct {
	CurrentValue float64
	Status       string
}

// Transition is emitted when a recompute actually changed the stored goal.
type Transition struct {
	Goal   models.Goal
	Before Snapshot
	After  Snapshot
}

// ComputeProgress returns the goal's current progress value. Calorie and
// protein goals aggregate activities over the goal's period window; weight
// goals read the live weight and ignore the window; custom goals have no
// computable source and keep their stored value.
func ComputeProgress(goal models.Goal, activities []models.Activity, currentWeight float64, now time.Time) float64 {
	switch goal.Type {
	case models.GoalWeight:
		return currentWeight
	case models.GoalCustom:
		return goal.CurrentValue
	default:
		start, end := Window(goal.Period, now)
		return Aggregate(goal.Type, activities, start, end)
	}
}

// ResolveStatus derives the goal status from the computed progress. The
// deadline check is terminal and comes first: past end_date a goal is
// completed or failed, nothing else. Before the deadline a goal can only
// be in_progress or completed.
//
// Weight goals compare against the StartValue baseline: a target below the
// baseline is a loss goal and completes when progress drops to the target;
// otherwise it is a gain goal and completes when progress reaches it.
func ResolveStatus(goal models.Goal, progress float64, now time.Time) string {
	if goal.EndDate != nil && now.After(*goal.EndDate) {
		if progress >= goal.TargetValue {
			return models.StatusCompleted
		}
		return models.StatusFailed
	}

	if goal.Type == models.GoalWeight {
		if goal.TargetValue < goal.StartValue {
			if progress <= goal.TargetValue {
				return models.StatusCompleted
			}
			return models.StatusInProgress
		}
		if progress >= goal.TargetValue {
			return models.StatusCompleted
		}
		return models.StatusInProgress
	}

	if progress >= goal.TargetValue {
		return models.StatusCompleted
	}
	return models.StatusInProgress
}

// Recompute loads the owner's activities and weight, recomputes the
// goal's progress and status, and persists the pair when either changed.
// Returns nil when nothing changed, so recomputing twice with unchanged
// inputs emits no event.
func Recompute(db *gorm.DB, goal *models.Goal, now time.Time) (*Transition, error) {
	var activities []models.Activity
	if goal.Type != models.GoalWeight && goal.Type != models.GoalCustom {
		if err := db.Where("user_id = ?", goal.UserID).Find(&activities).Error; err != nil {
			return nil, err
		}
	}

	var weight float64
	if goal.Type == models.GoalWeight {
		var user models.User
		if err := db.First(&user, "id = ?", goal.UserID).Error; err != nil {
			return nil, err
		}
		weight = user.CurrentWeight()
	}

	before := Snapshot{CurrentValue: goal.CurrentValue, Status: goal.Status}

	value := ComputeProgress(*goal, activities, weight, now)
	status := ResolveStatus(*goal, value, now)

	if value == before.CurrentValue && status == before.Status {
		return nil, nil
	}

	goal.CurrentValue = value
	goal.Status = status
	if err := db.Model(goal).Updates(map[string]interface{}{
		"current_value": value,
		"status":        status,
	}).Error; err != nil {
		return nil, err
	}

	return &Transition{
		Goal:   *goal,
		Before: before,
		After:  Snapshot{CurrentValue: value, Status: status},
	}, nil
}

// RecomputeAll recomputes every goal of a user that is still in progress.
// Called after activity mutations and weight changes so goal state moves
// with its inputs rather than waiting for a dashboard poll.
func RecomputeAll(db *gorm.DB, userID uuid.UUID, now time.Time) ([]Transition, error) {
	var goals []models.Goal
	if err := db.Where("user_id = ? AND status = ?", userID, models.StatusInProgress).Find(&goals).Error; err != nil {
		return nil, err
	}

	var transitions []Transition
	for i := range goals {
		t, err := Recompute(db, &goals[i], now)
		if err != nil {
			return transitions, err
		}
		if t != nil {
			transitions = append(transitions, *t)
		}
	}
	return transitions, nil
}
