package progress

import (
	"time"

	"github.com/corex/corex-api/internal/models"
)

// Aggregate reduces the activities falling inside [start, end] (inclusive
// both ends) by the goal type's rule. Weight and custom goals have no
// aggregation source and always yield 0 here; their progress comes from
// ComputeProgress. Deterministic, does not mutate its input, returns 0
// for an empty filtered set.
func Aggregate(goalType string, activities []models.Activity, start, end time.Time) float64 {
	var sum float64
	for _, a := range activities {
		if a.PerformedAt.Before(start) || a.PerformedAt.After(end) {
			continue
		}
		switch goalType {
		case models.GoalCaloriesBurned:
			if a.Category == models.CategoryExercise {
				sum += a.Calories
			}
		case models.GoalCaloriesConsumed:
			if a.Category == models.CategoryMeal {
				sum += a.Calories
			}
		case models.GoalProtein:
			if a.Category == models.CategoryMeal {
				sum += a.ProteinGrams()
			}
		}
	}
	return sum
}
