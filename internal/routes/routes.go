package routes

import (
	"github.com/corex/corex-api/internal/handlers"
	"github.com/corex/corex-api/internal/metrics"
	"github.com/corex/corex-api/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(app *fiber.App, h *handlers.Handler) {
	app.Use(metrics.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/logout", h.Logout)

	protected := api.Group("/", middleware.Protected())

	protected.Get("/me", h.GetMe)
	protected.Put("/me", h.UpdateProfile)

	activities := protected.Group("/activities")
	activities.Post("/", h.CreateActivity)
	activities.Get("/", h.GetActivities)
	activities.Put("/:id", h.UpdateActivity)
	activities.Delete("/:id", h.DeleteActivity)

	goals := protected.Group("/goals")
	goals.Get("/", h.GetGoals)
	goals.Post("/", h.CreateGoal)
	goals.Put("/:id", h.UpdateGoal)
	goals.Delete("/:id", h.DeleteGoal)
	goals.Get("/:id/progress", h.GetGoalProgress)
	goals.Post("/accept", h.AcceptGoal)

	groups := protected.Group("/groups")
	groups.Get("/", h.GetGroups)
	groups.Post("/", h.CreateGroup)
	groups.Get("/:id/members", h.GetGroupMembers)
	groups.Post("/:id/invite", h.InviteToGroup)
	groups.Post("/join", h.JoinGroup)
	groups.Post("/:id/leave", h.LeaveGroup)
	groups.Post("/:id/goals/:goalId/share", h.ShareGoal)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.GetNotifications)
	notifications.Put("/:id/read", h.MarkNotificationRead)
	notifications.Post("/read-all", h.MarkAllRead)
}
