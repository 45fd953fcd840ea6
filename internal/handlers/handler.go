package handlers

import (
	"errors"

	"github.com/corex/corex-api/internal/cache"
	"github.com/corex/corex-api/internal/codes"
	"github.com/corex/corex-api/internal/mailer"
	"github.com/corex/corex-api/internal/metrics"
	"github.com/corex/corex-api/internal/notify"
	"github.com/corex/corex-api/internal/progress"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler carries the explicit collaborators every endpoint needs. No
// package globals: the store handle, mailer and logger are injected once
// at startup.
type Handler struct {
	db       *gorm.DB
	log      *zap.Logger
	validate *validator.Validate
	registry *codes.Registry
	dispatch *notify.Dispatcher
	mail     mailer.Mailer
	cache    *cache.Cache
}

func New(db *gorm.DB, log *zap.Logger, mail mailer.Mailer, c *cache.Cache) *Handler {
	return &Handler{
		db:       db,
		log:      log,
		validate: validator.New(),
		registry: codes.NewRegistry(db),
		dispatch: notify.NewDispatcher(db, mail, log),
		mail:     mail,
		cache:    c,
	}
}

// parseBody decodes and validates a request body, writing the 400
// response itself. Returns false when the caller should bail out.
func (h *Handler) parseBody(c *fiber.Ctx, dest interface{}) bool {
	if err := c.BodyParser(dest); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
		return false
	}
	return true
}

// respondCodeError maps a registry error onto the code taxonomy: unknown
// codes answer 404, expired ones 410, anything else 500. Records the
// redemption outcome under the given namespace.
func (h *Handler) respondCodeError(c *fiber.Ctx, namespace, notFoundMsg, expiredMsg, fallbackMsg string, err error) error {
	switch {
	case errors.Is(err, codes.ErrNotFound):
		metrics.CodesRedeemed.WithLabelValues(namespace, "not_found").Inc()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFoundMsg,
		})
	case errors.Is(err, codes.ErrExpired):
		metrics.CodesRedeemed.WithLabelValues(namespace, "expired").Inc()
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": expiredMsg,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallbackMsg,
		})
	}
}

// dispatchAll fans out every persisted transition. The state writes have
// already committed; notification delivery cannot undo them.
func (h *Handler) dispatchAll(transitions []progress.Transition) {
	for _, t := range transitions {
		metrics.GoalTransitions.WithLabelValues(t.After.Status).Inc()
		h.dispatch.GoalTransition(t)
	}
}
