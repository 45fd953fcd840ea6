package handlers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/corex/corex-api/internal/codes"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondCodeErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown code", codes.ErrNotFound, fiber.StatusNotFound},
		{"expired code", codes.ErrExpired, fiber.StatusGone},
		{"storage failure", errors.New("database gone"), fiber.StatusInternalServerError},
	}

	h := &Handler{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return h.respondCodeError(c, "group_invite",
					"not found", "expired", "fallback", tc.err)
			})
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}
