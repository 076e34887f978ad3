package handler

import (
	"github.com/gofiber/fiber/v2"
)

// GetSettings dumps the key/value configuration surface: points rules,
// tier thresholds and anything else the services read at evaluation
// time.
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.GetAllSettings(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"settings": settings,
	})
}

type SetSettingRequest struct {
	Value string `json:"value"`
}

// SetSetting upserts one setting; services pick the new value up on
// their next evaluation, no restart needed.
func (h *Handler) SetSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "setting key is required",
		})
	}

	var req SetSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.settings.SetSetting(c.Context(), key, req.Value); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
