package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/punchcard/backend/internal/service"
)

// RecordTransaction records one usage event: the ledger insert, point
// accrual, requested promotion redemptions and the wallet/CRM side
// effects. 400 invalid input, 404 unknown member, 409 duplicate
// idempotency key, 500 persistence failure.
func (h *Handler) RecordTransaction(c *fiber.Ctx) error {
	var input service.RecordTransactionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	result, err := h.txSvc.Record(c.Context(), &input)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}
