package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

type CreateMemberRequest struct {
	FullName string  `json:"full_name"`
	Email    *string `json:"email,omitempty"`
}

func (h *Handler) CreateMember(c *fiber.Ctx) error {
	var req CreateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	member, err := h.memberSvc.Create(c.Context(), req.FullName, req.Email)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

func (h *Handler) GetMember(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("member_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid member id",
		})
	}

	member, err := h.memberSvc.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(member)
}

func (h *Handler) GetMemberTransactions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("member_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid member id",
		})
	}

	entries, err := h.memberSvc.Transactions(c.Context(), id, c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"transactions": entries,
	})
}

func (h *Handler) GetMemberTierHistory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("member_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid member id",
		})
	}

	history, err := h.memberSvc.TierHistory(c.Context(), id, c.QueryInt("limit", 20))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"tier_history": history,
	})
}

func (h *Handler) DeactivateMember(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("member_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid member id",
		})
	}

	if err := h.memberSvc.Deactivate(c.Context(), id); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"status": "deactivated",
	})
}

// CreateWalletPass returns the member's pass credentials for a
// platform, creating the pass on first call. This is the onboarding
// hook that puts the card into the member's wallet app.
func (h *Handler) CreateWalletPass(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("member_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid member id",
		})
	}

	platform := c.Query("platform", model.PlatformApple)
	pass, err := h.walletSvc.EnsurePass(c.Context(), id, platform)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pass)
}
