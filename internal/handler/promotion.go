package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
)

type CreatePromotionRequest struct {
	Name             string             `json:"name"`
	Description      *string            `json:"description,omitempty"`
	DiscountType     model.DiscountType `json:"discount_type"`
	DiscountValue    float64            `json:"discount_value"`
	StartDate        *time.Time         `json:"start_date,omitempty"`
	EndDate          *time.Time         `json:"end_date,omitempty"`
	ValidDays        string             `json:"valid_days"`
	MaxUsageCount    *int               `json:"max_usage_count,omitempty"`
	MaxUsesPerMember *int               `json:"max_uses_per_member,omitempty"`
	BranchScope      string             `json:"branch_scope"`
	TierScope        string             `json:"tier_scope"`
}

func (h *Handler) CreatePromotion(c *fiber.Ctx) error {
	var req CreatePromotionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	promo := &model.Promotion{
		Name:             req.Name,
		Description:      req.Description,
		DiscountType:     req.DiscountType,
		DiscountValue:    req.DiscountValue,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		ValidDays:        req.ValidDays,
		MaxUsageCount:    req.MaxUsageCount,
		MaxUsesPerMember: req.MaxUsesPerMember,
		BranchScope:      req.BranchScope,
		TierScope:        req.TierScope,
		IsActive:         true,
	}
	if err := h.promotionSvc.Create(c.Context(), promo); err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(promo)
}

func (h *Handler) ListPromotions(c *fiber.Ctx) error {
	promos, err := h.promotionSvc.List(c.Context(), c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"promotions": promos,
	})
}

func (h *Handler) DeactivatePromotion(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("promotion_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid promotion id",
		})
	}

	if err := h.promotionSvc.Deactivate(c.Context(), id); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"status": "deactivated",
	})
}

type AssignPromotionRequest struct {
	MemberID uuid.UUID `json:"member_id"`
}

// AssignPromotion grants a member-specific pending promotion.
func (h *Handler) AssignPromotion(c *fiber.Ctx) error {
	promotionID, err := uuid.Parse(c.Params("promotion_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid promotion id",
		})
	}

	var req AssignPromotionRequest
	if err := c.BodyParser(&req); err != nil || req.MemberID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "member_id is required",
		})
	}

	assigned, err := h.promotionSvc.Assign(c.Context(), req.MemberID, promotionID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(assigned)
}
