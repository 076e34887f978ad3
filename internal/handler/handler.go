package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/punchcard/backend/internal/config"
	"github.com/punchcard/backend/internal/service"
)

type Handler struct {
	cfg          *config.Config
	memberSvc    *service.MemberService
	txSvc        *service.TransactionService
	promotionSvc *service.PromotionService
	walletSvc    *service.WalletService
	settings     service.SettingsStore
}

func New(
	cfg *config.Config,
	memberSvc *service.MemberService,
	txSvc *service.TransactionService,
	promotionSvc *service.PromotionService,
	walletSvc *service.WalletService,
	settings service.SettingsStore,
) *Handler {
	return &Handler{
		cfg:          cfg,
		memberSvc:    memberSvc,
		txSvc:        txSvc,
		promotionSvc: promotionSvc,
		walletSvc:    walletSvc,
		settings:     settings,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// serviceError maps the service error taxonomy onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrPromotionNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrDuplicateTransaction):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
