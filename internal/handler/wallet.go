package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/punchcard/backend/internal/config"
	"github.com/punchcard/backend/internal/service"
)

// WalletHandler exposes the wallet web-service protocol. Status codes
// and payload shapes here are fixed by the wallet platform; change them
// and cards silently stop updating.
type WalletHandler struct {
	cfg       *config.Config
	walletSvc *service.WalletService
}

func NewWalletHandler(cfg *config.Config, walletSvc *service.WalletService) *WalletHandler {
	return &WalletHandler{cfg: cfg, walletSvc: walletSvc}
}

// passToken extracts the token from an "ApplePass <token>" header.
func passToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "ApplePass ") {
		return strings.TrimPrefix(auth, "ApplePass ")
	}
	return ""
}

func (h *WalletHandler) knownPassType(c *fiber.Ctx) bool {
	return c.Params("passTypeIdentifier") == h.cfg.Wallet.PassTypeIdentifier
}

type registerDeviceRequest struct {
	PushToken string `json:"pushToken"`
}

// RegisterDevice binds a device to a pass: 201 on a new or revived
// binding, 200 when it was already active.
func (h *WalletHandler) RegisterDevice(c *fiber.Ctx) error {
	if !h.knownPassType(c) {
		return c.SendStatus(fiber.StatusNotFound)
	}

	token := passToken(c)
	if token == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req registerDeviceRequest
	if err := c.BodyParser(&req); err != nil || req.PushToken == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	created, err := h.walletSvc.RegisterDevice(
		c.Context(),
		c.Params("deviceLibraryIdentifier"),
		c.Params("serialNumber"),
		token,
		req.PushToken,
	)
	if err != nil {
		return walletError(c, err)
	}

	if created {
		return c.SendStatus(fiber.StatusCreated)
	}
	return c.SendStatus(fiber.StatusOK)
}

// UnregisterDevice drops the binding. The protocol demands 200 even
// when the internal update fails; only a failed token check may deviate.
func (h *WalletHandler) UnregisterDevice(c *fiber.Ctx) error {
	if !h.knownPassType(c) {
		return c.SendStatus(fiber.StatusNotFound)
	}

	token := passToken(c)
	if token == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	err := h.walletSvc.UnregisterDevice(
		c.Context(),
		c.Params("deviceLibraryIdentifier"),
		c.Params("serialNumber"),
		token,
	)
	if err != nil {
		return walletError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// ListUpdatedSerials tells a device which of its registered passes
// changed since its last check. 204 when nothing did.
func (h *WalletHandler) ListUpdatedSerials(c *fiber.Ctx) error {
	if !h.knownPassType(c) {
		return c.SendStatus(fiber.StatusNotFound)
	}

	var since *int64
	if raw := c.Query("passesUpdatedSince"); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		since = &ts
	}

	serials, err := h.walletSvc.SerialsUpdatedSince(c.Context(), c.Params("deviceLibraryIdentifier"), since)
	if err != nil {
		return walletError(c, err)
	}
	if len(serials) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.JSON(fiber.Map{
		"serialNumbers": serials,
		"lastUpdated":   strconv.FormatInt(time.Now().Unix(), 10),
	})
}

// GetPass serves the current card with conditional-GET semantics:
// 401 bad/missing auth, 404 unknown pass, 410 voided (terminal),
// 304 not modified, 200 with the archive and Last-Modified.
func (h *WalletHandler) GetPass(c *fiber.Ctx) error {
	if !h.knownPassType(c) {
		return c.SendStatus(fiber.StatusNotFound)
	}

	token := passToken(c)
	if token == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var ifModifiedSince *time.Time
	if raw := c.Get(fiber.HeaderIfModifiedSince); raw != "" {
		if ts, err := http.ParseTime(raw); err == nil {
			utc := ts.UTC()
			ifModifiedSince = &utc
		}
	}

	result, err := h.walletSvc.Pass(c.Context(), c.Params("serialNumber"), token, ifModifiedSince)
	if err != nil {
		return walletError(c, err)
	}

	c.Set(fiber.HeaderLastModified, result.LastUpdated.Format(http.TimeFormat))
	if result.NotModified {
		return c.SendStatus(fiber.StatusNotModified)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.apple.pkpass")
	return c.Send(result.Data)
}

type deviceLogRequest struct {
	Logs []string `json:"logs"`
}

// Log accepts diagnostic messages posted by wallet devices.
func (h *WalletHandler) Log(c *fiber.Ctx) error {
	var req deviceLogRequest
	if err := c.BodyParser(&req); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	for _, line := range req.Logs {
		log.Printf("[Wallet Device] %s", line)
	}
	return c.SendStatus(fiber.StatusOK)
}

func walletError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBadPassToken):
		return c.SendStatus(fiber.StatusUnauthorized)
	case errors.Is(err, service.ErrPassNotFound):
		return c.SendStatus(fiber.StatusNotFound)
	case errors.Is(err, service.ErrPassVoided):
		return c.SendStatus(fiber.StatusGone)
	}
	return c.SendStatus(fiber.StatusInternalServerError)
}
