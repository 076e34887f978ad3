package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/punchcard/backend/internal/config"
	"github.com/punchcard/backend/internal/handler"
	"github.com/punchcard/backend/internal/middleware"
	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/service"
	"github.com/punchcard/backend/internal/storetest"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey   = "test-api-key"
	testPassType = "pass.com.punchcard.card"
)

type stubBuilder struct{}

func (stubBuilder) Build(member *model.Member, pass *model.WalletPass) ([]byte, error) {
	return []byte("pkpass:" + pass.SerialNumber), nil
}

type fixture struct {
	app       *fiber.App
	store     *storetest.Memory
	walletSvc *service.WalletService
	memberSvc *service.MemberService
}

// newFixture stands up the app with the same route table the server
// uses, backed by the in-memory store.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storetest.New()
	cfg := &config.Config{}
	cfg.Server.APIKey = testAPIKey
	cfg.Wallet.PassTypeIdentifier = testPassType

	pointsPolicy := service.NewPointsPolicy(store)
	tierSvc := service.NewTierService(store)
	promotionSvc := service.NewPromotionService(store)
	walletSvc := service.NewWalletService(store, stubBuilder{})
	outboxSvc := service.NewOutboxService(store)
	memberSvc := service.NewMemberService(store, walletSvc, outboxSvc)
	txSvc := service.NewTransactionService(store, pointsPolicy, promotionSvc, tierSvc, walletSvc, outboxSvc)

	h := handler.New(cfg, memberSvc, txSvc, promotionSvc, walletSvc, store)
	walletHandler := handler.NewWalletHandler(cfg, walletSvc)

	app := fiber.New()
	app.Get("/health", h.Health)

	wallet := app.Group("/wallet/v1", middleware.WalletAudit(store))
	wallet.Post("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier/:serialNumber", walletHandler.RegisterDevice)
	wallet.Delete("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier/:serialNumber", walletHandler.UnregisterDevice)
	wallet.Get("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier", walletHandler.ListUpdatedSerials)
	wallet.Get("/passes/:passTypeIdentifier/:serialNumber", walletHandler.GetPass)
	wallet.Post("/log", walletHandler.Log)

	api := app.Group("/api", middleware.APIKey(cfg))
	api.Post("/transactions", h.RecordTransaction)
	api.Post("/members", h.CreateMember)
	api.Get("/members/:member_id", h.GetMember)
	api.Get("/members/:member_id/transactions", h.GetMemberTransactions)
	api.Get("/members/:member_id/tier-history", h.GetMemberTierHistory)
	api.Post("/members/:member_id/deactivate", h.DeactivateMember)
	api.Post("/members/:member_id/wallet-pass", h.CreateWalletPass)
	api.Get("/promotions", h.ListPromotions)
	api.Post("/promotions", h.CreatePromotion)
	api.Post("/promotions/:promotion_id/deactivate", h.DeactivatePromotion)
	api.Post("/promotions/:promotion_id/assign", h.AssignPromotion)
	api.Get("/settings", h.GetSettings)
	api.Put("/settings/:key", h.SetSetting)

	return &fixture{app: app, store: store, walletSvc: walletSvc, memberSvc: memberSvc}
}

type request struct {
	method  string
	path    string
	body    interface{}
	headers map[string]string
	apiKey  bool
}

func (f *fixture) do(t *testing.T, req request) *http.Response {
	t.Helper()

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	httpReq := httptest.NewRequest(req.method, req.path, body)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.apiKey {
		httpReq.Header.Set("X-API-Key", testAPIKey)
	}
	for name, value := range req.headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := f.app.Test(httpReq, 5000)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func formatUnix(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

func (f *fixture) createMember(t *testing.T) *model.Member {
	t.Helper()
	resp := f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/members",
		body:   fiber.Map{"full_name": "Ada Lovelace"},
		apiKey: true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var member model.Member
	decodeBody(t, resp, &member)
	return &member
}
