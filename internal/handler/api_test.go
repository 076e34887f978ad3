package handler_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/punchcard/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRequired(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, request{method: fiber.MethodGet, path: "/api/promotions"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, request{
		method:  fiber.MethodGet,
		path:    "/api/promotions",
		headers: map[string]string{"X-API-Key": "wrong"},
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, request{method: fiber.MethodGet, path: "/api/promotions", apiKey: true})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRecordTransactionEndpoint(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(t)

	resp := f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/transactions",
		body: fiber.Map{
			"member_id":    member.ID,
			"event_type":   "purchase",
			"amount_spent": 60,
		},
		apiKey: true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var result struct {
		LedgerEntryID uuid.UUID `json:"ledger_entry_id"`
		PointsEarned  int64     `json:"points_earned"`
	}
	decodeBody(t, resp, &result)
	assert.NotEqual(t, uuid.Nil, result.LedgerEntryID)
	assert.Equal(t, int64(70), result.PointsEarned)
}

func TestRecordTransactionEndpointErrors(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(t)

	// Purchase without an amount.
	resp := f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/transactions",
		body:   fiber.Map{"member_id": member.ID, "event_type": "purchase"},
		apiKey: true,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown member.
	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/transactions",
		body:   fiber.Map{"member_id": uuid.New(), "event_type": "visit"},
		apiKey: true,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Replayed idempotency key.
	body := fiber.Map{
		"member_id":       member.ID,
		"event_type":      "visit",
		"idempotency_key": "pos-1-receipt-42",
	}
	resp = f.do(t, request{method: fiber.MethodPost, path: "/api/transactions", body: body, apiKey: true})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = f.do(t, request{method: fiber.MethodPost, path: "/api/transactions", body: body, apiKey: true})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestMemberEndpoints(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(t)

	resp := f.do(t, request{method: fiber.MethodGet, path: "/api/members/" + member.ID.String(), apiKey: true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got model.Member
	decodeBody(t, resp, &got)
	assert.Equal(t, "Basic", got.Tier)

	resp = f.do(t, request{method: fiber.MethodGet, path: "/api/members/not-a-uuid", apiKey: true})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, request{method: fiber.MethodGet, path: "/api/members/" + uuid.NewString(), apiKey: true})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/members/" + member.ID.String() + "/wallet-pass",
		apiKey: true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var pass model.WalletPass
	decodeBody(t, resp, &pass)
	assert.Equal(t, model.PlatformApple, pass.Platform)
	assert.NotEmpty(t, pass.SerialNumber)

	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/members/" + member.ID.String() + "/deactivate",
		apiKey: true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// A deactivated member can no longer record transactions.
	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/transactions",
		body:   fiber.Map{"member_id": member.ID, "event_type": "visit"},
		apiKey: true,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMemberHistoryEndpoints(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(t)

	resp := f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/transactions",
		body:   fiber.Map{"member_id": member.ID, "event_type": "purchase", "amount_spent": 600},
		apiKey: true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = f.do(t, request{
		method: fiber.MethodGet,
		path:   "/api/members/" + member.ID.String() + "/transactions",
		apiKey: true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var txPage struct {
		Transactions []model.LedgerEntry `json:"transactions"`
	}
	decodeBody(t, resp, &txPage)
	require.Len(t, txPage.Transactions, 1)
	assert.Equal(t, float64(600), txPage.Transactions[0].AmountSpent)

	// Spending 600 crosses the Silver threshold.
	resp = f.do(t, request{
		method: fiber.MethodGet,
		path:   "/api/members/" + member.ID.String() + "/tier-history",
		apiKey: true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var tierPage struct {
		TierHistory []model.TierHistory `json:"tier_history"`
	}
	decodeBody(t, resp, &tierPage)
	require.Len(t, tierPage.TierHistory, 1)
	assert.Equal(t, "Silver", tierPage.TierHistory[0].NewTier)
}

func TestPromotionEndpoints(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(t)

	resp := f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/promotions",
		body: fiber.Map{
			"name":           "Ten percent off",
			"discount_type":  "percentage",
			"discount_value": 10,
		},
		apiKey: true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var promo model.Promotion
	decodeBody(t, resp, &promo)
	assert.True(t, promo.IsActive)

	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/promotions",
		body:   fiber.Map{"discount_type": "percentage"},
		apiKey: true,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, request{method: fiber.MethodGet, path: "/api/promotions", apiKey: true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page struct {
		Promotions []model.Promotion `json:"promotions"`
	}
	decodeBody(t, resp, &page)
	assert.Len(t, page.Promotions, 1)

	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/promotions/" + promo.ID.String() + "/assign",
		body:   fiber.Map{"member_id": member.ID},
		apiKey: true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var assigned model.AssignedPromotion
	decodeBody(t, resp, &assigned)
	assert.Equal(t, model.AssignedPromotionPending, assigned.Status)

	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/promotions/" + promo.ID.String() + "/deactivate",
		apiKey: true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/promotions/" + uuid.NewString() + "/deactivate",
		apiKey: true,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSettingsEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, request{
		method: fiber.MethodPut,
		path:   "/api/settings/points_per_visit",
		body:   fiber.Map{"value": "25"},
		apiKey: true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = f.do(t, request{method: fiber.MethodGet, path: "/api/settings", apiKey: true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page struct {
		Settings map[string]string `json:"settings"`
	}
	decodeBody(t, resp, &page)
	assert.Equal(t, "25", page.Settings["points_per_visit"])

	// The new rate applies to the next transaction.
	member := f.createMember(t)
	resp = f.do(t, request{
		method: fiber.MethodPost,
		path:   "/api/transactions",
		body:   fiber.Map{"member_id": member.ID, "event_type": "visit"},
		apiKey: true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var result struct {
		PointsEarned int64 `json:"points_earned"`
	}
	decodeBody(t, resp, &result)
	assert.Equal(t, int64(25), result.PointsEarned)
}
