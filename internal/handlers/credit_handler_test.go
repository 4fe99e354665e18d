package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinkflag/backend/internal/config"
	"github.com/pinkflag/backend/internal/middleware"
	"github.com/pinkflag/backend/internal/services"
)

type fakeCreditStore struct {
	balance      int
	balanceErr   error
	deductResult *services.DeductResult
	deductErr    error
	deductCalls  int
}

func (f *fakeCreditStore) GetBalance(context.Context, uuid.UUID) (int, error) {
	return f.balance, f.balanceErr
}

func (f *fakeCreditStore) DeductForSearch(_ context.Context, _ uuid.UUID, searchType, query string, cost int) (*services.DeductResult, error) {
	f.deductCalls++
	return f.deductResult, f.deductErr
}

func newCreditApp(store services.CreditStore) (*fiber.App, *config.Config) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	app := fiber.New()
	h := NewCreditHandler(store)
	app.Get("/api/credits", middleware.JWTProtected(cfg), h.GetBalance)
	app.Post("/api/searches", middleware.JWTProtected(cfg), h.StartSearch)
	return app, cfg
}

func issueToken(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(15 * time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func TestGetBalance_RequiresToken(t *testing.T) {
	app, _ := newCreditApp(&fakeCreditStore{})

	status, body := doRequest(t, app, http.MethodGet, "/api/credits", "", "")

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, true, body["error"])
}

func TestGetBalance_ReturnsCredits(t *testing.T) {
	app, cfg := newCreditApp(&fakeCreditStore{balance: 42})
	token := issueToken(t, cfg, uuid.New())

	status, body := doRequest(t, app, http.MethodGet, "/api/credits", token, "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(42), body["credits"])
}

func TestStartSearch_UnknownSearchType(t *testing.T) {
	store := &fakeCreditStore{}
	app, cfg := newCreditApp(store)
	token := issueToken(t, cfg, uuid.New())

	status, _ := doRequest(t, app, http.MethodPost, "/api/searches", token,
		`{"search_type":"dna","query":"John Doe"}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, store.deductCalls)
}

func TestStartSearch_InsufficientCredits(t *testing.T) {
	store := &fakeCreditStore{
		deductResult: &services.DeductResult{Success: false, Error: "insufficient_credits", Credits: 3},
	}
	app, cfg := newCreditApp(store)
	token := issueToken(t, cfg, uuid.New())

	status, body := doRequest(t, app, http.MethodPost, "/api/searches", token,
		`{"search_type":"name","query":"John Doe"}`)

	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient_credits", body["error"])
	assert.Equal(t, float64(3), body["current_credits"])
}

func TestStartSearch_DeductsAndRecords(t *testing.T) {
	searchID := uuid.New().String()
	store := &fakeCreditStore{
		deductResult: &services.DeductResult{Success: true, SearchID: searchID, Credits: 90},
	}
	app, cfg := newCreditApp(store)
	token := issueToken(t, cfg, uuid.New())

	status, body := doRequest(t, app, http.MethodPost, "/api/searches", token,
		`{"search_type":"name","query":"John Doe"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, searchID, body["search_id"])
	assert.Equal(t, float64(90), body["credits"])
	assert.Equal(t, 1, store.deductCalls)
}
