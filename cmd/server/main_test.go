package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newErrorHandlerApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: customErrorHandler})
	app.Use(recover.New())
	return app
}

func execute(t *testing.T, app *fiber.App, method, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func TestErrorHandler_WebhookPanicKeepsFailureShape(t *testing.T) {
	app := newErrorHandlerApp()
	app.Post("/api/webhooks/revenuecat", func(c *fiber.Ctx) error {
		panic("nil map write")
	})

	status, body := execute(t, app, http.MethodPost, "/api/webhooks/revenuecat")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Internal server error", body["error"])
}

func TestErrorHandler_GenericShapeElsewhere(t *testing.T) {
	app := newErrorHandlerApp()
	app.Get("/api/credits", func(c *fiber.Ctx) error {
		return errors.New("connection reset")
	})

	status, body := execute(t, app, http.MethodGet, "/api/credits")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "Internal server error", body["message"])
}
