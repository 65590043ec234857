package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicestudio/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	return payload
}

func TestResponderJSON(t *testing.T) {
	rp := NewResponder(testLogger(), false)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rp.JSON(rr, req, http.StatusOK, APIResponse{Data: map[string]string{"plan": "paid"}})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	payload := decodeBody(t, rr)
	assert.Equal(t, map[string]any{"plan": "paid"}, payload["data"])
}

func TestResponderErrorRecoverable(t *testing.T) {
	rp := NewResponder(testLogger(), false)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	rp.Error(rr, req, types.Recoverable("Board not found", "the board is missing"))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	payload := decodeBody(t, rr)
	assert.Equal(t, float64(4000), payload["severityCode"])
	assert.Equal(t, "Board not found", payload["notificationErrorTitle"])
	assert.NotContains(t, payload, "disableErrorDescription")
}

func TestResponderErrorUnrecoverable(t *testing.T) {
	rp := NewResponder(testLogger(), false)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	rp.Error(rr, req, types.Unrecoverable(
		"Billing source unavailable",
		"the plan board no longer exists",
		"Disabled until the app is reconfigured.",
	))

	assert.Equal(t, http.StatusGone, rr.Code)
	payload := decodeBody(t, rr)
	assert.Equal(t, float64(6000), payload["severityCode"])
	assert.Equal(t, "Disabled until the app is reconfigured.", payload["disableErrorDescription"])
}

func TestResponderErrorStatusOverride(t *testing.T) {
	rp := NewResponder(testLogger(), false)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	rp.Error(rr, req, types.Recoverable("Upgrade required", "upgrade to export").
		WithStatus(http.StatusPaymentRequired))

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	payload := decodeBody(t, rr)
	assert.Equal(t, float64(4000), payload["severityCode"])
}

func TestResponderErrorWrappedActionError(t *testing.T) {
	rp := NewResponder(testLogger(), false)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	inner := types.Recoverable("Board not found", "the board is missing")
	rp.Error(rr, req, fmt.Errorf("handler: %w", inner))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestResponderErrorUnclassified(t *testing.T) {
	t.Run("non-production leaks detail into runtime description", func(t *testing.T) {
		rp := NewResponder(testLogger(), false)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)

		rp.Error(rr, req, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		payload := decodeBody(t, rr)
		assert.Equal(t, "Something went wrong", payload["notificationErrorTitle"])
		assert.Equal(t, "pq: connection refused", payload["runtimeErrorDescription"])
	})

	t.Run("production leaks nothing", func(t *testing.T) {
		rp := NewResponder(testLogger(), true)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)

		rp.Error(rr, req, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "connection refused")
		payload := decodeBody(t, rr)
		assert.Equal(t, "an unexpected error occurred", payload["runtimeErrorDescription"])
	})
}

func TestDecodeJSON(t *testing.T) {
	rp := NewResponder(testLogger(), false)

	t.Run("valid body", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))

		var dst struct {
			Name string `json:"name"`
		}
		require.NoError(t, rp.DecodeJSON(rr, req, &dst))
		assert.Equal(t, "x", dst.Name)
	})

	t.Run("malformed body is a recoverable action error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))

		var dst map[string]any
		decodeErr := rp.DecodeJSON(rr, req, &dst)
		require.Error(t, decodeErr)

		var actionErr *types.ActionError
		require.ErrorAs(t, decodeErr, &actionErr)
		assert.Equal(t, types.SeverityRecoverable, actionErr.Severity)
	})
}
