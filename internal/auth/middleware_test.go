package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "s3cret"

func setupEcho(t *testing.T, strictStatus bool) (*echo.Echo, *bool) {
	t.Helper()

	reached := false
	e := echo.New()
	g := e.Group("/search", Middleware(testSecret, strictStatus, zap.NewNop()))
	g.GET("/:email", func(c echo.Context) error {
		reached = true
		return c.String(http.StatusOK, "ok")
	})
	return e, &reached
}

func TestMiddleware_ValidKey(t *testing.T) {
	e, reached := setupEcho(t, false)

	key, err := DeriveAPIKey("alice@example.com", testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/search/alice@example.com?api_key="+key, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached, "handler should run for a valid key")
}

func TestMiddleware_InvalidKey(t *testing.T) {
	e, reached := setupEcho(t, false)

	req := httptest.NewRequest(http.MethodGet, "/search/alice@example.com?api_key=bogus", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// Legacy search contract: logical errors keep a 200 status.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, *reached, "handler must not run for an invalid key")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid API key", body["error"])
}

func TestMiddleware_InvalidKeyStrictStatus(t *testing.T) {
	e, reached := setupEcho(t, true)

	req := httptest.NewRequest(http.MethodGet, "/search/alice@example.com?api_key=bogus", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestMiddleware_MissingKey(t *testing.T) {
	e, reached := setupEcho(t, false)

	req := httptest.NewRequest(http.MethodGet, "/search/alice@example.com", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.False(t, *reached)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid API key", body["error"])
}

func TestMiddleware_KeyForOtherIdentity(t *testing.T) {
	e, reached := setupEcho(t, false)

	// Bob's valid key must not authorize requests scoped to Alice.
	bobKey, err := DeriveAPIKey("bob@example.com", testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/search/alice@example.com?api_key="+bobKey, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.False(t, *reached)
}
