package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/qrcode-service/internal/config"
	"github.com/darkodi/qrcode-service/internal/domain"
	"github.com/darkodi/qrcode-service/internal/logger"
	"github.com/darkodi/qrcode-service/internal/model"
	"github.com/darkodi/qrcode-service/internal/repository"
	"github.com/darkodi/qrcode-service/internal/service"
	"github.com/darkodi/qrcode-service/internal/shortcode"
)

func setupTestRouter(t *testing.T, rl config.RateLimitConfig) http.Handler {
	t.Helper()
	store, err := repository.New(context.Background(), &config.DatabaseConfig{
		Driver: repository.DriverSQLite,
		DSN:    ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logger.Discard()
	codes, err := shortcode.NewRandom(shortcode.DefaultLength)
	require.NoError(t, err)

	svc := service.NewQRCodeService(
		store,
		domain.NewResolver(store.Repos().Domains, "https://qr.example.net", log),
		codes,
		nil,
		service.Options{ViewBaseURL: "https://app.example.net", MaxAttempts: 3},
		log,
	)
	return NewQRCodeHandler(svc, store, log).SetupRoutes(rl)
}

func do(t *testing.T, h http.Handler, method, path, body, ownerID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if ownerID != "" {
		req.Header.Set(OwnerHeader, ownerID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code   string `json:"code"`
		Fields []struct {
			Path []string `json:"path"`
		} `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleCreate(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{})

	rec := do(t, h, http.MethodPost, "/qr-codes",
		`{"name":"menu","content":{"type":"email","data":{"email":"test@example.com"}}}`, "user-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	var qr model.QRCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))
	assert.Equal(t, "mailto:test@example.com?subject=&body=", qr.QRCodeData)
	assert.Equal(t, "menu", qr.Name)

	rec = do(t, h, http.MethodGet, "/qr-codes/"+qr.ID, "", "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/qr-codes", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.QRCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestHandleCreate_Errors(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"content":`, http.StatusBadRequest, "INVALID_JSON"},
		{"unknown type", `{"content":{"type":"sms","data":{}}}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"empty vcard", `{"content":{"type":"vCard","data":{}}}`, http.StatusBadRequest, "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/qr-codes", tt.body, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Error.Code)
		})
	}
}

func TestHandleCreate_ValidationFieldsAreFlat(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{})

	rec := do(t, h, http.MethodPost, "/qr-codes",
		`{"content":{"type":"wifi","data":{"ssid":"","encryption":"WPA3"}}}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	require.Len(t, body.Error.Fields, 2)
	assert.Equal(t, []string{"data", "ssid"}, body.Error.Fields[0].Path)
	assert.Equal(t, []string{"data", "encryption"}, body.Error.Fields[1].Path)
}

func TestHandleUpdate_Errors(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{})

	rec := do(t, h, http.MethodPost, "/qr-codes",
		`{"content":{"type":"url","data":{"url":"https://example.com","isEditable":true}}}`, "user-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	var qr model.QRCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))

	rec = do(t, h, http.MethodPut, "/qr-codes/"+qr.ID, `{"content":{"type":"text","data":"hi"}}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONTENT_TYPE_IMMUTABLE", decodeError(t, rec).Error.Code)

	self := `{"content":{"type":"url","data":{"url":"` + qr.QRCodeData + `","isEditable":true}}}`
	rec = do(t, h, http.MethodPut, "/qr-codes/"+qr.ID, self, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SELF_REFERENTIAL_REDIRECT", decodeError(t, rec).Error.Code)

	rec = do(t, h, http.MethodPut, "/qr-codes/"+qr.ID, `{"content":{"type":"url","data":{"url":"https://example.org","isEditable":true}}}`, "user-2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRedirectAndDelete(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{})

	rec := do(t, h, http.MethodPost, "/qr-codes",
		`{"content":{"type":"url","data":{"url":"https://example.com/menu","isEditable":true}}}`, "user-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	var qr model.QRCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))
	require.NotNil(t, qr.ShortURL)

	path := "/u/" + qr.ShortURL.ShortCode
	rec = do(t, h, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/menu", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodDelete, "/qr-codes/"+qr.ID, "", "user-1")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SHORT_URL_NOT_FOUND", decodeError(t, rec).Error.Code)
}

func TestHandleView(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{})

	rec := do(t, h, http.MethodPost, "/qr-codes",
		`{"content":{"type":"vCard","data":{"firstName":"Ada","lastName":"Lovelace","isDynamic":true}}}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var qr model.QRCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))
	assert.Equal(t, "https://app.example.net/qr/"+qr.ID, qr.ShortURL.DestinationURL)

	rec = do(t, h, http.MethodGet, "/qr/"+qr.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/vcard; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "N:Lovelace;Ada")

	rec = do(t, h, http.MethodGet, "/qr/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{})

	rec := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHandleList_RequiresOwner(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{})

	rec := do(t, h, http.MethodGet, "/qr-codes", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := setupTestRouter(t, config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute})

	for range 2 {
		rec := do(t, h, http.MethodGet, "/qr-codes", "", "user-1")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/qr-codes", "", "user-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Error.Code)

	// routes outside /qr-codes are not limited
	rec = do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
