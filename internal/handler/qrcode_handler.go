package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/darkodi/qrcode-service/internal/config"
	"github.com/darkodi/qrcode-service/internal/content"
	"github.com/darkodi/qrcode-service/internal/encoder"
	apperrors "github.com/darkodi/qrcode-service/internal/errors"
	"github.com/darkodi/qrcode-service/internal/logger"
	"github.com/darkodi/qrcode-service/internal/middleware"
	"github.com/darkodi/qrcode-service/internal/model"
	"github.com/darkodi/qrcode-service/internal/service"
)

// OwnerHeader carries the authenticated owner id, set by the gateway in
// front of this service. Requests without it act on anonymous QR codes.
const OwnerHeader = "X-Owner-ID"

const maxBodyBytes = 1 << 20

// QRCodeService is the part of the lifecycle service the handler needs
type QRCodeService interface {
	Create(ctx context.Context, ownerID *string, req model.CreateQRCodeRequest) (*model.QRCode, error)
	Update(ctx context.Context, ownerID *string, id string, req model.UpdateQRCodeRequest) (*model.QRCode, error)
	Delete(ctx context.Context, ownerID *string, id string) error
	Get(ctx context.Context, ownerID *string, id string) (*model.QRCode, error)
	View(ctx context.Context, id string) (*model.QRCode, error)
	List(ctx context.Context, ownerID string) ([]*model.QRCode, error)
	ResolveShortCode(ctx context.Context, code string) (string, error)
}

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// QRCodeHandler handles HTTP requests for QR code operations
type QRCodeHandler struct {
	service QRCodeService
	health  Pinger
	log     *logger.Logger
}

// NewQRCodeHandler creates a new handler instance
func NewQRCodeHandler(svc QRCodeService, health Pinger, log *logger.Logger) *QRCodeHandler {
	return &QRCodeHandler{service: svc, health: health, log: log}
}

// ============ HANDLERS ============

// HandleCreate creates a QR code
// POST /qr-codes
func (h *QRCodeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.CreateQRCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	qr, err := h.service.Create(r.Context(), owner(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, qr)
}

// HandleList lists the caller's QR codes
// GET /qr-codes
func (h *QRCodeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	if ownerID == nil {
		apperrors.BadRequest(OwnerHeader + " header is required").WriteJSON(w)
		return
	}

	codes, err := h.service.List(r.Context(), *ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

// HandleGet returns one QR code
// GET /qr-codes/{id}
func (h *QRCodeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	qr, err := h.service.Get(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qr)
}

// HandleUpdate replaces the content of a QR code
// PUT /qr-codes/{id}
func (h *QRCodeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateQRCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	qr, err := h.service.Update(r.Context(), owner(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qr)
}

// HandleDelete removes a QR code and its short URL
// DELETE /qr-codes/{id}
func (h *QRCodeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), owner(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRedirect sends the client to the short URL's destination. 302 keeps
// clients from caching a destination that may still change.
// GET /u/{code}
func (h *QRCodeHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	dest, err := h.service.ResolveShortCode(r.Context(), code)
	if errors.Is(err, service.ErrShortURLNotFound) {
		apperrors.ShortURLNotFound(code).WriteJSON(w)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, dest, http.StatusFound)
}

// HandleView is the platform page that dynamic event and vCard codes
// redirect to.
// GET /qr/{id}
func (h *QRCodeHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	qr, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	switch d := qr.Content.Data.(type) {
	case content.VCard:
		w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="contact.vcf"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(encoder.VCard(d)))
	case content.Event:
		writeJSON(w, http.StatusOK, map[string]any{
			"id":    qr.ID,
			"name":  qr.Name,
			"event": d,
		})
	default:
		apperrors.NotFound("QR code view").WriteJSON(w)
	}
}

// HandleHealth returns service health status
// GET /health
func (h *QRCodeHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.log.Error("health check failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *QRCodeHandler) SetupRoutes(rl config.RateLimitConfig) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", h.HandleHealth)
	r.Get("/u/{code}", h.HandleRedirect)
	r.Get("/qr/{id}", h.HandleView)

	r.Route("/qr-codes", func(r chi.Router) {
		if rl.Enabled {
			r.Use(httprate.Limit(
				rl.Requests,
				rl.Window,
				httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				httprate.WithLimitHandler(h.handleRateLimited),
			))
		}
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperrors.NotFound("Route").WriteJSON(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperrors.MethodNotAllowed(r.Method).WriteJSON(w)
	})

	return r
}

// ============ HELPERS ============

func (h *QRCodeHandler) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	h.log.Warn("rate limit exceeded",
		"request_id", middleware.GetRequestID(r.Context()),
		"path", r.URL.Path,
	)
	apperrors.RateLimited().WriteJSON(w)
}

// writeError maps service errors to API errors
func (h *QRCodeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if fields := content.FieldErrors(err); fields != nil {
		apperrors.ValidationFailed(fields).WriteJSON(w)
		return
	}

	var mismatch *service.ContentTypeMismatchError
	switch {
	case errors.As(err, &mismatch):
		apperrors.ContentTypeImmutable(mismatch.Current, mismatch.Requested).WriteJSON(w)
	case errors.Is(err, service.ErrSelfReferentialRedirect):
		apperrors.SelfReferentialRedirect().WriteJSON(w)
	case errors.Is(err, service.ErrQRCodeNotFound):
		apperrors.NotFound("QR code").WriteJSON(w)
	case errors.Is(err, service.ErrBindingFailure):
		h.log.Error("short url binding failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		apperrors.BindingFailure().WriteJSON(w)
	default:
		h.log.Error("request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		apperrors.Internal("").WriteJSON(w)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apperrors.InvalidJSON(err.Error()).WriteJSON(w)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func owner(r *http.Request) *string {
	id := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if id == "" {
		return nil
	}
	return &id
}
