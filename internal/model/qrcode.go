package model

import (
	"encoding/json"
	"time"

	"github.com/darkodi/qrcode-service/internal/content"
)

// QRCode is a stored QR code. QRCodeData is derived from Content and the
// bound short URL and is rewritten together with them.
type QRCode struct {
	ID         string          `json:"id"`
	OwnerID    *string         `json:"owner_id"` // nil for anonymous codes
	Name       string          `json:"name,omitempty"`
	Content    content.Content `json:"content"`
	Config     json.RawMessage `json:"config,omitempty"` // rendering options, opaque here
	ShortURLID *string         `json:"short_url_id,omitempty"`
	ShortURL   *ShortURL       `json:"short_url,omitempty"`
	QRCodeData string          `json:"qr_code_data"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// IsDynamic reports whether the code is currently bound to a short URL
func (q *QRCode) IsDynamic() bool {
	return q.ShortURLID != nil
}

// ShortURL is a redirect target: /u/{ShortCode} -> DestinationURL
type ShortURL struct {
	ID             string    `json:"id"`
	ShortCode      string    `json:"short_code"`
	DestinationURL string    `json:"destination_url"`
	IsActive       bool      `json:"is_active"`
	OwnerID        *string   `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SSLStatus tracks certificate provisioning of a custom domain
type SSLStatus string

const (
	SSLInitializing      SSLStatus = "initializing"
	SSLPendingValidation SSLStatus = "pending_validation"
	SSLActive            SSLStatus = "active"
)

// CustomDomain is a user-owned hostname usable for redirect links
type CustomDomain struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Domain    string    `json:"domain"`
	SSLStatus SSLStatus `json:"ssl_status"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================
// API TYPES
// ============================================================

// ContentRequest is the raw, not yet validated content of a request
type ContentRequest struct {
	Type content.Type    `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CreateQRCodeRequest is the API request body for creating a QR code
type CreateQRCodeRequest struct {
	Name    string          `json:"name,omitempty"`
	Content ContentRequest  `json:"content"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// UpdateQRCodeRequest is the API request body for updating a QR code
type UpdateQRCodeRequest struct {
	Name    *string         `json:"name,omitempty"`
	Content ContentRequest  `json:"content"`
	Config  json.RawMessage `json:"config,omitempty"`
}
