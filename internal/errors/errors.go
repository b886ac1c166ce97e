package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/darkodi/qrcode-service/internal/content"
)

// AppError represents an application error with HTTP context
type AppError struct {
	Code       string               `json:"code"`
	Message    string               `json:"message"`
	Details    string               `json:"details,omitempty"`
	Fields     []content.FieldError `json:"fields,omitempty"`
	StatusCode int                  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// ErrorResponse is the JSON response format for errors
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// WriteJSON writes the error as JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Validation Errors (400)
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidJSON(details string) *AppError {
	return &AppError{
		Code:       "INVALID_JSON",
		Message:    "Invalid JSON in request body",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func ValidationFailed(fields []content.FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "One or more fields are invalid",
		Fields:     fields,
		StatusCode: http.StatusBadRequest,
	}
}

func ContentTypeImmutable(current, requested content.Type) *AppError {
	return &AppError{
		Code:       "CONTENT_TYPE_IMMUTABLE",
		Message:    "The content type of a QR code cannot be changed",
		Details:    fmt.Sprintf("current type is '%s', got '%s'", current, requested),
		StatusCode: http.StatusBadRequest,
	}
}

func SelfReferentialRedirect() *AppError {
	return &AppError{
		Code:       "SELF_REFERENTIAL_REDIRECT",
		Message:    "A dynamic QR code cannot redirect to its own short link",
		StatusCode: http.StatusBadRequest,
	}
}

// Not Found Errors (404)
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func ShortURLNotFound(code string) *AppError {
	return &AppError{
		Code:       "SHORT_URL_NOT_FOUND",
		Message:    fmt.Sprintf("Short URL '%s' not found", code),
		StatusCode: http.StatusNotFound,
	}
}

func MethodNotAllowed(method string) *AppError {
	return &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    fmt.Sprintf("Method %s is not allowed on this route", method),
		StatusCode: http.StatusMethodNotAllowed,
	}
}

// Rate Limit Errors (429)
func RateLimited() *AppError {
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests, slow down",
		StatusCode: http.StatusTooManyRequests,
	}
}

// Server Errors (500)
func BindingFailure() *AppError {
	return &AppError{
		Code:       "BINDING_FAILURE",
		Message:    "Could not allocate a short URL, please retry",
		StatusCode: http.StatusInternalServerError,
	}
}

func Internal(details string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An internal server error occurred",
		Details:    details,
		StatusCode: http.StatusInternalServerError,
	}
}
