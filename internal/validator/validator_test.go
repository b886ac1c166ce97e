package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	v := NewURLValidator().WithBlockedDomains("Evil.com")

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"valid https", "https://example.com/path?q=1", nil},
		{"valid http with port", "http://example.com:8080", nil},
		{"empty", "   ", ErrEmptyURL},
		{"no scheme", "example.com", ErrScheme},
		{"ftp scheme", "ftp://example.com", ErrScheme},
		{"javascript", "javascript:alert(1)", ErrScheme},
		{"no host", "https://", ErrMissingHost},
		{"blocked domain", "https://evil.com", ErrBlocked},
		{"blocked subdomain", "https://www.evil.com", ErrBlocked},
		{"loopback", "http://127.0.0.1/admin", ErrPrivateHost},
		{"private range", "http://10.0.0.5", ErrPrivateHost},
		{"localhost", "http://localhost:3000", ErrPrivateHost},
		{"too long", "https://example.com/" + strings.Repeat("a", defaultMaxLength), ErrURLTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateURL(tt.url)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateURL_AllowPrivateIPs(t *testing.T) {
	v := NewURLValidator().WithAllowPrivateIPs().WithMaxLength(30)

	assert.NoError(t, v.ValidateURL("http://192.168.1.10"))
	assert.ErrorIs(t, v.ValidateURL("https://example.com/"+strings.Repeat("a", 20)), ErrURLTooLong)
}
