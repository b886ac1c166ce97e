package validator

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL    = errors.New("URL is required")
	ErrUnparseable = errors.New("URL could not be parsed")
	ErrScheme      = errors.New("URL must use http or https scheme")
	ErrMissingHost = errors.New("URL must have a valid host")
	ErrBlocked     = errors.New("this domain is not allowed")
	ErrPrivateHost = errors.New("URLs pointing to private addresses are not allowed")
	ErrURLTooLong  = errors.New("URL is too long")
)

const defaultMaxLength = 2048

// URLValidator validates links embedded in QR code content
type URLValidator struct {
	maxLength       int
	allowedSchemes  []string
	blockedDomains  []string
	blockPrivateIPs bool
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		maxLength:       defaultMaxLength,
		allowedSchemes:  []string{"http", "https"},
		blockedDomains:  []string{},
		blockPrivateIPs: true,
	}
}

// ValidateURL returns nil when rawURL is an acceptable absolute http(s) URL
func (v *URLValidator) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return ErrEmptyURL
	}

	if len(rawURL) > v.maxLength {
		return fmt.Errorf("%w: maximum is %d characters", ErrURLTooLong, v.maxLength)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ErrUnparseable
	}

	if !v.isAllowedScheme(parsedURL.Scheme) {
		return ErrScheme
	}

	if parsedURL.Hostname() == "" {
		return ErrMissingHost
	}

	if v.isBlockedDomain(parsedURL.Hostname()) {
		return ErrBlocked
	}

	if v.blockPrivateIPs && isPrivateHost(parsedURL.Hostname()) {
		return ErrPrivateHost
	}

	return nil
}

// ============================================================
// HELPER METHODS
// ============================================================

func (v *URLValidator) isAllowedScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func (v *URLValidator) isBlockedDomain(host string) bool {
	host = strings.ToLower(host)
	for _, blocked := range v.blockedDomains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func isPrivateHost(host string) bool {
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}

// ============================================================
// CONFIGURATION METHODS
// ============================================================

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}

// WithBlockedDomains adds domains (and their subdomains) to the block list
func (v *URLValidator) WithBlockedDomains(domains ...string) *URLValidator {
	for _, d := range domains {
		v.blockedDomains = append(v.blockedDomains, strings.ToLower(d))
	}
	return v
}

// WithAllowPrivateIPs allows private IP addresses
func (v *URLValidator) WithAllowPrivateIPs() *URLValidator {
	v.blockPrivateIPs = false
	return v
}
