package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/darkodi/qrcode-service/internal/validator"
)

// Field limits. String bounds count characters and are inclusive.
const (
	MaxTextLength        = 2000
	MaxURLLength         = 1000
	MaxSSIDLength        = 32
	MaxWiFiPassword      = 64
	MaxVCardField        = 200
	MaxEmailLength       = 100
	MaxSubjectLength     = 250
	MaxBodyLength        = 1000
	MaxAddressLength     = 200
	MaxTitleLength       = 200
	MaxEventLocation     = 200
	MaxDescriptionLength = 500
	MaxBeneficiaryName   = 70
	MaxPurposeLength     = 140
	MinAmount            = 0.01
	MaxAmount            = 999999999.99
)

var (
	// static links may point at any http(s) host the scanner can reach;
	// other schemes have dedicated content types (email, location)
	linkValidator = validator.NewURLValidator().WithMaxLength(MaxURLLength).WithAllowPrivateIPs()
	// editable links are served through our own redirect
	redirectValidator = validator.NewURLValidator().WithMaxLength(MaxURLLength)

	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)

	eventDateLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
)

// Parse decodes raw JSON data for type t and validates it. On failure the
// returned error is a *ValidationError listing every offending field.
func Parse(t Type, raw json.RawMessage) (Content, error) {
	if !t.Valid() {
		return Content{}, &ValidationError{Fields: []FieldError{{
			Path:    []string{"type"},
			Message: fmt.Sprintf("unsupported content type %q", t),
		}}}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Content{}, &ValidationError{Fields: []FieldError{{
			Path:    []string{"data"},
			Message: "data is required",
		}}}
	}

	v := &checker{}
	data, _ := newData(t)
	if err := json.Unmarshal(raw, data); err != nil {
		v.decodeError(err)
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			return Content{}, v.result()
		}
	}

	c := Content{Type: t, Data: deref(data)}
	c.Data = v.validate(c.Data)
	if err := v.result(); err != nil {
		return Content{}, err
	}
	return c, nil
}

// Validate runs field validation over already decoded content and returns
// the normalized copy.
func Validate(c Content) (Content, error) {
	if !c.Type.Valid() || c.Data == nil || c.Data.contentType() != c.Type {
		return Content{}, &ValidationError{Fields: []FieldError{{
			Path:    []string{"type"},
			Message: "content type does not match data",
		}}}
	}
	v := &checker{}
	c.Data = v.validate(c.Data)
	if err := v.result(); err != nil {
		return Content{}, err
	}
	return c, nil
}

type checker struct {
	fields []FieldError
}

// add records a failure unless the same path already failed; the first
// message for a field wins.
func (v *checker) add(message string, path ...string) {
	full := append([]string{"data"}, path...)
	key := strings.Join(full, ".")
	for _, f := range v.fields {
		if strings.Join(f.Path, ".") == key {
			return
		}
	}
	v.fields = append(v.fields, FieldError{Path: full, Message: message})
}

func (v *checker) result() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func (v *checker) decodeError(err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		var path []string
		if typeErr.Field != "" {
			path = strings.Split(typeErr.Field, ".")
		}
		v.add(fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value), path...)
		return
	}
	v.add("data is not valid JSON")
}

// length checks an inclusive character range. min 0 means optional.
func (v *checker) length(value string, min, max int, path ...string) {
	n := utf8.RuneCountInString(value)
	switch {
	case min > 0 && n == 0:
		v.add("is required", path...)
	case n < min:
		v.add(fmt.Sprintf("must be at least %d characters", min), path...)
	case n > max:
		v.add(fmt.Sprintf("must be at most %d characters", max), path...)
	}
}

func (v *checker) url(u *validator.URLValidator, value string, path ...string) {
	if err := u.ValidateURL(value); err != nil {
		v.add(err.Error(), path...)
	}
}

func (v *checker) numberRange(value, min, max float64, path ...string) {
	if math.IsNaN(value) || value < min || value > max {
		v.add(fmt.Sprintf("must be between %s and %s", formatBound(min), formatBound(max)), path...)
	}
}

func (v *checker) validate(d Data) Data {
	switch d := d.(type) {
	case Text:
		v.length(d.Value, 1, MaxTextLength)
		return d
	case URL:
		v.length(d.URL, 1, MaxURLLength, "url")
		if d.URL != "" {
			if d.IsEditable {
				v.url(redirectValidator, d.URL, "url")
			} else {
				v.url(linkValidator, d.URL, "url")
			}
		}
		return d
	case WiFi:
		return v.wifi(d)
	case VCard:
		return v.vcard(d)
	case Email:
		v.length(d.Email, 1, MaxEmailLength, "email")
		if d.Email != "" && !isEmail(d.Email) {
			v.add("must be a valid email address", "email")
		}
		v.length(d.Subject, 0, MaxSubjectLength, "subject")
		v.length(d.Body, 0, MaxBodyLength, "body")
		return d
	case Location:
		if d.Latitude != nil {
			v.numberRange(*d.Latitude, -90, 90, "latitude")
		}
		if d.Longitude != nil {
			v.numberRange(*d.Longitude, -180, 180, "longitude")
		}
		v.length(d.Address, 1, MaxAddressLength, "address")
		return d
	case Event:
		return v.event(d)
	case EPC:
		return v.epc(d)
	}
	return d
}

func (v *checker) wifi(d WiFi) WiFi {
	v.length(d.SSID, 1, MaxSSIDLength, "ssid")
	v.length(d.Password, 0, MaxWiFiPassword, "password")
	switch d.Encryption {
	case EncryptionWPA, EncryptionWEP, EncryptionNoPass:
	default:
		v.add("must be one of WPA, WEP, nopass", "encryption")
	}
	return d
}

func (v *checker) vcard(d VCard) VCard {
	fields := map[string]string{
		"firstName": d.FirstName,
		"lastName":  d.LastName,
		"email":     d.Email,
		"phone":     d.Phone,
		"company":   d.Company,
		"job":       d.Job,
		"website":   d.Website,
		"street":    d.Street,
		"city":      d.City,
		"zip":       d.Zip,
		"state":     d.State,
		"country":   d.Country,
	}

	present := false
	for _, name := range vcardFieldOrder {
		value := fields[name]
		if strings.TrimSpace(value) == "" {
			continue
		}
		present = true
		v.length(value, 0, MaxVCardField, name)
	}
	if !present {
		v.add("at least one contact field is required")
		return d
	}

	if d.Email != "" && !isEmail(d.Email) {
		v.add("must be a valid email address", "email")
	}
	if d.Website != "" {
		v.url(linkValidator, d.Website, "website")
	}
	return d
}

var vcardFieldOrder = []string{
	"firstName", "lastName", "email", "phone", "company", "job",
	"website", "street", "city", "zip", "state", "country",
}

func (v *checker) event(d Event) Event {
	v.length(d.Title, 1, MaxTitleLength, "title")
	v.length(d.Location, 0, MaxEventLocation, "location")
	v.length(d.Description, 0, MaxDescriptionLength, "description")

	start, startOK := v.eventDate(d.StartDate, "startDate")
	end, endOK := v.eventDate(d.EndDate, "endDate")
	if startOK && endOK && !end.After(start) {
		v.add("must be after start date", "endDate")
	}

	if d.URL != "" {
		v.url(linkValidator, d.URL, "url")
	}
	return d
}

func (v *checker) eventDate(value string, field string) (time.Time, bool) {
	if value == "" {
		v.add("is required", field)
		return time.Time{}, false
	}
	t, err := ParseEventDate(value)
	if err != nil {
		v.add("must be an ISO-8601 timestamp", field)
		return time.Time{}, false
	}
	return t, true
}

// ParseEventDate accepts the ISO-8601 forms produced by browsers and APIs.
// Timestamps without an offset are read as UTC.
func ParseEventDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range eventDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (v *checker) epc(d EPC) EPC {
	v.length(d.Name, 1, MaxBeneficiaryName, "name")

	d.IBAN = NormalizeIBAN(d.IBAN)
	if d.IBAN == "" {
		v.add("is required", "iban")
	} else if !ValidIBAN(d.IBAN) {
		v.add("must be a valid IBAN", "iban")
	}

	d.BIC = NormalizeBIC(d.BIC)
	if d.BIC != "" && !ValidBIC(d.BIC) {
		v.add("must be a valid BIC", "bic")
	}

	if d.Amount != nil {
		v.numberRange(*d.Amount, MinAmount, MaxAmount, "amount")
	}
	v.length(d.Purpose, 0, MaxPurposeLength, "purpose")
	return d
}

func isEmail(value string) bool {
	if !emailPattern.MatchString(value) {
		return false
	}
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

func formatBound(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
