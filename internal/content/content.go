package content

import (
	"encoding/json"
	"fmt"
)

// Type is the discriminator of a QR code content payload
type Type string

const (
	TypeText     Type = "text"
	TypeURL      Type = "url"
	TypeWiFi     Type = "wifi"
	TypeVCard    Type = "vCard"
	TypeEmail    Type = "email"
	TypeLocation Type = "location"
	TypeEvent    Type = "event"
	TypeEPC      Type = "epc"
)

// Types lists every supported content type
var Types = []Type{
	TypeText, TypeURL, TypeWiFi, TypeVCard, TypeEmail, TypeLocation, TypeEvent, TypeEPC,
}

// Valid reports whether t is a known content type
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Data is implemented by the eight content variants only.
type Data interface {
	contentType() Type
}

// Content is validated QR code content: a type tag plus the matching variant.
type Content struct {
	Type Type
	Data Data
}

// Text is free-form text encoded verbatim
type Text struct {
	Value string
}

// URL is a link, optionally editable through a short URL
type URL struct {
	URL        string `json:"url"`
	IsEditable bool   `json:"isEditable"`
}

// Encryption is the WIFI authentication type
type Encryption string

const (
	EncryptionWPA    Encryption = "WPA"
	EncryptionWEP    Encryption = "WEP"
	EncryptionNoPass Encryption = "nopass"
)

// WiFi is a network join configuration
type WiFi struct {
	SSID       string     `json:"ssid"`
	Password   string     `json:"password"`
	Encryption Encryption `json:"encryption"`
}

// VCard is a contact card
type VCard struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Job       string `json:"job,omitempty"`
	Website   string `json:"website,omitempty"`
	Street    string `json:"street,omitempty"`
	City      string `json:"city,omitempty"`
	Zip       string `json:"zip,omitempty"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`
	IsDynamic bool   `json:"isDynamic,omitempty"`
}

// Email is a mailto link with optional subject and body
type Email struct {
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// Location is an address with optional coordinates
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address"`
}

// HasCoordinates reports whether both latitude and longitude are set
func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Event is a calendar event. Dates are ISO-8601 strings kept as submitted.
type Event struct {
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	URL         string `json:"url,omitempty"`
}

// EPC is a SEPA credit transfer (EPC069-12)
type EPC struct {
	Name    string   `json:"name"`
	IBAN    string   `json:"iban"`
	BIC     string   `json:"bic,omitempty"`
	Amount  *float64 `json:"amount,omitempty"`
	Purpose string   `json:"purpose,omitempty"`
}

func (Text) contentType() Type     { return TypeText }
func (URL) contentType() Type      { return TypeURL }
func (WiFi) contentType() Type     { return TypeWiFi }
func (VCard) contentType() Type    { return TypeVCard }
func (Email) contentType() Type    { return TypeEmail }
func (Location) contentType() Type { return TypeLocation }
func (Event) contentType() Type    { return TypeEvent }
func (EPC) contentType() Type      { return TypeEPC }

// MarshalJSON renders text content as a bare JSON string
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Value)
}

// UnmarshalJSON accepts a bare JSON string
func (t *Text) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &t.Value)
}

type envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON renders {"type": ..., "data": ...}
func (c Content) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(c.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: c.Type, Data: data})
}

// UnmarshalJSON decodes stored content without validating it. Use Parse for
// untrusted input.
func (c *Content) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	data, err := newData(env.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return fmt.Errorf("decode %s content: %w", env.Type, err)
	}
	c.Type = env.Type
	c.Data = deref(data)
	return nil
}

func newData(t Type) (any, error) {
	switch t {
	case TypeText:
		return &Text{}, nil
	case TypeURL:
		return &URL{}, nil
	case TypeWiFi:
		return &WiFi{}, nil
	case TypeVCard:
		return &VCard{}, nil
	case TypeEmail:
		return &Email{}, nil
	case TypeLocation:
		return &Location{}, nil
	case TypeEvent:
		return &Event{}, nil
	case TypeEPC:
		return &EPC{}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", t)
	}
}

func deref(v any) Data {
	switch d := v.(type) {
	case *Text:
		return *d
	case *URL:
		return *d
	case *WiFi:
		return *d
	case *VCard:
		return *d
	case *Email:
		return *d
	case *Location:
		return *d
	case *Event:
		return *d
	case *EPC:
		return *d
	}
	return nil
}
