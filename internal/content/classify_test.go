package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresShortURL(t *testing.T) {
	amount := 10.0
	tests := []struct {
		name    string
		content Content
		want    bool
	}{
		{"text", Content{Type: TypeText, Data: Text{Value: "hi"}}, false},
		{"static url", Content{Type: TypeURL, Data: URL{URL: "https://a.io"}}, false},
		{"editable url", Content{Type: TypeURL, Data: URL{URL: "https://a.io", IsEditable: true}}, true},
		{"wifi", Content{Type: TypeWiFi, Data: WiFi{SSID: "x", Encryption: EncryptionNoPass}}, false},
		{"static vcard", Content{Type: TypeVCard, Data: VCard{FirstName: "Ada"}}, false},
		{"dynamic vcard", Content{Type: TypeVCard, Data: VCard{FirstName: "Ada", IsDynamic: true}}, true},
		{"email", Content{Type: TypeEmail, Data: Email{Email: "a@b.io"}}, false},
		{"location", Content{Type: TypeLocation, Data: Location{Address: "x"}}, false},
		{"event", Content{Type: TypeEvent, Data: Event{Title: "t"}}, true},
		{"epc", Content{Type: TypeEPC, Data: EPC{Name: "n", IBAN: "DE89370400440532013000", Amount: &amount}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresShortURL(tt.content))
		})
	}
}
