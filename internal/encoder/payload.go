// Package encoder turns validated QR code content into the literal string
// embedded in the QR symbol. Every function here is pure and total over
// content that passed content.Parse.
package encoder

import (
	"strconv"
	"strings"

	"github.com/darkodi/qrcode-service/internal/content"
)

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// Encode returns the QR payload for c. redirectURL is the short link bound to
// the QR code ({baseURL}/u/{shortCode}); it is used verbatim for dynamic
// content and ignored otherwise.
func Encode(c content.Content, redirectURL string) string {
	if content.RequiresShortURL(c) {
		return redirectURL
	}

	switch d := c.Data.(type) {
	case content.Text:
		return d.Value
	case content.URL:
		return d.URL
	case content.WiFi:
		return WiFi(d)
	case content.VCard:
		return VCard(d)
	case content.Email:
		return Email(d)
	case content.Location:
		return Location(d)
	case content.EPC:
		return EPC(d)
	case content.Event:
		// events are always dynamic
		return redirectURL
	}
	return ""
}

// RedirectURL builds the short link served by the redirect endpoint
func RedirectURL(baseURL, shortCode string) string {
	return strings.TrimRight(baseURL, "/") + "/u/" + shortCode
}

// WiFi renders WIFI:T:{enc};S:{ssid};P:{password};; with an empty password
// for open networks.
func WiFi(d content.WiFi) string {
	password := d.Password
	if d.Encryption == content.EncryptionNoPass {
		password = ""
	}
	return "WIFI:T:" + string(d.Encryption) + ";S:" + d.SSID + ";P:" + password + ";;"
}

// Email renders a mailto URI. subject and body are always present.
func Email(d content.Email) string {
	return "mailto:" + d.Email +
		"?subject=" + URIComponent(d.Subject) +
		"&body=" + URIComponent(d.Body)
}

// Location renders a geo URI when both coordinates are known, a maps search
// link otherwise.
func Location(d content.Location) string {
	if d.HasCoordinates() {
		return "geo:" + formatCoordinate(*d.Latitude) + "," + formatCoordinate(*d.Longitude) +
			"?q=" + URIComponent(d.Address)
	}
	return mapsSearchURL + URIComponent(d.Address)
}

func formatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
