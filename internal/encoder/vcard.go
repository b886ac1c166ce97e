package encoder

import (
	"strings"

	"github.com/darkodi/qrcode-service/internal/content"
)

// VCard renders a VCF 3.0 card. N is always written; every other line only
// when its field is set.
func VCard(d content.VCard) string {
	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"N:" + d.LastName + ";" + d.FirstName,
	}

	add := func(prefix, value string) {
		if value != "" {
			lines = append(lines, prefix+value)
		}
	}

	add("EMAIL:", d.Email)
	add("TEL:", d.Phone)
	add("ORG:", d.Company)
	add("TITLE:", d.Job)
	if d.Street != "" || d.City != "" || d.State != "" || d.Zip != "" || d.Country != "" {
		lines = append(lines, "ADR:;;"+strings.Join([]string{d.Street, d.City, d.State, d.Zip, d.Country}, ";"))
	}
	add("URL:", d.Website)

	lines = append(lines, "END:VCARD")
	return strings.Join(lines, "\n")
}
