package content

import (
	"regexp"
	"strings"
	"unicode"
)

const minIBANLength = 15

var (
	ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{1,30}$`)
	bicPattern  = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
)

// NormalizeIBAN strips all whitespace and uppercases the result
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(stripSpace(iban))
}

// ValidIBAN checks the structure of a normalized IBAN: country code, check
// digits, then up to 30 alphanumerics, at least 15 characters in total.
func ValidIBAN(iban string) bool {
	return len(iban) >= minIBANLength && ibanPattern.MatchString(iban)
}

// NormalizeBIC strips whitespace and uppercases the result
func NormalizeBIC(bic string) string {
	return strings.ToUpper(stripSpace(bic))
}

// ValidBIC checks the 8 or 11 character BIC structure
func ValidBIC(bic string) bool {
	return bicPattern.MatchString(bic)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
