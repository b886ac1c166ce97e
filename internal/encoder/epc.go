package encoder

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/darkodi/qrcode-service/internal/content"
)

// EPC069-12 header fields
const (
	epcServiceTag     = "BCD"
	epcVersion        = "002"
	epcCharacterSet   = "1" // UTF-8
	epcIdentification = "SCT"
)

// EPC renders a SEPA credit transfer payload, one field per line in the fixed
// EPC069-12 order. Absent optional fields keep their (empty) line.
func EPC(d content.EPC) string {
	amount := ""
	if d.Amount != nil {
		amount = "EUR" + formatAmount(*d.Amount)
	}

	return strings.Join([]string{
		epcServiceTag,
		epcVersion,
		epcCharacterSet,
		epcIdentification,
		d.BIC,
		d.Name,
		content.NormalizeIBAN(d.IBAN),
		amount,
		"", // purpose code
		"", // structured remittance
		d.Purpose,
	}, "\n")
}

// formatAmount prints v with two decimals, rounding the exact binary value
// half away from zero. strconv rounds ties to even, so 1.125 would become 1.12.
func formatAmount(v float64) string {
	r := new(big.Rat).SetFloat64(v)
	if r == nil {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}

	neg := r.Sign() < 0
	r.Abs(r)
	r.Mul(r, big.NewRat(100, 1))
	r.Add(r, big.NewRat(1, 2))

	cents := new(big.Int).Quo(r.Num(), r.Denom())
	whole, frac := new(big.Int).QuoRem(cents, big.NewInt(100), new(big.Int))

	sign := ""
	if neg && cents.Sign() != 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%02d", sign, whole.String(), frac.Int64())
}
