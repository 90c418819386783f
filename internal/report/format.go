package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Number renders d with two decimals and comma thousands separators, e.g. "50,000.00".
func Number(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Signed is Number with an explicit sign. Negative values that round to zero keep
// their "-", so "-0.00" still reads as a move down.
func Signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + Number(d.Neg())
	}
	return "+" + Number(d)
}
