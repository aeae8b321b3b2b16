package pricing

import "strings"

// FormatIDR renders m as whole rupiah with dot thousands separators, e.g.
// "Rp 1.234.567". Rounding happens here and nowhere earlier.
func FormatIDR(m Money) string {
	rounded := m.Round(0)
	negative := rounded.IsNegative()
	digits := rounded.Abs().StringFixed(0)

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString("Rp ")
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
