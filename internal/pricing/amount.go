package pricing

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is the computation type for rupiah amounts. Values stay exact until
// they are formatted.
type Money = decimal.Decimal

// Amount is a rupiah value as it crosses the JSON boundary. It accepts numbers
// and numeric strings; anything else decodes to zero instead of failing.
type Amount decimal.Decimal

// Accepted magnitudes: below 10^15 rupiah, kept to at most six decimals.
const (
	maxAmountDigits = 15
	maxAmountScale  = 6
)

// NewAmount builds an Amount from whole rupiah.
func NewAmount(v int64) Amount {
	return Amount(decimal.NewFromInt(v))
}

// AmountOf converts a computed Money into an Amount.
func AmountOf(m Money) Amount {
	return Amount(m)
}

// ParseAmount coerces free text into an Amount. Non-numeric input yields zero.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}
	}
	return Amount(bounded(d))
}

// bounded zeroes values outside the accepted magnitude and truncates extra
// decimals. It only inspects the coefficient and exponent, so inputs such as
// 1e20000000 never get expanded.
func bounded(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	exp := int64(d.Exponent())
	magnitude := int64(d.NumDigits()) + exp
	if magnitude > maxAmountDigits || magnitude <= -maxAmountScale {
		return decimal.Zero
	}
	if exp < -maxAmountScale {
		return d.Truncate(maxAmountScale)
	}
	return d
}

// Money returns the amount as a computation value.
func (a Amount) Money() Money {
	return decimal.Decimal(a)
}

// NonNegative returns the amount, or zero when it is negative.
func (a Amount) NonNegative() Money {
	d := decimal.Decimal(a)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// IsZero reports whether the amount equals zero.
func (a Amount) IsZero() bool {
	return decimal.Decimal(a).IsZero()
}

// Equal compares two amounts by value.
func (a Amount) Equal(b Amount) bool {
	return decimal.Decimal(a).Equal(decimal.Decimal(b))
}

func (a Amount) String() string {
	return decimal.Decimal(a).String()
}

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).String()), nil
}

// UnmarshalJSON never fails: malformed values become zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Amount{}
		return nil
	}
	*a = ParseAmount(strings.Trim(string(trimmed), `"`))
	return nil
}
