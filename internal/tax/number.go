package tax

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Number decodes a JSON number or numeric string. Anything that does not
// parse as a finite, non-negative number decodes to zero instead of failing.
type Number struct {
	decimal.Decimal
}

// NewNumber wraps d.
func NewNumber(d decimal.Decimal) Number {
	return Number{Decimal: d}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	n.Decimal = ParseAmount(string(bytes.Trim(b, `"`)))
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// Quantity truncates the number to a non-negative whole count.
func (n Number) Quantity() int64 {
	return CoerceQuantity(n.Decimal)
}

// ParseAmount parses s as a non-negative amount, returning zero for
// empty, malformed, negative or non-finite input.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return nonNegative(d)
}

// AmountFromFloat converts f, mapping NaN, infinities and negatives to zero.
func AmountFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// CoerceQuantity truncates d towards zero. Negative input and input that
// does not fit an int64 coerce to zero.
func CoerceQuantity(d decimal.Decimal) int64 {
	q := d.Truncate(0)
	if q.IsNegative() || q.GreaterThan(maxQuantity) {
		return 0
	}
	return q.IntPart()
}
