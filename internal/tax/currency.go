package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an invoice does not name one.
const DefaultCurrency = "INR"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"CAD": "C$",
	"AUD": "A$",
}

// SupportedCurrency reports whether code is one of the invoice currencies.
func SupportedCurrency(code string) bool {
	_, ok := currencySymbols[strings.ToUpper(code)]
	return ok
}

// CurrencySymbol returns the display symbol for code, or the code itself
// when it is unknown.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(code)
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code
}

// FormatAmount renders amount with two decimals and digit grouping,
// prefixed with the currency symbol.
func FormatAmount(amount decimal.Decimal, code string) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + CurrencySymbol(code) + group(whole) + "." + frac
}

// FormatPlain renders amount with two decimals and no symbol, as used in
// UPI payment links and documents drawn with core PDF fonts.
func FormatPlain(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
