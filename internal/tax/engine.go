package tax

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// GSTType selects which tax fields apply to every item of an invoice.
type GSTType string

const (
	// GSTTypeIGST is the inter-state regime: a single integrated rate.
	GSTTypeIGST GSTType = "igst"
	// GSTTypeCGSTSGST is the intra-state regime: central and state halves.
	GSTTypeCGSTSGST GSTType = "cgst_sgst"
)

// Valid reports whether t is a known regime.
func (t GSTType) Valid() bool {
	return t == GSTTypeIGST || t == GSTTypeCGSTSGST
}

var hundred = decimal.NewFromInt(100)

// Default rates applied to new line items.
var (
	DefaultCGSTRate = decimal.NewFromInt(9)
	DefaultSGSTRate = decimal.NewFromInt(9)
	DefaultIGSTRate = decimal.NewFromInt(18)
)

// Rates holds percentage rates for one line item.
type Rates struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

// DefaultRates returns the standard 9/9/18 split.
func DefaultRates() Rates {
	return Rates{CGST: DefaultCGSTRate, SGST: DefaultSGSTRate, IGST: DefaultIGSTRate}
}

// ItemAmounts is the computed breakdown of one line item.
//
// Total is tax-exclusive and is the value persisted on the item.
// LineTotal is the tax-inclusive value shown on previews and documents.
type ItemAmounts struct {
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	CGSTAmount    decimal.Decimal `json:"cgst_amount"`
	SGSTAmount    decimal.Decimal `json:"sgst_amount"`
	IGSTAmount    decimal.Decimal `json:"igst_amount"`
	Total         decimal.Decimal `json:"total"`
}

// Tax is the sum of the item's tax components.
func (a ItemAmounts) Tax() decimal.Decimal {
	return a.CGSTAmount.Add(a.SGSTAmount).Add(a.IGSTAmount)
}

// LineTotal is the tax-inclusive amount for display.
func (a ItemAmounts) LineTotal() decimal.Decimal {
	return a.TaxableAmount.Add(a.Tax())
}

// ComputeItem computes the taxable amount and tax breakdown of a line item.
// Negative quantities, prices and rates are treated as zero; it never fails.
func ComputeItem(quantity int64, unitPrice decimal.Decimal, gstType GSTType, rates Rates) ItemAmounts {
	if quantity < 0 {
		quantity = 0
	}
	taxable := decimal.NewFromInt(quantity).Mul(nonNegative(unitPrice))

	out := ItemAmounts{
		TaxableAmount: taxable,
		CGSTAmount:    decimal.Zero,
		SGSTAmount:    decimal.Zero,
		IGSTAmount:    decimal.Zero,
		Total:         taxable,
	}

	if gstType == GSTTypeIGST {
		out.IGSTAmount = percentOf(taxable, rates.IGST)
		return out
	}

	out.CGSTAmount = percentOf(taxable, rates.CGST)
	out.SGSTAmount = percentOf(taxable, rates.SGST)
	return out
}

// Totals is the invoice-level aggregate.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TotalCGST decimal.Decimal `json:"total_cgst"`
	TotalSGST decimal.Decimal `json:"total_sgst"`
	TotalIGST decimal.Decimal `json:"total_igst"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Discount  decimal.Decimal `json:"discount_amount"`
	Total     decimal.Decimal `json:"total"`
}

// ComputeInvoiceTotals aggregates computed items. The discount is applied
// after tax and the result is not floored at zero.
func ComputeInvoiceTotals(items []ItemAmounts, discount decimal.Decimal) Totals {
	sum := func(pick func(ItemAmounts) decimal.Decimal) decimal.Decimal {
		return lo.Reduce(items, func(acc decimal.Decimal, it ItemAmounts, _ int) decimal.Decimal {
			return acc.Add(pick(it))
		}, decimal.Zero)
	}

	t := Totals{
		Subtotal:  sum(func(it ItemAmounts) decimal.Decimal { return it.Total }),
		TotalCGST: sum(func(it ItemAmounts) decimal.Decimal { return it.CGSTAmount }),
		TotalSGST: sum(func(it ItemAmounts) decimal.Decimal { return it.SGSTAmount }),
		TotalIGST: sum(func(it ItemAmounts) decimal.Decimal { return it.IGSTAmount }),
		Discount:  discount,
	}
	t.TaxAmount = t.TotalCGST.Add(t.TotalSGST).Add(t.TotalIGST)
	t.Total = t.Subtotal.Add(t.TaxAmount).Sub(discount)
	return t
}

func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(nonNegative(rate)).Div(hundred)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
