package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invomitra/internal/common"
	"invomitra/internal/tax"
)

var (
	ErrLastLineItem     = errors.New("invoice must keep at least one line item")
	ErrLineItemNotFound = errors.New("line item not found")
)

// ClientSnapshot is the client's details as captured when the invoice was saved.
type ClientSnapshot struct {
	Name    string  `json:"name" db:"client_name"`
	Email   *string `json:"email" db:"client_email"`
	Phone   *string `json:"phone" db:"client_phone"`
	Address *string `json:"address" db:"client_address"`
	GSTIN   *string `json:"gstin" db:"client_gstin"`
}

type Invoice struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	UserID        uuid.UUID   `json:"user_id" db:"user_id"`
	ClientID      *uuid.UUID  `json:"client_id" db:"client_id"`
	InvoiceNumber string      `json:"invoice_number" db:"invoice_number"`
	IssueDate     time.Time   `json:"issue_date" db:"issue_date"`
	DueDate       *time.Time  `json:"due_date" db:"due_date"`
	Currency      string      `json:"currency" db:"currency"`
	GSTType       tax.GSTType `json:"gst_type" db:"gst_type"`

	// Default rates copied onto new line items.
	CGSTRate decimal.Decimal `json:"cgst_rate" db:"cgst_rate"`
	SGSTRate decimal.Decimal `json:"sgst_rate" db:"sgst_rate"`
	IGSTRate decimal.Decimal `json:"igst_rate" db:"igst_rate"`

	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	CGSTAmount     decimal.Decimal `json:"cgst_amount" db:"cgst_amount"`
	SGSTAmount     decimal.Decimal `json:"sgst_amount" db:"sgst_amount"`
	IGSTAmount     decimal.Decimal `json:"igst_amount" db:"igst_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	Total          decimal.Decimal `json:"total" db:"total"`

	Notes         *string         `json:"notes" db:"notes"`
	PlaceOfSupply *string         `json:"place_of_supply" db:"place_of_supply"`
	CompanyGSTIN  *string         `json:"company_gstin" db:"company_gstin"`
	UPIID         *string         `json:"upi_id" db:"upi_id"`
	PaymentAmount decimal.Decimal `json:"payment_amount" db:"payment_amount"`
	PaymentQR     *string         `json:"payment_qr_code" db:"payment_qr_code"`
	Status        string          `json:"status" db:"status"`

	Client ClientSnapshot `json:"client"`
	Items  []*LineItem    `json:"items"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type LineItem struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id" db:"invoice_id"`
	Position      int             `json:"position" db:"position"`
	Description   string          `json:"description" db:"description"`
	Quantity      int64           `json:"quantity" db:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price" db:"unit_price"`
	HSNSACCode    *string         `json:"hsn_sac_code" db:"hsn_sac_code"`
	CGSTRate      decimal.Decimal `json:"cgst_rate" db:"cgst_rate"`
	SGSTRate      decimal.Decimal `json:"sgst_rate" db:"sgst_rate"`
	IGSTRate      decimal.Decimal `json:"igst_rate" db:"igst_rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount" db:"taxable_amount"`
	CGSTAmount    decimal.Decimal `json:"cgst_amount" db:"cgst_amount"`
	SGSTAmount    decimal.Decimal `json:"sgst_amount" db:"sgst_amount"`
	IGSTAmount    decimal.Decimal `json:"igst_amount" db:"igst_amount"`
	// Total excludes tax; see LineTotal for the displayed amount.
	Total     decimal.Decimal `json:"total" db:"total"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// NewInvoice returns a pending invoice with default currency, regime and
// rates, holding a single empty line item.
func NewInvoice(userID uuid.UUID, issueDate time.Time) *Invoice {
	inv := &Invoice{
		ID:             uuid.New(),
		UserID:         userID,
		IssueDate:      issueDate,
		Currency:       tax.DefaultCurrency,
		GSTType:        tax.GSTTypeIGST,
		CGSTRate:       tax.DefaultCGSTRate,
		SGSTRate:       tax.DefaultSGSTRate,
		IGSTRate:       tax.DefaultIGSTRate,
		DiscountAmount: decimal.Zero,
		PaymentAmount:  decimal.Zero,
		Status:         common.InvoiceStatusPending,
	}
	inv.AddItem("", 1, decimal.Zero, nil)
	return inv
}

// DefaultRates are the invoice-level rates new items start with.
func (inv *Invoice) DefaultRates() tax.Rates {
	return tax.Rates{CGST: inv.CGSTRate, SGST: inv.SGSTRate, IGST: inv.IGSTRate}
}

// AddItem appends an item carrying the invoice default rates and
// recalculates the invoice.
func (inv *Invoice) AddItem(description string, quantity int64, unitPrice decimal.Decimal, hsnSAC *string) *LineItem {
	rates := inv.DefaultRates()
	item := &LineItem{
		ID:          uuid.New(),
		InvoiceID:   inv.ID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		HSNSACCode:  hsnSAC,
		CGSTRate:    rates.CGST,
		SGSTRate:    rates.SGST,
		IGSTRate:    rates.IGST,
	}
	inv.Items = append(inv.Items, item)
	inv.Recalculate()
	return item
}

// RemoveItem drops the item with the given id. The last item cannot be removed.
func (inv *Invoice) RemoveItem(id uuid.UUID) error {
	idx := inv.itemIndex(id)
	if idx < 0 {
		return ErrLineItemNotFound
	}
	if len(inv.Items) <= 1 {
		return ErrLastLineItem
	}
	inv.Items = append(inv.Items[:idx], inv.Items[idx+1:]...)
	inv.Recalculate()
	return nil
}

// UpdateItem changes an item's quantity and unit price.
func (inv *Invoice) UpdateItem(id uuid.UUID, quantity int64, unitPrice decimal.Decimal) error {
	idx := inv.itemIndex(id)
	if idx < 0 {
		return ErrLineItemNotFound
	}
	inv.Items[idx].Quantity = quantity
	inv.Items[idx].UnitPrice = unitPrice
	inv.Recalculate()
	return nil
}

// SetGSTType switches the regime for every item.
func (inv *Invoice) SetGSTType(t tax.GSTType) {
	inv.GSTType = t
	inv.Recalculate()
}

// SetDiscount sets the post-tax discount.
func (inv *Invoice) SetDiscount(discount decimal.Decimal) {
	inv.DiscountAmount = discount
	inv.Recalculate()
}

// Recalculate recomputes every item and the invoice totals.
func (inv *Invoice) Recalculate() tax.Totals {
	amounts := make([]tax.ItemAmounts, 0, len(inv.Items))
	for i, item := range inv.Items {
		item.Position = i
		item.InvoiceID = inv.ID
		a := tax.ComputeItem(item.Quantity, item.UnitPrice, inv.GSTType, item.Rates())
		item.apply(a)
		amounts = append(amounts, a)
	}

	totals := tax.ComputeInvoiceTotals(amounts, inv.DiscountAmount)
	inv.Subtotal = totals.Subtotal
	inv.CGSTAmount = totals.TotalCGST
	inv.SGSTAmount = totals.TotalSGST
	inv.IGSTAmount = totals.TotalIGST
	inv.TaxAmount = totals.TaxAmount
	inv.Total = totals.Total
	return totals
}

// PaymentLinkReady reports whether a UPI QR can be generated.
func (inv *Invoice) PaymentLinkReady() bool {
	return common.SafeString(inv.UPIID) != "" && inv.PaymentAmount.IsPositive()
}

func (inv *Invoice) itemIndex(id uuid.UUID) int {
	for i, item := range inv.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Rates returns the item's percentage rates.
func (li *LineItem) Rates() tax.Rates {
	return tax.Rates{CGST: li.CGSTRate, SGST: li.SGSTRate, IGST: li.IGSTRate}
}

// Amounts returns the item's stored breakdown.
func (li *LineItem) Amounts() tax.ItemAmounts {
	return tax.ItemAmounts{
		TaxableAmount: li.TaxableAmount,
		CGSTAmount:    li.CGSTAmount,
		SGSTAmount:    li.SGSTAmount,
		IGSTAmount:    li.IGSTAmount,
		Total:         li.Total,
	}
}

// LineTotal is the tax-inclusive amount shown on previews and documents.
func (li *LineItem) LineTotal() decimal.Decimal {
	return li.Amounts().LineTotal()
}

func (li *LineItem) apply(a tax.ItemAmounts) {
	li.TaxableAmount = a.TaxableAmount
	li.CGSTAmount = a.CGSTAmount
	li.SGSTAmount = a.SGSTAmount
	li.IGSTAmount = a.IGSTAmount
	li.Total = a.Total
}
