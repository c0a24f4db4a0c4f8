package services

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/tax"
)

const (
	pdfMarginX = 15.0
	pdfMarginY = 20.0
)

// RenderInvoicePDF lays out an invoice on A4. Line totals on the document
// include tax.
func RenderInvoicePDF(inv *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pdfMarginX, pdfMarginY, pdfMarginX)
	pdf.SetAutoPageBreak(true, pdfMarginY)
	pdf.AddPage()

	amount := func(d decimal.Decimal) string {
		return inv.Currency + " " + tax.FormatPlain(d)
	}

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.Cell(0, 10, "TAX INVOICE")
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, tr("Invoice Number: "+inv.InvoiceNumber))
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Issue Date: "+inv.IssueDate.Format("02-Jan-2006"))
	pdf.Ln(6)
	if inv.DueDate != nil {
		pdf.Cell(0, 6, "Due Date: "+inv.DueDate.Format("02-Jan-2006"))
		pdf.Ln(6)
	}
	if gstin := common.SafeString(inv.CompanyGSTIN); gstin != "" {
		pdf.Cell(0, 6, "GSTIN: "+gstin)
		pdf.Ln(6)
	}
	if pos := common.SafeString(inv.PlaceOfSupply); pos != "" {
		pdf.Cell(0, 6, tr("Place of Supply: "+pos))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	// Bill to
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "BILL TO:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(inv.Client.Name))
	pdf.Ln(6)
	for _, line := range []*string{inv.Client.Address, inv.Client.Email, inv.Client.Phone} {
		if v := common.SafeString(line); v != "" {
			pdf.MultiCell(0, 5, tr(v), "", "L", false)
		}
	}
	if gstin := common.SafeString(inv.Client.GSTIN); gstin != "" {
		pdf.Cell(0, 6, "GSTIN: "+gstin)
		pdf.Ln(6)
	}
	pdf.Ln(6)

	// Items
	headers := []string{"#", "Description", "HSN/SAC", "Qty", "Rate", "Tax", "Amount"}
	widths := []float64{8, 62, 22, 14, 26, 22, 26}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	for i, item := range inv.Items {
		desc := item.Description
		if len(desc) > 40 {
			desc = desc[:37] + "..."
		}
		pdf.CellFormat(widths[0], 7, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(desc), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, common.SafeString(item.HSNSACCode), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 7, strconv.FormatInt(item.Quantity, 10), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 7, tax.FormatPlain(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 7, tax.FormatPlain(item.Amounts().Tax()), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 7, tax.FormatPlain(item.LineTotal()), "1", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	pdf.Ln(4)

	// Totals
	row := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(130, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, value, "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}
	row("Subtotal:", amount(inv.Subtotal), false)
	if inv.GSTType == tax.GSTTypeIGST {
		row(fmt.Sprintf("IGST (%s%%):", inv.IGSTRate.String()), amount(inv.IGSTAmount), false)
	} else {
		row(fmt.Sprintf("CGST (%s%%):", inv.CGSTRate.String()), amount(inv.CGSTAmount), false)
		row(fmt.Sprintf("SGST (%s%%):", inv.SGSTRate.String()), amount(inv.SGSTAmount), false)
	}
	if !inv.DiscountAmount.IsZero() {
		row("Discount:", "-"+amount(inv.DiscountAmount), false)
	}
	pdf.SetTextColor(220, 20, 60)
	row("TOTAL:", amount(inv.Total), true)
	pdf.SetTextColor(33, 37, 41)
	pdf.Ln(6)

	if notes := common.SafeString(inv.Notes); notes != "" {
		pdf.SetFont("Arial", "B", 9)
		pdf.Cell(0, 6, "Notes:")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr(notes), "", "L", false)
		pdf.Ln(4)
	}

	if inv.PaymentQR != nil {
		if png, ok := DecodePNGDataURL(*inv.PaymentQR); ok {
			pdf.SetFont("Arial", "B", 9)
			pdf.Cell(0, 6, "Scan to pay via UPI: "+common.SafeString(inv.UPIID))
			pdf.Ln(6)
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader("payment-qr", opts, bytes.NewReader(png))
			pdf.ImageOptions("payment-qr", pdfMarginX, pdf.GetY(), 35, 35, true, opts, 0, "")
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.Cell(0, 5, "This is a computer generated invoice.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// InvoiceObjectName is the storage key for an invoice document.
func InvoiceObjectName(inv *models.Invoice) string {
	return fmt.Sprintf("invoices/%s/%s.pdf", inv.UserID, inv.InvoiceNumber)
}
