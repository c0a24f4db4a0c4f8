package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/config"
	"invomitra/internal/models"
	"invomitra/internal/tax"
)

func TestValidUPIID(t *testing.T) {
	assert.True(t, ValidUPIID("shop@okbank"))
	assert.True(t, ValidUPIID(" first.last-1@ybl "))
	assert.False(t, ValidUPIID("shop"))
	assert.False(t, ValidUPIID("a@b"))
	assert.False(t, ValidUPIID("has space@bank"))
}

func TestUPIPaymentURI(t *testing.T) {
	uri := UPIPaymentURI("shop@okbank", decimal.RequireFromString("1180.5"), "")

	assert.Equal(t, "upi://pay?pa=shop@okbank&am=1180.50&cu=INR", uri)
}

func TestPaymentQRDataURL(t *testing.T) {
	dataURL, err := PaymentQRDataURL("shop@okbank", decimal.NewFromInt(100), "INR")
	require.NoError(t, err)

	png, ok := DecodePNGDataURL(dataURL)
	require.True(t, ok)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, ok = DecodePNGDataURL("data:image/jpeg;base64,AAAA")
	assert.False(t, ok)
}

func TestRenderInvoicePDF(t *testing.T) {
	inv := models.NewInvoice(uuid.New(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	inv.InvoiceNumber = "INV-2026-0001"
	inv.Client = models.ClientSnapshot{Name: "Acme Traders", GSTIN: common.StringPtr("27AAPFU0939F1ZV")}
	inv.SetGSTType(tax.GSTTypeCGSTSGST)
	require.NoError(t, inv.UpdateItem(inv.Items[0].ID, 3, decimal.NewFromInt(250)))
	inv.AddItem("Support", 1, decimal.RequireFromString("99.99"), common.StringPtr("998313"))
	inv.SetDiscount(decimal.NewFromInt(20))
	inv.UPIID = common.StringPtr("shop@okbank")
	inv.PaymentAmount = inv.Total
	qr, err := PaymentQRDataURL(*inv.UPIID, inv.PaymentAmount, inv.Currency)
	require.NoError(t, err)
	inv.PaymentQR = &qr

	pdf, err := RenderInvoicePDF(inv)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Equal(t, "invoices/"+inv.UserID.String()+"/INV-2026-0001.pdf", InvoiceObjectName(inv))
}

func TestEmailServiceWithoutAPIKey(t *testing.T) {
	svc := NewEmailService(config.Resend{FromEmail: "invoices@example.com"}, zap.NewNop())

	_, err := svc.SendInvoice(context.Background(), InvoiceEmail{To: "client@example.com"})

	assert.True(t, common.IsKind(err, common.KindConfig))
}
