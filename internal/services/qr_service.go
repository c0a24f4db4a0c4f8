package services

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"invomitra/internal/tax"
)

const qrImageSize = 256

var upiIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{2,256}@[A-Za-z][A-Za-z0-9.-]{1,64}$`)

// ValidUPIID reports whether id looks like a UPI virtual payment address.
func ValidUPIID(id string) bool {
	return upiIDPattern.MatchString(strings.TrimSpace(id))
}

// UPIPaymentURI builds the deep link scanned by UPI apps.
func UPIPaymentURI(upiID string, amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = tax.DefaultCurrency
	}
	return fmt.Sprintf("upi://pay?pa=%s&am=%s&cu=%s", strings.TrimSpace(upiID), tax.FormatPlain(amount), currency)
}

// QRCodePNG encodes content as a PNG QR code.
func QRCodePNG(content string) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}

// PaymentQRDataURL returns the UPI payment QR as a PNG data URL.
func PaymentQRDataURL(upiID string, amount decimal.Decimal, currency string) (string, error) {
	png, err := QRCodePNG(UPIPaymentURI(upiID, amount, currency))
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// DecodePNGDataURL reverses PaymentQRDataURL.
func DecodePNGDataURL(dataURL string) ([]byte, bool) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		return nil, false
	}
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		return nil, false
	}
	return png, true
}
