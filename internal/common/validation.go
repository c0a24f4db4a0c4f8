package common

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const MaxTextLength = 1000

var (
	gstinPattern         = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	invoiceNumberPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)
)

// Invoice statuses.
const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)

// ValidateUUID parses a path or body identifier.
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID", fieldName)
	}
	return id, nil
}

// ValidateGSTIN validates GSTIN format
func ValidateGSTIN(gstin, fieldName string) error {
	gstin = strings.TrimSpace(gstin)
	if gstin == "" {
		return nil // GSTIN is optional
	}
	if len(gstin) != 15 {
		return fmt.Errorf("%s must be exactly 15 characters", fieldName)
	}
	if !gstinPattern.MatchString(strings.ToUpper(gstin)) {
		return fmt.Errorf("%s has invalid GSTIN format", fieldName)
	}
	return nil
}

// ValidateInvoiceNumber accepts 1-50 letters, digits, dashes and underscores.
func ValidateInvoiceNumber(number string) error {
	if !invoiceNumberPattern.MatchString(number) {
		return fmt.Errorf("invoice number may only contain letters, digits, '-' and '_' (max 50)")
	}
	return nil
}

// ValidateInvoiceStatus validates invoice status
func ValidateInvoiceStatus(status string) error {
	switch status {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue:
		return nil
	}
	return fmt.Errorf("invoice status must be one of: pending, paid, overdue")
}

// SanitizeText trims, escapes HTML and caps free text.
func SanitizeText(input string) string {
	out := html.EscapeString(strings.TrimSpace(input))
	if len(out) > MaxTextLength {
		out = out[:MaxTextLength]
	}
	return out
}

// SanitizeOptional applies SanitizeText to a pointer field, returning nil
// for blank input.
func SanitizeOptional(input *string) *string {
	if input == nil {
		return nil
	}
	return StringPtr(SanitizeText(*input))
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	if offset > 1000000 {
		return 0, 0, fmt.Errorf("offset cannot exceed 1,000,000")
	}
	return limit, offset, nil
}

// MaskSecret keeps a short prefix of a credential for status displays.
func MaskSecret(value string, keep int) string {
	if value == "" {
		return ""
	}
	if len(value) <= keep {
		return strings.Repeat("*", len(value))
	}
	return value[:keep] + "..."
}

// NormalizeEmail lowercases and trims an address used as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
