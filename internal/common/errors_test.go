package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusAndRetryable(t *testing.T) {
	cases := []struct {
		err       *AppError
		status    int
		retryable bool
	}{
		{NewError(KindAuth, "x"), http.StatusUnauthorized, false},
		{NewError(KindValidation, "x"), http.StatusBadRequest, false},
		{NewError(KindSignature, "x"), http.StatusBadRequest, false},
		{NewError(KindGatewayUnavailable, "x"), http.StatusServiceUnavailable, true},
		{NewError(KindGatewayRejected, "x"), http.StatusBadGateway, false},
		{&AppError{Kind: KindGatewayRejected, Reason: ReasonMethodDegraded}, http.StatusUnprocessableEntity, false},
		{&AppError{Kind: KindGatewayRejected, Reason: ReasonInvalidDetails}, http.StatusBadRequest, false},
		{NewError(KindNotCaptured, "x"), http.StatusPaymentRequired, false},
		{NewError(KindPersistence, "x"), http.StatusInternalServerError, true},
		{NewError(KindConfig, "x"), http.StatusInternalServerError, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), tc.err.Kind)
		assert.Equal(t, tc.retryable, tc.err.Retryable(), tc.err.Kind)
	}
}

func TestAsAppError_ThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := pkgerrors.Wrap(WrapError(KindPersistence, "failed to save", cause), "activate")

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindPersistence, appErr.Kind)
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, IsKind(wrapped, KindPersistence))
	assert.False(t, IsKind(cause, KindPersistence))
}

func TestSendAppError_Envelope(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	err := SendAppError(c, &AppError{
		Kind:       KindGatewayRejected,
		Message:    "PhonePe is having trouble",
		Reason:     ReasonMethodDegraded,
		Suggestion: "Try another app",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "GATEWAY_REJECTED", body.Error.Code)
	assert.Equal(t, ReasonMethodDegraded, body.Reason)
	assert.Equal(t, "Try another app", body.Suggestion)
	assert.False(t, body.Retryable)
}

func TestSendAppError_UnknownErrorIsOpaque(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, SendAppError(c, errors.New("pq: secret table exploded")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret table")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateGSTIN("", "gstin"))
	assert.NoError(t, ValidateGSTIN("27AAPFU0939F1ZV", "gstin"))
	assert.Error(t, ValidateGSTIN("27AAPFU0939F1Z", "gstin"))
	assert.Error(t, ValidateGSTIN("2XAAPFU0939F1ZV", "gstin"))

	assert.NoError(t, ValidateInvoiceNumber("INV-2024_001"))
	assert.Error(t, ValidateInvoiceNumber("INV 001"))
	assert.Error(t, ValidateInvoiceNumber(""))

	assert.NoError(t, ValidateInvoiceStatus("overdue"))
	assert.Error(t, ValidateInvoiceStatus("unpaid"))

	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", SanitizeText("  <b>hi</b> "))
	assert.Nil(t, SanitizeOptional(StringPtr("   ")))
	assert.Equal(t, "rzp_te...", MaskSecret("rzp_test_abc123", 6))

	limit, offset, err := ValidatePaginationParams(0, -5)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)
}
