package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"invomitra/internal/common"
	"invomitra/internal/models"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		description string
		source      string
		reason      string
		want        common.FailureReason
		method      string
	}{
		{"phonepe in description", "BAD_REQUEST_ERROR", "PhonePe declined the request", "", "", common.ReasonMethodDegraded, "PhonePe"},
		{"phonepe in source", "GATEWAY_ERROR", "Payment failed", "phonepe", "", common.ReasonMethodDegraded, "PhonePe"},
		{"phonepe in reason", "", "", "", "phonepe_timeout", common.ReasonMethodDegraded, "PhonePe"},
		{"bad request", "BAD_REQUEST_ERROR", "card number invalid", "customer", "input_validation_failed", common.ReasonInvalidDetails, ""},
		{"anything else", "SERVER_ERROR", "internal", "", "", common.ReasonGeneric, ""},
		{"empty", "", "", "", "", common.ReasonGeneric, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyFailure(tt.code, tt.description, tt.source, tt.reason)
			assert.Equal(t, tt.want, got.Reason)
			assert.Equal(t, tt.method, got.Method)
		})
	}
}

func TestClassifyWidgetFailure(t *testing.T) {
	got := ClassifyWidgetFailure(models.WidgetFailure{Code: "BAD_REQUEST_ERROR", Description: "Payment failed via PhonePe"})

	assert.Equal(t, common.ReasonMethodDegraded, got.Reason)
}

func TestGuidance(t *testing.T) {
	degraded := FailureClassification{Reason: common.ReasonMethodDegraded, Method: "PhonePe"}.Guidance()
	assert.Equal(t, "PhonePe payment failed", degraded.Title)
	assert.Equal(t, AlternativeMethods, degraded.Alternatives)

	invalid := FailureClassification{Reason: common.ReasonInvalidDetails}.Guidance()
	assert.Equal(t, "Invalid payment details", invalid.Title)
	assert.Empty(t, invalid.Alternatives)

	generic := FailureClassification{}.Guidance()
	assert.Equal(t, common.ReasonGeneric, generic.Reason)
}

func TestSuggestion(t *testing.T) {
	s := FailureClassification{Reason: common.ReasonMethodDegraded, Method: "PhonePe"}.Suggestion()

	assert.Equal(t, "Try another payment app such as Google Pay, Paytm, Amazon Pay or BHIM UPI.", s)
	assert.Empty(t, FailureClassification{Reason: common.ReasonGeneric}.Suggestion())
}

func TestGatewayFailure(t *testing.T) {
	degraded := gatewayFailure(parseGatewayError(400, []byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"x","source":"PhonePe"}}`)), "create order")
	appErr, ok := common.AsAppError(degraded)
	assert.True(t, ok)
	assert.Equal(t, common.KindGatewayRejected, appErr.Kind)
	assert.Equal(t, 422, appErr.HTTPStatus())
	assert.NotEmpty(t, appErr.Suggestion)

	plain := gatewayFailure(errors.New("boom"), "create order")
	assert.True(t, common.IsKind(plain, common.KindGatewayUnavailable))
}
