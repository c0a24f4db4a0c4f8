package services

import (
	"errors"
	"fmt"
	"strings"

	"invomitra/internal/common"
	"invomitra/internal/models"
)

// FailureClassification is decided once, where a raw gateway or widget
// error is parsed. Callers branch on Reason.
type FailureClassification struct {
	Reason common.FailureReason
	// Method names the third-party app when Reason is ReasonMethodDegraded.
	Method string
}

type thirdPartyMethod struct {
	keyword string
	name    string
}

// Third-party apps whose intermittent failures surface through the gateway.
var degradableMethods = []thirdPartyMethod{
	{keyword: "phonepe", name: "PhonePe"},
}

// AlternativeMethods are suggested when a third-party app is degraded.
var AlternativeMethods = []string{"Google Pay", "Paytm", "Amazon Pay", "BHIM UPI"}

// ClassifyFailure tags a gateway error descriptor.
func ClassifyFailure(code, description, source, reason string) FailureClassification {
	haystack := strings.ToLower(strings.Join([]string{description, source, reason}, " "))
	for _, m := range degradableMethods {
		if strings.Contains(haystack, m.keyword) {
			return FailureClassification{Reason: common.ReasonMethodDegraded, Method: m.name}
		}
	}
	if code == "BAD_REQUEST_ERROR" {
		return FailureClassification{Reason: common.ReasonInvalidDetails}
	}
	return FailureClassification{Reason: common.ReasonGeneric}
}

// ClassifyWidgetFailure tags the descriptor reported by the checkout widget.
func ClassifyWidgetFailure(f models.WidgetFailure) FailureClassification {
	return ClassifyFailure(f.Code, f.Description, f.Source, f.Reason)
}

// Guidance is what the payer is told after a failure.
type Guidance struct {
	Reason       common.FailureReason `json:"reason"`
	Title        string               `json:"title"`
	Message      string               `json:"message"`
	Alternatives []string             `json:"alternatives,omitempty"`
}

func (f FailureClassification) Guidance() Guidance {
	switch f.Reason {
	case common.ReasonMethodDegraded:
		return Guidance{
			Reason:       f.Reason,
			Title:        fmt.Sprintf("%s payment failed", f.Method),
			Message:      fmt.Sprintf("%s is having temporary issues. Please try another payment app.", f.Method),
			Alternatives: AlternativeMethods,
		}
	case common.ReasonInvalidDetails:
		return Guidance{
			Reason:  f.Reason,
			Title:   "Invalid payment details",
			Message: "Please check your payment details and try again.",
		}
	}
	return Guidance{
		Reason:  common.ReasonGeneric,
		Title:   "Payment failed",
		Message: "Something went wrong while processing your payment. Please try again.",
	}
}

// Suggestion is the short hint attached to error responses.
func (f FailureClassification) Suggestion() string {
	if f.Reason == common.ReasonMethodDegraded {
		return "Try another payment app such as " + strings.Join(AlternativeMethods[:len(AlternativeMethods)-1], ", ") +
			" or " + AlternativeMethods[len(AlternativeMethods)-1] + "."
	}
	return ""
}

// gatewayFailure maps a gateway call error onto the service error taxonomy.
func gatewayFailure(err error, action string) error {
	var gerr *GatewayError
	if !errors.As(err, &gerr) {
		return common.WrapError(common.KindGatewayUnavailable, fmt.Sprintf("Failed to %s", action), err)
	}

	if gerr.Class == GatewayConnection {
		return &common.AppError{
			Kind:    common.KindGatewayUnavailable,
			Message: "Payment gateway is unreachable. Please try again.",
			Reason:  common.ReasonGeneric,
			Err:     gerr,
		}
	}

	message := gerr.Description
	switch gerr.Failure.Reason {
	case common.ReasonMethodDegraded:
		message = gerr.Failure.Guidance().Message
	case common.ReasonInvalidDetails:
		message = "Payment details are invalid: " + gerr.Description
	}
	return &common.AppError{
		Kind:       common.KindGatewayRejected,
		Message:    message,
		Details:    map[string]string{"gateway_class": string(gerr.Class), "gateway_code": gerr.Code},
		Reason:     gerr.Failure.Reason,
		Suggestion: gerr.Failure.Suggestion(),
		Err:        gerr,
	}
}
