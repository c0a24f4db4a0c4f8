package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/config"
	"invomitra/internal/models"
	"invomitra/internal/services"
)

// SubscriptionHandlers serves plans, checkout and payment verification.
type SubscriptionHandlers struct {
	subscriptions services.SubscriptionService
	checkout      services.CheckoutService
	payments      services.PaymentService
	gateway       config.Razorpay
	logger        *zap.Logger
}

func NewSubscriptionHandlers(
	subscriptions services.SubscriptionService,
	checkout services.CheckoutService,
	payments services.PaymentService,
	gateway config.Razorpay,
	logger *zap.Logger,
) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		subscriptions: subscriptions,
		checkout:      checkout,
		payments:      payments,
		gateway:       gateway,
		logger:        logger,
	}
}

type createOrderRequest struct {
	PlanType string `json:"planType" validate:"required,oneof=monthly yearly"`
}

type verifyPaymentRequest struct {
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type failureRequest struct {
	Error struct {
		Code        string            `json:"code"`
		Description string            `json:"description"`
		Source      string            `json:"source"`
		Reason      string            `json:"reason"`
		Step        string            `json:"step"`
		Metadata    map[string]string `json:"metadata"`
	} `json:"error"`
}

// ListPlans handles GET /v1/plans
func (h *SubscriptionHandlers) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"plans": services.AvailablePlans(),
	})
}

// GetSubscription handles GET /v1/subscription
func (h *SubscriptionHandlers) GetSubscription(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	status, err := h.subscriptions.Status(c.Request().Context(), caller)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// CreateOrder handles POST /v1/checkout/orders
func (h *SubscriptionHandlers) CreateOrder(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	var req createOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}

	order, err := h.checkout.CreateOrder(c.Request().Context(), caller, req.PlanType)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// VerifyPayment handles POST /v1/checkout/verify
func (h *SubscriptionHandlers) VerifyPayment(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	var req verifyPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		if appErr, ok := common.AsAppError(err); ok {
			appErr.Reason = common.ReasonInvalidDetails
		}
		return common.SendAppError(c, err)
	}

	result, err := h.payments.VerifyAndActivate(c.Request().Context(), caller, models.PaymentConfirmation{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
	})
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"subscription": result,
	})
}

// ReportFailure handles POST /v1/payments/failure. The widget's error is
// classified so the client can show method-specific guidance.
func (h *SubscriptionHandlers) ReportFailure(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	var req failureRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "body", "request body is not valid JSON")
	}

	failure := models.WidgetFailure{
		Code:        req.Error.Code,
		Description: req.Error.Description,
		Source:      req.Error.Source,
		Reason:      req.Error.Reason,
		Step:        req.Error.Step,
		Metadata:    req.Error.Metadata,
	}
	classification := services.ClassifyWidgetFailure(failure)
	h.logger.Info("payment widget failure",
		zap.String("user_id", caller.UserID.String()),
		zap.String("code", failure.Code),
		zap.String("reason", string(classification.Reason)),
		zap.String("order_id", failure.Metadata["order_id"]),
		zap.String("payment_id", failure.Metadata["payment_id"]))

	return c.JSON(http.StatusOK, classification.Guidance())
}

// PaymentsConfig handles GET /v1/payments/config
func (h *SubscriptionHandlers) PaymentsConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"configured":       h.gateway.Configured(),
		"keyId":            common.MaskSecret(h.gateway.KeyID, 8),
		"hasKeySecret":     h.gateway.KeySecret != "",
		"hasWebhookSecret": h.gateway.WebhookSecret != "",
	})
}
