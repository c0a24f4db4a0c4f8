package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"invomitra/internal/common"
	"invomitra/internal/services"
)

const maxWebhookBody = 1 << 20

// WebhookHandlers receives gateway server-to-server callbacks.
type WebhookHandlers struct {
	webhooks services.WebhookService
}

func NewWebhookHandlers(webhooks services.WebhookService) *WebhookHandlers {
	return &WebhookHandlers{webhooks: webhooks}
}

// RazorpayWebhook handles POST /v1/webhooks/razorpay. The signature is
// checked against the raw body, so the body is read before any decoding.
func (h *WebhookHandlers) RazorpayWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return common.SendValidationError(c, "body", "failed to read request body")
	}

	signature := c.Request().Header.Get("X-Razorpay-Signature")
	if signature == "" {
		return common.SendAppError(c, common.NewError(common.KindSignature, "Missing webhook signature"))
	}

	result, err := h.webhooks.HandleWebhook(c.Request().Context(), body, signature, c.Request().Header.Get("X-Razorpay-Event-Id"))
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
