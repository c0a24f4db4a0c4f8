package middleware

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/services"
)

// SubscriptionGate resolves the caller's subscription once per request.
type SubscriptionGate struct {
	subscriptions services.SubscriptionService
	enforce       bool
	logger        *zap.Logger
}

// NewSubscriptionGate creates a gate. With enforce off the subscription is
// still attached but never blocks the request.
func NewSubscriptionGate(subscriptions services.SubscriptionService, enforce bool, logger *zap.Logger) *SubscriptionGate {
	return &SubscriptionGate{subscriptions: subscriptions, enforce: enforce, logger: logger}
}

// RequireSubscription must run after SessionAuth.
func (g *SubscriptionGate) RequireSubscription() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok {
				return common.SendUnauthorizedError(c, "Authentication required")
			}

			sub, err := g.subscriptions.Status(c.Request().Context(), caller)
			if err != nil {
				if g.enforce {
					return common.SendAppError(c, err)
				}
				g.logger.Warn("subscription lookup failed, gate disabled", zap.Error(err))
			}

			ctx := common.WithSubscription(c.Request().Context(), sub)
			c.SetRequest(c.Request().WithContext(ctx))

			if g.enforce && !sub.Subscribed {
				return common.SendAppError(c, &common.AppError{
					Kind:       common.KindForbidden,
					Message:    "An active subscription is required",
					Suggestion: "Choose a plan to continue.",
				})
			}
			return next(c)
		}
	}
}

// PaymentsEnabled is the maintenance switch for checkout and verification.
func PaymentsEnabled(enabled bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !enabled {
				return common.SendAppError(c, common.NewError(common.KindUnavailable,
					"Payments are temporarily unavailable. Please try again later."))
			}
			return next(c)
		}
	}
}
