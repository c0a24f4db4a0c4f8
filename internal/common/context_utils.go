package common

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	CallerKey       contextKey = "caller"
	SubscriptionKey contextKey = "subscription"
)

// Caller is the authenticated user behind a request, as asserted by the
// external auth provider's session token.
type Caller struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// SubscriptionContext is the subscription state resolved once per request
// and handed to whatever needs it.
type SubscriptionContext struct {
	Subscribed      bool       `json:"subscribed"`
	Tier            *string    `json:"subscription_tier,omitempty"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	PaymentStatus   *string    `json:"payment_status,omitempty"`
}

// WithCaller stores the caller in ctx.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// GetCallerFromContext extracts the authenticated caller from the request context
func GetCallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(Caller)
	if !ok || caller.UserID == uuid.Nil || caller.Email == "" {
		return Caller{}, false
	}
	return caller, true
}

// WithSubscription stores resolved subscription state in ctx.
func WithSubscription(ctx context.Context, sub SubscriptionContext) context.Context {
	return context.WithValue(ctx, SubscriptionKey, sub)
}

// GetSubscriptionFromContext returns the subscription state resolved by the gate.
func GetSubscriptionFromContext(ctx context.Context) (SubscriptionContext, bool) {
	sub, ok := ctx.Value(SubscriptionKey).(SubscriptionContext)
	return sub, ok
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
