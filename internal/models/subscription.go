package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tiers and the payment status written on activation.
const (
	TierProMonthly = "Pro Monthly"
	TierProYearly  = "Pro Yearly"

	PaymentStatusCompleted = "completed"
)

// Subscriber tracks a user's paid-plan status, keyed by email.
type Subscriber struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Email              string     `json:"email" db:"email"`
	UserID             *uuid.UUID `json:"user_id" db:"user_id"`
	Subscribed         bool       `json:"subscribed" db:"subscribed"`
	SubscriptionTier   *string    `json:"subscription_tier" db:"subscription_tier"`
	SubscriptionEnd    *time.Time `json:"subscription_end" db:"subscription_end"`
	LastPaymentID      *string    `json:"last_payment_id" db:"last_payment_id"`
	PaymentStatus      *string    `json:"payment_status" db:"payment_status"`
	RazorpayCustomerID *string    `json:"razorpay_customer_id" db:"razorpay_customer_id"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the subscription grants access at now.
func (s *Subscriber) IsActive(now time.Time) bool {
	if s == nil || !s.Subscribed {
		return false
	}
	return s.SubscriptionEnd == nil || s.SubscriptionEnd.After(now)
}

// Activation is the state written when a captured payment is confirmed.
type Activation struct {
	Email           string
	UserID          *uuid.UUID
	Tier            string
	SubscriptionEnd time.Time
	PaymentID       string
	CustomerID      *string
}

// Plan is a purchasable subscription plan.
type Plan struct {
	Type     string `json:"plan_type"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Days     int    `json:"days"`
}
