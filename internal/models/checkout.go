package models

import "time"

// CheckoutOrder is returned to the payment widget. It never carries the
// gateway secret.
type CheckoutOrder struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"keyId"`
	PlanType  string `json:"planType"`
	UserEmail string `json:"userEmail"`
	UserName  string `json:"userName,omitempty"`
}

// PaymentConfirmation is what the widget hands back after a successful payment.
type PaymentConfirmation struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// ActivationResult describes an activated subscription.
type ActivationResult struct {
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expiresAt"`
	PaymentID string    `json:"paymentId"`
}

// WidgetFailure is the error descriptor surfaced by the payment widget.
type WidgetFailure struct {
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Source      string            `json:"source,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Step        string            `json:"step,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// WebhookEvent is a processed gateway webhook delivery.
type WebhookEvent struct {
	EventID     string    `json:"event_id" db:"event_id"`
	EventType   string    `json:"event_type" db:"event_type"`
	PaymentID   *string   `json:"payment_id" db:"payment_id"`
	Email       *string   `json:"email" db:"email"`
	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
}
