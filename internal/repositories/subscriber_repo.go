package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"invomitra/internal/models"
)

type SubscriberRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	EnsurePending(ctx context.Context, email string, userID *uuid.UUID) error
	Activate(ctx context.Context, activation models.Activation) (*models.Subscriber, error)
}

type subscriberRepo struct {
	db DB
}

func NewSubscriberRepo(db DB) SubscriberRepository {
	return &subscriberRepo{db: db}
}

const subscriberColumns = `id, email, user_id, subscribed, subscription_tier, subscription_end,
		last_payment_id, payment_status, razorpay_customer_id, created_at, updated_at`

func scanSubscriber(row pgx.Row) (*models.Subscriber, error) {
	s := &models.Subscriber{}
	err := row.Scan(&s.ID, &s.Email, &s.UserID, &s.Subscribed, &s.SubscriptionTier, &s.SubscriptionEnd,
		&s.LastPaymentID, &s.PaymentStatus, &s.RazorpayCustomerID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func (r *subscriberRepo) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE email = $1`
	return scanSubscriber(r.db.QueryRow(ctx, query, email))
}

// EnsurePending inserts an unsubscribed placeholder. An existing row keeps
// its subscription state; only a missing user link is filled in.
func (r *subscriberRepo) EnsurePending(ctx context.Context, email string, userID *uuid.UUID) error {
	query := `
		INSERT INTO subscribers (id, email, user_id, subscribed, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			user_id = COALESCE(subscribers.user_id, EXCLUDED.user_id),
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, uuid.New(), email, userID); err != nil {
		return fmt.Errorf("failed to upsert pending subscriber: %w", err)
	}
	return nil
}

// Activate upserts the subscriber as subscribed. A nil user id or customer
// id leaves the stored value untouched.
func (r *subscriberRepo) Activate(ctx context.Context, a models.Activation) (*models.Subscriber, error) {
	query := `
		INSERT INTO subscribers (id, email, user_id, subscribed, subscription_tier, subscription_end,
			last_payment_id, payment_status, razorpay_customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			user_id = COALESCE(EXCLUDED.user_id, subscribers.user_id),
			subscribed = TRUE,
			subscription_tier = EXCLUDED.subscription_tier,
			subscription_end = EXCLUDED.subscription_end,
			last_payment_id = EXCLUDED.last_payment_id,
			payment_status = EXCLUDED.payment_status,
			razorpay_customer_id = COALESCE(EXCLUDED.razorpay_customer_id, subscribers.razorpay_customer_id),
			updated_at = NOW()
		RETURNING ` + subscriberColumns

	row := r.db.QueryRow(ctx, query, uuid.New(), a.Email, a.UserID, a.Tier, a.SubscriptionEnd,
		a.PaymentID, models.PaymentStatusCompleted, a.CustomerID)
	s, err := scanSubscriber(row)
	if err != nil {
		return nil, fmt.Errorf("failed to activate subscriber: %w", err)
	}
	return s, nil
}
