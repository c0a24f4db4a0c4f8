package repositories

import (
	"context"
	"fmt"

	"invomitra/internal/models"
)

// WebhookEventRepository records processed gateway deliveries so that
// redeliveries are acknowledged without side effects.
type WebhookEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, event *models.WebhookEvent) error
}

type webhookEventRepo struct {
	db DB
}

func NewWebhookEventRepo(db DB) WebhookEventRepository {
	return &webhookEventRepo{db: db}
}

func (r *webhookEventRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM webhook_events WHERE event_id = $1)`
	if err := r.db.QueryRow(ctx, query, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return exists, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (event_id, event_type, payment_id, email, processed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, event.EventID, event.EventType, event.PaymentID, event.Email); err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}
