package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/repositories"
)

const (
	EventPaymentCaptured = "payment.captured"

	webhookUpsertAttempts = 3
)

// Webhook outcomes.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

type WebhookResult struct {
	Status  string `json:"status"`
	EventID string `json:"eventId,omitempty"`
	Event   string `json:"event"`
}

// WebhookService reconciles gateway server-to-server callbacks.
type WebhookService interface {
	HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (*WebhookResult, error)
}

type webhookService struct {
	secret        string
	subscribers   repositories.SubscriberRepository
	events        repositories.WebhookEventRepository
	subscriptions SubscriptionService
	logger        *zap.Logger
	now           func() time.Time
	newBackOff    func() backoff.BackOff
}

func NewWebhookService(secret string, subscribers repositories.SubscriberRepository, events repositories.WebhookEventRepository, subscriptions SubscriptionService, logger *zap.Logger) WebhookService {
	return &webhookService{
		secret:        secret,
		subscribers:   subscribers,
		events:        events,
		subscriptions: subscriptions,
		logger:        logger,
		now:           time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return b
		},
	}
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity GatewayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (s *webhookService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (*WebhookResult, error) {
	if s.secret == "" {
		return nil, common.NewError(common.KindConfig, "Webhook secret is not configured")
	}
	if !VerifyWebhookSignature(body, strings.TrimSpace(signature), s.secret) {
		s.logger.Warn("webhook signature mismatch", zap.String("event_id", eventID))
		return nil, common.NewError(common.KindSignature, "Invalid webhook signature")
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, common.ValidationError("body", "webhook body is not valid JSON")
	}

	payment := envelope.Payload.Payment.Entity
	if eventID == "" && payment.ID != "" {
		eventID = payment.ID + ":" + envelope.Event
	}
	result := &WebhookResult{EventID: eventID, Event: envelope.Event}
	logger := s.logger.With(zap.String("event", envelope.Event), zap.String("event_id", eventID))

	if envelope.Event != EventPaymentCaptured {
		logger.Info("webhook event ignored")
		result.Status = WebhookIgnored
		return result, nil
	}

	if payment.ID == "" {
		return nil, common.ValidationError("payload.payment.entity.id", "captured payment has no id")
	}

	email := common.NormalizeEmail(payment.Email)
	if email == "" {
		email = common.NormalizeEmail(payment.Notes["user_email"])
	}
	if email == "" {
		logger.Warn("captured payment has no resolvable email", zap.String("payment_id", payment.ID))
		return nil, common.ValidationError("email", "payment cannot be attributed to a subscriber")
	}

	seen, err := s.events.Exists(ctx, eventID)
	if err != nil {
		logger.Error("failed to check webhook event log", zap.Error(err))
		return nil, common.WrapError(common.KindPersistence, "Failed to check webhook event", err)
	}
	if seen {
		logger.Info("duplicate webhook delivery acknowledged")
		result.Status = WebhookDuplicate
		return result, nil
	}

	plan := PlanForAmount(payment.Amount)
	activation := models.Activation{
		Email:           email,
		UserID:          notesUserID(payment.Notes),
		Tier:            plan.Name,
		SubscriptionEnd: s.now().Add(time.Duration(plan.Days) * 24 * time.Hour),
		PaymentID:       payment.ID,
		CustomerID:      common.StringPtr(payment.CustomerID),
	}

	attempt := 0
	activate := func() error {
		attempt++
		_, err := s.subscribers.Activate(ctx, activation)
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), webhookUpsertAttempts-1), ctx)
	notify := func(err error, wait time.Duration) {
		logger.Warn("subscriber upsert failed, retrying",
			zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(activate, b, notify); err != nil {
		logger.Error("webhook activation failed", zap.String("payment_id", payment.ID), zap.Error(err))
		return nil, common.WrapError(common.KindPersistence, "Failed to activate subscription", err)
	}

	paymentID := payment.ID
	if err := s.events.MarkProcessed(ctx, &models.WebhookEvent{
		EventID:   eventID,
		EventType: envelope.Event,
		PaymentID: &paymentID,
		Email:     &email,
	}); err != nil {
		// The upsert is idempotent, so a redelivery is harmless.
		logger.Warn("failed to record webhook event", zap.Error(err))
	}
	s.subscriptions.Invalidate(ctx, email)

	logger.Info("subscription activated from webhook",
		zap.String("payment_id", payment.ID), zap.String("tier", plan.Name))
	result.Status = WebhookProcessed
	return result, nil
}

func notesUserID(notes Notes) *uuid.UUID {
	raw := strings.TrimSpace(notes["user_id"])
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}
