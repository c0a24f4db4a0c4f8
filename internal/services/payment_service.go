package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/repositories"
)

// PaymentService verifies checkout callbacks and activates subscriptions.
type PaymentService interface {
	VerifyAndActivate(ctx context.Context, caller common.Caller, confirmation models.PaymentConfirmation) (*models.ActivationResult, error)
}

type paymentService struct {
	gateway       RazorpayService
	subscribers   repositories.SubscriberRepository
	subscriptions SubscriptionService
	keySecret     string
	logger        *zap.Logger
	now           func() time.Time
}

func NewPaymentService(gateway RazorpayService, subscribers repositories.SubscriberRepository, subscriptions SubscriptionService, keySecret string, logger *zap.Logger) PaymentService {
	return &paymentService{
		gateway:       gateway,
		subscribers:   subscribers,
		subscriptions: subscriptions,
		keySecret:     keySecret,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *paymentService) VerifyAndActivate(ctx context.Context, caller common.Caller, confirmation models.PaymentConfirmation) (*models.ActivationResult, error) {
	email := common.NormalizeEmail(caller.Email)
	if email == "" {
		return nil, common.NewError(common.KindAuth, "Authentication required")
	}

	paymentID := strings.TrimSpace(confirmation.PaymentID)
	orderID := strings.TrimSpace(confirmation.OrderID)
	signature := strings.TrimSpace(confirmation.Signature)
	if paymentID == "" || orderID == "" || signature == "" {
		return nil, &common.AppError{
			Kind:    common.KindValidation,
			Message: "Invalid payment details",
			Details: map[string]string{"payment": "payment id, order id and signature are required"},
			Reason:  common.ReasonInvalidDetails,
		}
	}

	if s.keySecret == "" {
		return nil, common.NewError(common.KindConfig, "Payment gateway is not configured")
	}

	logger := s.logger.With(zap.String("order_id", orderID), zap.String("payment_id", paymentID))

	if !VerifyPaymentSignature(orderID, paymentID, signature, s.keySecret) {
		logger.Warn("payment signature mismatch")
		return nil, common.NewError(common.KindSignature, "Invalid payment signature")
	}

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		logger.Error("failed to fetch payment", zap.Error(err))
		return nil, gatewayFailure(err, "verify payment")
	}

	if payment.Status != PaymentStatusCaptured {
		logger.Warn("payment not captured", zap.String("status", payment.Status))
		return nil, &common.AppError{
			Kind:    common.KindNotCaptured,
			Message: "Payment has not been captured",
			Details: map[string]string{"status": payment.Status},
		}
	}

	plan := PlanForAmount(payment.Amount)
	if declared := payment.Notes["plan_type"]; declared != "" && declared != plan.Type {
		logger.Warn("declared plan disagrees with captured amount",
			zap.String("declared_plan", declared),
			zap.String("derived_plan", plan.Type),
			zap.Int64("amount", payment.Amount))
	}

	expiresAt := s.now().Add(time.Duration(plan.Days) * 24 * time.Hour)
	userID := caller.UserID
	_, err = s.subscribers.Activate(ctx, models.Activation{
		Email:           email,
		UserID:          &userID,
		Tier:            plan.Name,
		SubscriptionEnd: expiresAt,
		PaymentID:       payment.ID,
		CustomerID:      common.StringPtr(payment.CustomerID),
	})
	if err != nil {
		logger.Error("failed to activate subscription", zap.Error(err))
		return nil, common.WrapError(common.KindPersistence, "Payment verified but the subscription could not be saved. Please retry.", err)
	}
	s.subscriptions.Invalidate(ctx, email)

	logger.Info("subscription activated", zap.String("tier", plan.Name), zap.Time("expires_at", expiresAt))
	return &models.ActivationResult{Tier: plan.Name, ExpiresAt: expiresAt, PaymentID: payment.ID}, nil
}
