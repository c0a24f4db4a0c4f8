package services

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/gommon/random"
	"go.uber.org/zap"

	"invomitra/internal/caching"
	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/repositories"
)

const (
	// MaxReceiptLength is the gateway's ceiling for order receipts.
	MaxReceiptLength = 40

	checkoutRateLimit  = 10
	checkoutRateWindow = 15 * time.Minute
)

// CheckoutService creates gateway orders for plan purchases.
type CheckoutService interface {
	CreateOrder(ctx context.Context, caller common.Caller, planType string) (*models.CheckoutOrder, error)
}

type checkoutService struct {
	gateway     RazorpayService
	subscribers repositories.SubscriberRepository
	cache       caching.CacheService
	configured  bool
	logger      *zap.Logger
	now         func() time.Time
}

func NewCheckoutService(gateway RazorpayService, subscribers repositories.SubscriberRepository, cache caching.CacheService, configured bool, logger *zap.Logger) CheckoutService {
	return &checkoutService{
		gateway:     gateway,
		subscribers: subscribers,
		cache:       cache,
		configured:  configured,
		logger:      logger,
		now:         time.Now,
	}
}

// NewReceipt returns a short receipt token: a base36 millisecond timestamp
// plus a random suffix, well under MaxReceiptLength.
func NewReceipt(now time.Time) string {
	return "rcpt_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + random.String(8, random.Alphanumeric)
}

func (s *checkoutService) CreateOrder(ctx context.Context, caller common.Caller, planType string) (*models.CheckoutOrder, error) {
	email := common.NormalizeEmail(caller.Email)
	if email == "" {
		return nil, common.NewError(common.KindAuth, "Authentication required")
	}

	plan, ok := LookupPlan(planType)
	if !ok {
		return nil, common.ValidationError("planType", "plan type must be monthly or yearly")
	}

	if !s.configured {
		return nil, common.NewError(common.KindConfig, "Payment gateway is not configured")
	}

	limited, err := s.cache.IsRateLimited(ctx, "checkout:"+caller.UserID.String(), checkoutRateLimit, checkoutRateWindow)
	if err != nil {
		s.logger.Warn("checkout rate limiter unavailable", zap.Error(err))
	} else if limited {
		return nil, common.NewError(common.KindRateLimited, "Too many checkout attempts. Please wait a few minutes.")
	}

	receipt := NewReceipt(s.now())
	order, err := s.gateway.CreateOrder(ctx, OrderRequest{
		Amount:   plan.Amount,
		Currency: plan.Currency,
		Receipt:  receipt,
		Notes: Notes{
			"user_id":    caller.UserID.String(),
			"user_email": email,
			"plan_type":  plan.Type,
			"product":    "InvoMitra Pro",
		},
	})
	if err != nil {
		s.logger.Error("gateway order creation failed",
			zap.String("plan_type", plan.Type),
			zap.String("receipt", receipt),
			zap.Error(err))
		return nil, gatewayFailure(err, "create order")
	}

	userID := caller.UserID
	if err := s.subscribers.EnsurePending(ctx, email, &userID); err != nil {
		s.logger.Warn("failed to upsert pending subscriber", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.logger.Info("checkout order created",
		zap.String("order_id", order.ID),
		zap.String("plan_type", plan.Type),
		zap.Int64("amount", order.Amount))

	return &models.CheckoutOrder{
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		KeyID:     s.gateway.KeyID(),
		PlanType:  plan.Type,
		UserEmail: email,
		UserName:  caller.Name,
	}, nil
}
