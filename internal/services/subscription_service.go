package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"invomitra/internal/caching"
	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/repositories"
)

const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"

	// YearlyAmountThreshold is the captured amount, in paise, from which a
	// payment counts as the yearly plan.
	YearlyAmountThreshold int64 = 99900

	subscriberCacheTTL = time.Minute
)

// Predefined plans
var availablePlans = map[string]models.Plan{
	PlanMonthly: {Type: PlanMonthly, Name: models.TierProMonthly, Amount: 9900, Currency: "INR", Days: 30},
	PlanYearly:  {Type: PlanYearly, Name: models.TierProYearly, Amount: 99900, Currency: "INR", Days: 365},
}

// LookupPlan returns the plan for a plan type.
func LookupPlan(planType string) (models.Plan, bool) {
	plan, ok := availablePlans[planType]
	return plan, ok
}

// PlanForAmount derives the plan purely from a captured amount.
func PlanForAmount(amount int64) models.Plan {
	if amount >= YearlyAmountThreshold {
		return availablePlans[PlanYearly]
	}
	return availablePlans[PlanMonthly]
}

// AvailablePlans lists plans, cheapest first.
func AvailablePlans() []models.Plan {
	plans := make([]models.Plan, 0, len(availablePlans))
	for _, p := range availablePlans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Amount < plans[j].Amount })
	return plans
}

// SubscriptionService resolves a caller's subscription state.
type SubscriptionService interface {
	Status(ctx context.Context, caller common.Caller) (common.SubscriptionContext, error)
	Invalidate(ctx context.Context, email string)
}

type subscriptionService struct {
	subscribers repositories.SubscriberRepository
	cache       caching.CacheService
	logger      *zap.Logger
	now         func() time.Time
}

func NewSubscriptionService(subscribers repositories.SubscriberRepository, cache caching.CacheService, logger *zap.Logger) SubscriptionService {
	return &subscriptionService{
		subscribers: subscribers,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

// Status returns the caller's subscription, computing "subscribed" at read
// time. A caller without a record gets an unsubscribed placeholder row.
func (s *subscriptionService) Status(ctx context.Context, caller common.Caller) (common.SubscriptionContext, error) {
	email := common.NormalizeEmail(caller.Email)
	if email == "" {
		return common.SubscriptionContext{}, common.NewError(common.KindAuth, "Session has no email address")
	}

	subscriber, err := s.lookup(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		userID := caller.UserID
		if err := s.subscribers.EnsurePending(ctx, email, &userID); err != nil {
			s.logger.Warn("failed to create subscriber placeholder", zap.String("email", email), zap.Error(err))
		}
		return common.SubscriptionContext{}, nil
	}
	if err != nil {
		return common.SubscriptionContext{}, common.WrapError(common.KindPersistence, "Failed to load subscription", err)
	}

	return common.SubscriptionContext{
		Subscribed:      subscriber.IsActive(s.now()),
		Tier:            subscriber.SubscriptionTier,
		SubscriptionEnd: subscriber.SubscriptionEnd,
		PaymentStatus:   subscriber.PaymentStatus,
	}, nil
}

func (s *subscriptionService) lookup(ctx context.Context, email string) (*models.Subscriber, error) {
	cached, err := s.cache.GetSubscriber(ctx, email)
	if err != nil {
		s.logger.Warn("subscriber cache read failed", zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	subscriber, err := s.subscribers.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetSubscriber(ctx, subscriber, subscriberCacheTTL); err != nil {
		s.logger.Warn("subscriber cache write failed", zap.Error(err))
	}
	return subscriber, nil
}

// Invalidate drops any cached state for email.
func (s *subscriptionService) Invalidate(ctx context.Context, email string) {
	if err := s.cache.DeleteSubscriber(ctx, common.NormalizeEmail(email)); err != nil {
		s.logger.Warn("subscriber cache invalidation failed", zap.Error(err))
	}
}
