package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/testhelpers"
)

type CheckoutServiceTestSuite struct {
	suite.Suite
	gateway     *MockRazorpayService
	subscribers *testhelpers.MockSubscriberRepository
	cache       *testhelpers.MockCacheService
	service     CheckoutService
	caller      common.Caller
}

func (suite *CheckoutServiceTestSuite) SetupTest() {
	suite.gateway = &MockRazorpayService{}
	suite.subscribers = &testhelpers.MockSubscriberRepository{}
	suite.cache = &testhelpers.MockCacheService{}
	suite.service = NewCheckoutService(suite.gateway, suite.subscribers, suite.cache, true, zap.NewNop())
	suite.caller = common.Caller{UserID: uuid.New(), Email: "Payer@Example.com", Name: "Payer"}

	suite.gateway.Test(suite.T())
	suite.subscribers.Test(suite.T())
	suite.cache.Test(suite.T())
}

func (suite *CheckoutServiceTestSuite) TearDownTest() {
	suite.gateway.AssertExpectations(suite.T())
	suite.subscribers.AssertExpectations(suite.T())
	suite.cache.AssertExpectations(suite.T())
}

func TestCheckoutServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}

func (suite *CheckoutServiceTestSuite) expectOrder(amount int64) {
	suite.cache.On("IsRateLimited", mock.Anything, "checkout:"+suite.caller.UserID.String(), checkoutRateLimit, checkoutRateWindow).
		Return(false, nil).Once()
	suite.gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req OrderRequest) bool {
		return req.Amount == amount && req.Currency == "INR" &&
			req.Notes["user_email"] == "payer@example.com" &&
			req.Notes["user_id"] == suite.caller.UserID.String() &&
			len(req.Receipt) <= MaxReceiptLength
	})).Return(&GatewayOrder{ID: "order_123", Amount: amount, Currency: "INR"}, nil).Once()
	suite.gateway.On("KeyID").Return("rzp_test_key").Once()
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_Monthly() {
	suite.expectOrder(9900)
	suite.subscribers.On("EnsurePending", mock.Anything, "payer@example.com", mock.AnythingOfType("*uuid.UUID")).Return(nil).Once()

	order, err := suite.service.CreateOrder(context.Background(), suite.caller, PlanMonthly)

	suite.Require().NoError(err)
	suite.Equal("order_123", order.OrderID)
	suite.Equal(int64(9900), order.Amount)
	suite.Equal("INR", order.Currency)
	suite.Equal("rzp_test_key", order.KeyID)
	suite.Equal(PlanMonthly, order.PlanType)
	suite.Equal("payer@example.com", order.UserEmail)
	suite.Equal("Payer", order.UserName)
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_Yearly() {
	suite.expectOrder(99900)
	suite.subscribers.On("EnsurePending", mock.Anything, "payer@example.com", mock.Anything).Return(nil).Once()

	order, err := suite.service.CreateOrder(context.Background(), suite.caller, PlanYearly)

	suite.Require().NoError(err)
	suite.Equal(int64(99900), order.Amount)
	suite.Equal(PlanYearly, order.PlanType)
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_PendingUpsertFailureIsNotFatal() {
	suite.expectOrder(9900)
	suite.subscribers.On("EnsurePending", mock.Anything, "payer@example.com", mock.Anything).Return(errors.New("db down")).Once()

	order, err := suite.service.CreateOrder(context.Background(), suite.caller, PlanMonthly)

	suite.Require().NoError(err)
	suite.Equal("order_123", order.OrderID)
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_InvalidPlan() {
	order, err := suite.service.CreateOrder(context.Background(), suite.caller, "weekly")

	suite.Nil(order)
	suite.True(common.IsKind(err, common.KindValidation))
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_NoEmail() {
	suite.caller.Email = "  "
	_, err := suite.service.CreateOrder(context.Background(), suite.caller, PlanMonthly)

	suite.True(common.IsKind(err, common.KindAuth))
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_GatewayNotConfigured() {
	service := NewCheckoutService(suite.gateway, suite.subscribers, suite.cache, false, zap.NewNop())

	_, err := service.CreateOrder(context.Background(), suite.caller, PlanMonthly)

	suite.True(common.IsKind(err, common.KindConfig))
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_RateLimited() {
	suite.cache.On("IsRateLimited", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()

	_, err := suite.service.CreateOrder(context.Background(), suite.caller, PlanMonthly)

	suite.True(common.IsKind(err, common.KindRateLimited))
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_GatewayBadRequest() {
	suite.cache.On("IsRateLimited", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
	gerr := parseGatewayError(400, []byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount invalid"}}`))
	suite.gateway.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, gerr).Once()

	_, err := suite.service.CreateOrder(context.Background(), suite.caller, PlanMonthly)

	appErr, ok := common.AsAppError(err)
	suite.Require().True(ok)
	suite.Equal(common.KindGatewayRejected, appErr.Kind)
	suite.Equal(common.ReasonInvalidDetails, appErr.Reason)
	suite.Equal("bad_request", appErr.Details["gateway_class"])
}

func (suite *CheckoutServiceTestSuite) TestCreateOrder_GatewayUnreachable() {
	suite.cache.On("IsRateLimited", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()
	suite.gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, &GatewayError{Class: GatewayConnection, Err: errors.New("dial tcp")}).Once()

	_, err := suite.service.CreateOrder(context.Background(), suite.caller, PlanMonthly)

	appErr, ok := common.AsAppError(err)
	suite.Require().True(ok)
	suite.Equal(common.KindGatewayUnavailable, appErr.Kind)
	suite.True(appErr.Retryable())
}

func TestNewReceipt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		receipt := NewReceipt(now)
		if len(receipt) > MaxReceiptLength {
			t.Fatalf("receipt %q is %d chars", receipt, len(receipt))
		}
		if !strings.HasPrefix(receipt, "rcpt_") {
			t.Fatalf("receipt %q has no prefix", receipt)
		}
		if seen[receipt] {
			t.Fatalf("duplicate receipt %q", receipt)
		}
		seen[receipt] = true
	}
}
