package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/testhelpers"
)

const testWebhookSecret = "whsec_for_tests"

type WebhookServiceTestSuite struct {
	suite.Suite
	subscribers   *testhelpers.MockSubscriberRepository
	events        *testhelpers.MockWebhookEventRepository
	subscriptions *MockSubscriptionService
	service       *webhookService
	now           time.Time
}

func (suite *WebhookServiceTestSuite) SetupTest() {
	suite.subscribers = &testhelpers.MockSubscriberRepository{}
	suite.events = &testhelpers.MockWebhookEventRepository{}
	suite.subscriptions = &MockSubscriptionService{}
	suite.now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	suite.service = NewWebhookService(testWebhookSecret, suite.subscribers, suite.events, suite.subscriptions, zap.NewNop()).(*webhookService)
	suite.service.now = func() time.Time { return suite.now }
	suite.service.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	suite.subscribers.Test(suite.T())
	suite.events.Test(suite.T())
	suite.subscriptions.Test(suite.T())
}

func (suite *WebhookServiceTestSuite) TearDownTest() {
	suite.subscribers.AssertExpectations(suite.T())
	suite.events.AssertExpectations(suite.T())
	suite.subscriptions.AssertExpectations(suite.T())
}

func TestWebhookServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookServiceTestSuite))
}

func webhookBody(t *testing.T, event string, payment map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"entity": "event",
		"event":  event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{"entity": payment},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func (suite *WebhookServiceTestSuite) capturedBody(payment map[string]interface{}) []byte {
	base := map[string]interface{}{
		"id":     "pay_1",
		"amount": 9900,
		"status": "captured",
		"email":  "Payer@Example.com",
	}
	for k, v := range payment {
		base[k] = v
	}
	return webhookBody(suite.T(), EventPaymentCaptured, base)
}

func (suite *WebhookServiceTestSuite) TestCaptured_Processed() {
	userID := uuid.New()
	body := suite.capturedBody(map[string]interface{}{
		"amount": 99900,
		"notes":  map[string]interface{}{"user_id": userID.String()},
	})
	suite.events.On("Exists", mock.Anything, "evt_1").Return(false, nil).Once()
	suite.subscribers.On("Activate", mock.Anything, mock.MatchedBy(func(a models.Activation) bool {
		return a.Email == "payer@example.com" &&
			a.Tier == models.TierProYearly &&
			a.SubscriptionEnd.Equal(suite.now.Add(365*24*time.Hour)) &&
			a.UserID != nil && *a.UserID == userID
	})).Return(&models.Subscriber{}, nil).Once()
	suite.events.On("MarkProcessed", mock.Anything, mock.MatchedBy(func(e *models.WebhookEvent) bool {
		return e.EventID == "evt_1" && e.EventType == EventPaymentCaptured && *e.PaymentID == "pay_1"
	})).Return(nil).Once()
	suite.subscriptions.On("Invalidate", mock.Anything, "payer@example.com").Once()

	result, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_1")

	suite.Require().NoError(err)
	suite.Equal(WebhookProcessed, result.Status)
	suite.Equal("evt_1", result.EventID)
}

func (suite *WebhookServiceTestSuite) TestCaptured_EmailFromNotes() {
	body := suite.capturedBody(map[string]interface{}{
		"email": "",
		"notes": map[string]interface{}{"user_email": "notes@example.com", "user_id": "not-a-uuid"},
	})
	suite.events.On("Exists", mock.Anything, "evt_2").Return(false, nil).Once()
	suite.subscribers.On("Activate", mock.Anything, mock.MatchedBy(func(a models.Activation) bool {
		return a.Email == "notes@example.com" && a.UserID == nil && a.Tier == models.TierProMonthly
	})).Return(&models.Subscriber{}, nil).Once()
	suite.events.On("MarkProcessed", mock.Anything, mock.Anything).Return(nil).Once()
	suite.subscriptions.On("Invalidate", mock.Anything, "notes@example.com").Once()

	result, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_2")

	suite.Require().NoError(err)
	suite.Equal(WebhookProcessed, result.Status)
}

func (suite *WebhookServiceTestSuite) TestCaptured_NoEmail() {
	body := suite.capturedBody(map[string]interface{}{"email": "", "notes": []interface{}{}})

	_, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_3")

	suite.True(common.IsKind(err, common.KindValidation))
}

func (suite *WebhookServiceTestSuite) TestDuplicateDelivery() {
	body := suite.capturedBody(nil)
	suite.events.On("Exists", mock.Anything, "evt_1").Return(true, nil).Once()

	result, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_1")

	suite.Require().NoError(err)
	suite.Equal(WebhookDuplicate, result.Status)
	suite.subscribers.AssertNotCalled(suite.T(), "Activate", mock.Anything, mock.Anything)
}

func (suite *WebhookServiceTestSuite) TestEventIDFallback() {
	body := suite.capturedBody(nil)
	suite.events.On("Exists", mock.Anything, "pay_1:payment.captured").Return(true, nil).Once()

	result, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "")

	suite.Require().NoError(err)
	suite.Equal("pay_1:payment.captured", result.EventID)
}

func (suite *WebhookServiceTestSuite) TestIgnoredEvents() {
	for _, event := range []string{"payment.failed", "order.paid", "refund.created"} {
		body := webhookBody(suite.T(), event, map[string]interface{}{"id": "pay_1", "email": "payer@example.com"})

		result, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_x")

		suite.Require().NoError(err)
		suite.Equal(WebhookIgnored, result.Status, event)
		suite.Equal(event, result.Event)
	}
}

func (suite *WebhookServiceTestSuite) TestSignatureMismatch() {
	body := suite.capturedBody(nil)
	signature := SignWebhook(body, testWebhookSecret)

	mutated := append([]byte{}, body...)
	mutated[len(mutated)-2] ^= 0x01

	_, err := suite.service.HandleWebhook(context.Background(), mutated, signature, "evt_1")
	suite.True(common.IsKind(err, common.KindSignature))

	_, err = suite.service.HandleWebhook(context.Background(), body, "", "evt_1")
	suite.True(common.IsKind(err, common.KindSignature))

	_, err = suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, "wrong"), "evt_1")
	suite.True(common.IsKind(err, common.KindSignature))
}

func (suite *WebhookServiceTestSuite) TestMissingSecret() {
	suite.service.secret = ""
	body := suite.capturedBody(nil)

	_, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, ""), "evt_1")

	suite.True(common.IsKind(err, common.KindConfig))
}

func (suite *WebhookServiceTestSuite) TestInvalidJSON() {
	body := []byte(`{"event":`)

	_, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_1")

	suite.True(common.IsKind(err, common.KindValidation))
}

func (suite *WebhookServiceTestSuite) TestActivationRetriedThenSucceeds() {
	body := suite.capturedBody(nil)
	suite.events.On("Exists", mock.Anything, "evt_1").Return(false, nil).Once()
	suite.subscribers.On("Activate", mock.Anything, mock.Anything).Return(nil, errors.New("deadlock")).Twice()
	suite.subscribers.On("Activate", mock.Anything, mock.Anything).Return(&models.Subscriber{}, nil).Once()
	suite.events.On("MarkProcessed", mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()
	suite.subscriptions.On("Invalidate", mock.Anything, "payer@example.com").Once()

	result, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_1")

	suite.Require().NoError(err)
	suite.Equal(WebhookProcessed, result.Status)
	suite.subscribers.AssertNumberOfCalls(suite.T(), "Activate", 3)
}

func (suite *WebhookServiceTestSuite) TestActivationExhaustsRetries() {
	body := suite.capturedBody(nil)
	suite.events.On("Exists", mock.Anything, "evt_1").Return(false, nil).Once()
	suite.subscribers.On("Activate", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Times(webhookUpsertAttempts)

	_, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_1")

	suite.True(common.IsKind(err, common.KindPersistence))
	suite.events.AssertNotCalled(suite.T(), "MarkProcessed", mock.Anything, mock.Anything)
}

func (suite *WebhookServiceTestSuite) TestEventLogUnavailable() {
	body := suite.capturedBody(nil)
	suite.events.On("Exists", mock.Anything, "evt_1").Return(false, errors.New("timeout")).Once()

	_, err := suite.service.HandleWebhook(context.Background(), body, SignWebhook(body, testWebhookSecret), "evt_1")

	suite.True(common.IsKind(err, common.KindPersistence))
}
