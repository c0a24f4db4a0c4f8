package services

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"invomitra/internal/common"
)

type MockRazorpayService struct {
	mock.Mock
}

func (m *MockRazorpayService) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GatewayOrder), args.Error(1)
}

func (m *MockRazorpayService) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GatewayPayment), args.Error(1)
}

func (m *MockRazorpayService) KeyID() string {
	return m.Called().String(0)
}

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Status(ctx context.Context, caller common.Caller) (common.SubscriptionContext, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).(common.SubscriptionContext), args.Error(1)
}

func (m *MockSubscriptionService) Invalidate(ctx context.Context, email string) {
	m.Called(ctx, email)
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) UploadDocument(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, size, contentType)
	return args.Error(0)
}

func (m *MockDocumentStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) DeleteDocument(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

func (m *MockDocumentStore) EnsureBucket(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDocumentStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendInvoice(ctx context.Context, msg InvoiceEmail) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}
