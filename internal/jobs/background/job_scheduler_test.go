package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockOverdueMarker struct {
	mock.Mock
}

func (m *MockOverdueMarker) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestNewJobScheduler_RegistersOverdueSweep(t *testing.T) {
	js, err := NewJobScheduler(&MockOverdueMarker{}, 0, zap.NewNop())
	require.NoError(t, err)
	defer js.Stop()

	assert.Equal(t, time.Hour, js.interval)
	assert.Equal(t, []string{"invoice-overdue-sweep"}, js.JobNames())
}

func TestMarkOverdueInvoices(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	marker := &MockOverdueMarker{}
	marker.On("MarkOverdue", mock.Anything, now).Return(int64(3), nil).Once()
	marker.On("MarkOverdue", mock.Anything, now).Return(int64(0), errors.New("connection reset")).Once()

	js, err := NewJobScheduler(marker, time.Hour, zap.NewNop())
	require.NoError(t, err)
	defer js.Stop()
	js.now = func() time.Time { return now }

	assert.NoError(t, js.markOverdueInvoices())
	assert.Error(t, js.markOverdueInvoices())
	marker.AssertExpectations(t)
}
