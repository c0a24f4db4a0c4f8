package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/invomitra")
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Address())
	assert.Equal(t, "https://api.razorpay.com/v1", cfg.Razorpay.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Razorpay.Timeout)
	assert.Equal(t, "invoices", cfg.Minio.Bucket)
	assert.True(t, cfg.Features.SubscriptionGate)
	assert.True(t, cfg.Features.Payments)
	assert.Equal(t, time.Hour, cfg.Jobs.OverdueInterval)
	assert.False(t, cfg.Razorpay.Configured())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/invomitra")
	t.Setenv("AUTH_JWKS_URL", "https://auth.example.com/.well-known/jwks.json")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "shh")
	t.Setenv("RAZORPAY_TIMEOUT", "10s")
	t.Setenv("FEATURE_PAYMENTS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Razorpay.Configured())
	assert.Equal(t, 10*time.Second, cfg.Razorpay.Timeout)
	assert.False(t, cfg.Features.Payments)
}

func TestLoad_RequiresSessionVerifier(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/invomitra")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_JWKS_URL", "")

	_, err := Load()
	assert.Error(t, err)
}
