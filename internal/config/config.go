package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database

	Auth     Auth     `envPrefix:"AUTH_"`
	Razorpay Razorpay `envPrefix:"RAZORPAY_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Minio    Minio    `envPrefix:"MINIO_"`
	Resend   Resend   `envPrefix:"RESEND_"`
	Features Features `envPrefix:"FEATURE_"`
	Jobs     Jobs     `envPrefix:"JOBS_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

// IsProduction reports whether the service runs in production.
func (e Environment) IsProduction() bool {
	return e.Name == "production"
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host            string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"HTTP_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Address is the listen address.
func (h HTTPServer) Address() string {
	return h.Host + ":" + h.Port
}

type Database struct {
	URL string `env:"DATABASE_URL,required"`
}

// Auth configures verification of session tokens issued by the auth
// provider. Either a shared HMAC secret or a JWKS endpoint is required.
type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
	JWKSURL   string `env:"JWKS_URL"`
	Issuer    string `env:"ISSUER"`
}

type Razorpay struct {
	BaseURL       string        `env:"BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	KeyID         string        `env:"KEY_ID"`
	KeySecret     string        `env:"KEY_SECRET"`
	WebhookSecret string        `env:"WEBHOOK_SECRET"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// Configured reports whether order and payment calls can be made.
func (r Razorpay) Configured() bool {
	return r.KeyID != "" && r.KeySecret != ""
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type Minio struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	Bucket    string `env:"BUCKET" envDefault:"invoices"`
}

type Resend struct {
	APIKey    string `env:"API_KEY"`
	FromEmail string `env:"FROM_EMAIL" envDefault:"InvoMitra <invoices@invomitra.app>"`
}

// Features are deployment-time switches.
type Features struct {
	SubscriptionGate bool `env:"SUBSCRIPTION_GATE" envDefault:"true"`
	Payments         bool `env:"PAYMENTS" envDefault:"true"`
}

type Jobs struct {
	OverdueInterval time.Duration `env:"OVERDUE_INTERVAL" envDefault:"1h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" && cfg.Auth.JWKSURL == "" {
		return nil, fmt.Errorf("either AUTH_JWT_SECRET or AUTH_JWKS_URL must be set")
	}
	return cfg, nil
}
