package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/config"
)

// SessionClaims are the claims read from a session token issued by the
// identity provider.
type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthService validates session tokens. Tokens are issued elsewhere.
type AuthService interface {
	Keyfunc(token *jwt.Token) (interface{}, error)
	ParserOptions() []jwt.ParserOption
	Caller(claims *SessionClaims) (common.Caller, error)
	Close()
}

type authService struct {
	secret  []byte
	jwks    *keyfunc.JWKS
	issuer  string
	methods []string
	logger  *zap.Logger
}

// NewAuthService verifies tokens against the JWKS endpoint when one is
// configured, otherwise against the shared HMAC secret.
func NewAuthService(cfg config.Auth, logger *zap.Logger) (AuthService, error) {
	s := &authService{issuer: cfg.Issuer, logger: logger}
	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Warn("jwks refresh failed", zap.Error(err))
			},
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to load jwks")
		}
		s.jwks = jwks
		s.methods = []string{"RS256", "ES256"}
		return s, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("either AUTH_JWT_SECRET or AUTH_JWKS_URL must be set")
	}
	s.secret = []byte(cfg.JWTSecret)
	s.methods = []string{"HS256"}
	return s, nil
}

func (s *authService) Keyfunc(token *jwt.Token) (interface{}, error) {
	if s.jwks != nil {
		return s.jwks.Keyfunc(token)
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return s.secret, nil
}

// ParserOptions require a signed, unexpired token from the configured issuer.
func (s *authService) ParserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(s.methods),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	return opts
}

// Caller extracts the request identity. Sessions without a user id or an
// email are rejected since the subscriber record is keyed by email.
func (s *authService) Caller(claims *SessionClaims) (common.Caller, error) {
	if claims == nil {
		return common.Caller{}, errors.New("missing claims")
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return common.Caller{}, errors.New("unexpected token issuer")
	}
	userID, err := uuid.Parse(strings.TrimSpace(claims.Subject))
	if err != nil {
		return common.Caller{}, errors.Wrap(err, "invalid subject")
	}
	email := common.NormalizeEmail(claims.Email)
	if email == "" {
		return common.Caller{}, errors.New("session has no email")
	}
	return common.Caller{UserID: userID, Email: email, Name: claims.Name}, nil
}

func (s *authService) Close() {
	if s.jwks != nil {
		s.jwks.EndBackground()
	}
}
