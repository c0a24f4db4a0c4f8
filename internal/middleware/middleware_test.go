package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/config"
	"invomitra/internal/services"
	"invomitra/testhelpers"
)

const testSecret = "session_secret_for_tests"

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

func newAuth(t *testing.T) services.AuthService {
	t.Helper()
	auth, err := services.NewAuthService(config.Auth{JWTSecret: testSecret}, zap.NewNop())
	require.NoError(t, err)
	return auth
}

func callerEcho(t *testing.T, mws ...echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	e := echo.New()
	g := e.Group("", mws...)
	g.GET("/me", func(c echo.Context) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		sub, _ := common.GetSubscriptionFromContext(c.Request().Context())
		return c.JSON(http.StatusOK, map[string]interface{}{
			"user_id":    caller.UserID.String(),
			"email":      caller.Email,
			"subscribed": sub.Subscribed,
		})
	})
	return e
}

func get(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestSessionAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	e := callerEcho(t, SessionAuth(newAuth(t), zap.NewNop()))

	rec := get(e, testhelpers.SessionToken(t, testSecret, userID, "User@Example.com"))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, userID.String(), body["user_id"])
	assert.Equal(t, "user@example.com", body["email"])
}

func TestSessionAuth_Rejections(t *testing.T) {
	e := callerEcho(t, SessionAuth(newAuth(t), zap.NewNop()))

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.New().String(), "email": "a@example.com", "exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.New().String(), "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-42", "email": "a@example.com", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.New().String(), "email": "a@example.com",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tokens := map[string]string{
		"missing":      "",
		"no expiry":    noExpiry,
		"garbage":      "not.a.token",
		"wrong secret": testhelpers.SessionToken(t, "other_secret", uuid.New(), "a@example.com"),
		"expired":      expired,
		"no email":     noEmail,
		"bad subject":  badSubject,
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			rec := get(e, token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, string(common.KindAuth), errorCode(t, rec))
		})
	}
}

func TestSessionAuth_IssuerMismatch(t *testing.T) {
	auth, err := services.NewAuthService(config.Auth{JWTSecret: testSecret, Issuer: "https://auth.invomitra.test"}, zap.NewNop())
	require.NoError(t, err)
	e := callerEcho(t, SessionAuth(auth, zap.NewNop()))

	rec := get(e, testhelpers.SessionToken(t, testSecret, uuid.New(), "a@example.com"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubscriptionGate(t *testing.T) {
	userID := uuid.New()
	token := testhelpers.SessionToken(t, testSecret, userID, "user@example.com")

	tests := []struct {
		name    string
		enforce bool
		status  common.SubscriptionContext
		err     error
		code    int
	}{
		{"active passes", true, common.SubscriptionContext{Subscribed: true}, nil, http.StatusOK},
		{"inactive blocked", true, common.SubscriptionContext{}, nil, http.StatusForbidden},
		{"lookup failure blocked", true, common.SubscriptionContext{}, common.NewError(common.KindPersistence, "db"), http.StatusInternalServerError},
		{"gate off lets inactive through", false, common.SubscriptionContext{}, nil, http.StatusOK},
		{"gate off ignores lookup failure", false, common.SubscriptionContext{}, errors.New("db"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &MockSubscriptionService{}
			subs.On("Status", mock.Anything, mock.MatchedBy(func(c common.Caller) bool { return c.UserID == userID })).
				Return(tt.status, tt.err).Once()
			gate := NewSubscriptionGate(subs, tt.enforce, zap.NewNop())
			e := callerEcho(t, SessionAuth(newAuth(t), zap.NewNop()), gate.RequireSubscription())

			rec := get(e, token)

			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusForbidden {
				assert.Equal(t, string(common.KindForbidden), errorCode(t, rec))
			}
			subs.AssertExpectations(t)
		})
	}
}

func TestSubscriptionGate_RequiresCaller(t *testing.T) {
	gate := NewSubscriptionGate(&MockSubscriptionService{}, true, zap.NewNop())
	e := callerEcho(t, gate.RequireSubscription())

	rec := get(e, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentsEnabled(t *testing.T) {
	off := callerEcho(t, PaymentsEnabled(false))
	rec := get(off, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(common.KindUnavailable), errorCode(t, rec))

	on := callerEcho(t, PaymentsEnabled(true))
	assert.Equal(t, http.StatusTeapot, get(on, "").Code)
}

func TestAPIVersionResolver(t *testing.T) {
	vm := NewVersionMiddleware()
	e := echo.New()
	e.Use(vm.APIVersionResolver())
	v1 := e.Group("/v1", vm.VersionHeader("v1"))
	v1.GET("/plans", func(c echo.Context) error { return c.String(http.StatusOK, c.Get("api_version").(string)) })
	e.GET("/v2/plans", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/plans", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Body.String())
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/plans", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, "v3", extractVersionFromPath("/v3/x"))
	assert.Equal(t, "", extractVersionFromPath("/health"))
	assert.Equal(t, "", extractVersionFromPath("/vendors"))
}
