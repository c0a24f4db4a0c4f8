package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/services"
)

const tokenContextKey = "session_token"

// SessionAuth validates the bearer token and attaches the caller to the
// request context.
func SessionAuth(auth services.AuthService, logger *zap.Logger) echo.MiddlewareFunc {
	jwtMiddleware := echojwt.WithConfig(echojwt.Config{
		ContextKey: tokenContextKey,
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			token, err := jwt.ParseWithClaims(raw, &services.SessionClaims{}, auth.Keyfunc, auth.ParserOptions()...)
			if err != nil {
				return nil, err
			}
			return token, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Debug("session rejected", zap.Error(err))
			return common.SendUnauthorizedError(c, "Invalid or expired session")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return common.SendUnauthorizedError(c, "Invalid or expired session")
			}
			claims, _ := token.Claims.(*services.SessionClaims)
			caller, err := auth.Caller(claims)
			if err != nil {
				logger.Debug("session claims rejected", zap.Error(err))
				return common.SendUnauthorizedError(c, "Invalid or expired session")
			}

			ctx := common.WithCaller(c.Request().Context(), caller)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		})
	}
}

// CallerFrom returns the caller attached by SessionAuth.
func CallerFrom(c echo.Context) (common.Caller, bool) {
	return common.GetCallerFromContext(c.Request().Context())
}
