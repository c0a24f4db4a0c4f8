package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"invomitra/internal/analytics"
	"invomitra/internal/common"
)

// AnalyticsHandlers serves the dashboard and earnings history.
type AnalyticsHandlers struct {
	analytics analytics.AnalyticsService
	now       func() time.Time
}

func NewAnalyticsHandlers(svc analytics.AnalyticsService) *AnalyticsHandlers {
	return &AnalyticsHandlers{analytics: svc, now: time.Now}
}

type dashboardResponse struct {
	Stats        *analytics.Summary          `json:"stats"`
	Subscription *common.SubscriptionContext `json:"subscription,omitempty"`
}

// Dashboard handles GET /v1/dashboard
func (h *AnalyticsHandlers) Dashboard(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	summary, err := h.analytics.Summary(c.Request().Context(), caller.UserID)
	if err != nil {
		return common.SendAppError(c, err)
	}

	resp := dashboardResponse{Stats: summary}
	if sub, ok := common.GetSubscriptionFromContext(c.Request().Context()); ok {
		resp.Subscription = &sub
	}
	return c.JSON(http.StatusOK, resp)
}

// History handles GET /v1/history?year=
func (h *AnalyticsHandlers) History(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}

	year := h.now().UTC().Year()
	if raw := c.QueryParam("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil {
			return common.SendAppError(c, common.ValidationError("year", "must be a four digit year"))
		}
	}

	history, err := h.analytics.MonthlyEarnings(c.Request().Context(), caller.UserID, year)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}
