package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"invomitra/internal/caching"
	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/repositories"
	"invomitra/internal/tax"
)

const cacheTTL = 2 * time.Minute

var hundred = decimal.NewFromInt(100)

// AnalyticsService computes dashboard and history figures from invoices.
type AnalyticsService interface {
	Summary(ctx context.Context, userID uuid.UUID) (*Summary, error)
	MonthlyEarnings(ctx context.Context, userID uuid.UUID, year int) (*History, error)
}

// Summary is the dashboard view of a user's invoices.
type Summary struct {
	TotalEarnings        decimal.Decimal `json:"total_earnings"`
	TotalInvoices        int64           `json:"total_invoices"`
	PendingInvoices      int64           `json:"pending_invoices"`
	OverdueInvoices      int64           `json:"overdue_invoices"`
	GSTCollected         decimal.Decimal `json:"gst_collected"`
	CurrentMonthEarnings decimal.Decimal `json:"current_month_earnings"`
	LastMonthEarnings    decimal.Decimal `json:"last_month_earnings"`
	MonthlyGrowth        decimal.Decimal `json:"monthly_growth"`
	Currency             string          `json:"currency"`
	LastUpdated          time.Time       `json:"last_updated"`
}

// MonthEarnings is one calendar month of the history view.
type MonthEarnings struct {
	Month               int             `json:"month"`
	Name                string          `json:"name"`
	TotalEarnings       decimal.Decimal `json:"total_earnings"`
	PaidEarnings        decimal.Decimal `json:"paid_earnings"`
	TotalInvoices       int64           `json:"total_invoices"`
	PaidInvoices        int64           `json:"paid_invoices"`
	PendingInvoices     int64           `json:"pending_invoices"`
	OverdueInvoices     int64           `json:"overdue_invoices"`
	AverageInvoiceValue decimal.Decimal `json:"average_invoice_value"`
	Growth              decimal.Decimal `json:"growth"`
}

// History holds all twelve months of a year, January first.
type History struct {
	Year        int             `json:"year"`
	Currency    string          `json:"currency"`
	Months      []MonthEarnings `json:"months"`
	LastUpdated time.Time       `json:"last_updated"`
}

type analyticsService struct {
	invoices repositories.InvoiceRepository
	cache    caching.CacheService
	logger   *zap.Logger
	now      func() time.Time
}

func NewAnalyticsService(invoices repositories.InvoiceRepository, cache caching.CacheService, logger *zap.Logger) AnalyticsService {
	return &analyticsService{
		invoices: invoices,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

func summaryKey(userID uuid.UUID, monthStart time.Time) string {
	return fmt.Sprintf("summary:%s:%s", userID, monthStart.Format("2006-01"))
}

func historyKey(userID uuid.UUID, year int) string {
	return fmt.Sprintf("history:%s:%d", userID, year)
}

// Summary totals paid earnings and open invoices, and compares this
// month's paid earnings with last month's.
func (a *analyticsService) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	now := a.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	key := summaryKey(userID, monthStart)

	var cached Summary
	if a.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := a.invoices.Stats(ctx, userID, monthStart)
	if err != nil {
		return nil, common.WrapError(common.KindPersistence, "Failed to load invoice statistics", err)
	}

	summary := &Summary{
		TotalEarnings:        stats.PaidEarnings,
		TotalInvoices:        stats.TotalInvoices,
		PendingInvoices:      stats.PendingInvoices,
		OverdueInvoices:      stats.OverdueInvoices,
		GSTCollected:         stats.GSTCollected,
		CurrentMonthEarnings: stats.CurrentMonthEarnings,
		LastMonthEarnings:    stats.LastMonthEarnings,
		MonthlyGrowth:        growth(stats.CurrentMonthEarnings, stats.LastMonthEarnings),
		Currency:             tax.DefaultCurrency,
		LastUpdated:          now,
	}
	if stats.TopCurrency != nil && *stats.TopCurrency != "" {
		summary.Currency = *stats.TopCurrency
	}

	a.store(ctx, key, summary)
	return summary, nil
}

// MonthlyEarnings returns every month of year by invoice creation date.
// Growth compares paid earnings with the closest earlier month that had any.
func (a *analyticsService) MonthlyEarnings(ctx context.Context, userID uuid.UUID, year int) (*History, error) {
	if year < 1970 || year > 9999 {
		return nil, common.ValidationError("year", "must be between 1970 and 9999")
	}
	key := historyKey(userID, year)

	var cached History
	if a.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	rows, err := a.invoices.MonthlyStats(ctx, userID, from, to)
	if err != nil {
		return nil, common.WrapError(common.KindPersistence, "Failed to load monthly statistics", err)
	}
	currency, err := a.invoices.TopCurrency(ctx, userID, from, to)
	if err != nil {
		return nil, common.WrapError(common.KindPersistence, "Failed to load monthly statistics", err)
	}
	if currency == "" {
		currency = tax.DefaultCurrency
	}

	byMonth := make(map[int]models.MonthlyInvoiceStats, len(rows))
	for _, row := range rows {
		byMonth[row.Month] = row
	}

	history := &History{
		Year:        year,
		Currency:    currency,
		Months:      make([]MonthEarnings, 0, 12),
		LastUpdated: a.now().UTC(),
	}
	previousPaid := decimal.Zero
	for m := 1; m <= 12; m++ {
		row := byMonth[m]
		month := MonthEarnings{
			Month:               m,
			Name:                time.Month(m).String(),
			TotalEarnings:       row.TotalEarnings,
			PaidEarnings:        row.PaidEarnings,
			TotalInvoices:       row.TotalInvoices,
			PaidInvoices:        row.PaidInvoices,
			PendingInvoices:     row.PendingInvoices,
			OverdueInvoices:     row.OverdueInvoices,
			AverageInvoiceValue: decimal.Zero,
			Growth:              growth(row.PaidEarnings, previousPaid),
		}
		if row.TotalInvoices > 0 {
			month.AverageInvoiceValue = row.TotalEarnings.DivRound(decimal.NewFromInt(row.TotalInvoices), 2)
		}
		if row.PaidEarnings.IsPositive() {
			previousPaid = row.PaidEarnings
		}
		history.Months = append(history.Months, month)
	}

	a.store(ctx, key, history)
	return history, nil
}

// growth is the percentage change from previous to current, to one
// decimal place. It is zero when there is nothing to compare against.
func growth(current, previous decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return current.Sub(previous).Mul(hundred).DivRound(previous, 1)
}

func (a *analyticsService) lookup(ctx context.Context, key string, dst interface{}) bool {
	hit, err := a.cache.GetAnalytics(ctx, key, dst)
	if err != nil {
		a.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (a *analyticsService) store(ctx context.Context, key string, value interface{}) {
	if err := a.cache.SetAnalytics(ctx, key, value, cacheTTL); err != nil {
		a.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}
