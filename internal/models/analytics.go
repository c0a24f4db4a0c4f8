package models

import "github.com/shopspring/decimal"

// InvoiceStats are all-time aggregates over a user's invoices. Earnings
// count paid invoices only.
type InvoiceStats struct {
	TotalInvoices        int64
	PendingInvoices      int64
	OverdueInvoices      int64
	PaidEarnings         decimal.Decimal
	GSTCollected         decimal.Decimal
	CurrentMonthEarnings decimal.Decimal
	LastMonthEarnings    decimal.Decimal
	// TopCurrency is the most used currency, nil without invoices.
	TopCurrency *string
}

// MonthlyInvoiceStats aggregates the invoices created in one calendar month.
type MonthlyInvoiceStats struct {
	Month           int
	TotalInvoices   int64
	PaidInvoices    int64
	PendingInvoices int64
	OverdueInvoices int64
	TotalEarnings   decimal.Decimal
	PaidEarnings    decimal.Decimal
}
