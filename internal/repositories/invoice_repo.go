package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/tax"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	Update(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*models.Invoice, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	NextInvoiceNumber(ctx context.Context, userID uuid.UUID, issueDate time.Time) (string, error)

	// Aggregates for the dashboard and history views
	Stats(ctx context.Context, userID uuid.UUID, monthStart time.Time) (*models.InvoiceStats, error)
	MonthlyStats(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.MonthlyInvoiceStats, error)
	TopCurrency(ctx context.Context, userID uuid.UUID, from, to time.Time) (string, error)
}

type invoiceRepo struct {
	db DB
}

func NewInvoiceRepo(db DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

const invoiceColumns = `id, user_id, client_id, invoice_number, issue_date, due_date, currency, gst_type,
		cgst_rate, sgst_rate, igst_rate, subtotal, cgst_amount, sgst_amount, igst_amount, tax_amount,
		discount_amount, total, notes, place_of_supply, company_gstin, upi_id, payment_amount, payment_qr_code,
		status, client_name, client_email, client_phone, client_address, client_gstin, created_at, updated_at`

const itemColumns = `id, invoice_id, position, description, quantity, unit_price, hsn_sac_code,
		cgst_rate, sgst_rate, igst_rate, taxable_amount, cgst_amount, sgst_amount, igst_amount, total, created_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	inv := &models.Invoice{}
	var gstType string
	err := row.Scan(&inv.ID, &inv.UserID, &inv.ClientID, &inv.InvoiceNumber, &inv.IssueDate, &inv.DueDate,
		&inv.Currency, &gstType, &inv.CGSTRate, &inv.SGSTRate, &inv.IGSTRate, &inv.Subtotal,
		&inv.CGSTAmount, &inv.SGSTAmount, &inv.IGSTAmount, &inv.TaxAmount, &inv.DiscountAmount, &inv.Total,
		&inv.Notes, &inv.PlaceOfSupply, &inv.CompanyGSTIN, &inv.UPIID, &inv.PaymentAmount, &inv.PaymentQR,
		&inv.Status, &inv.Client.Name, &inv.Client.Email, &inv.Client.Phone, &inv.Client.Address,
		&inv.Client.GSTIN, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	inv.GSTType = tax.GSTType(gstType)
	return inv, nil
}

func (r *invoiceRepo) Create(ctx context.Context, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, NOW(), NOW())
	`
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, inv.ID, inv.UserID, inv.ClientID, inv.InvoiceNumber, inv.IssueDate,
			inv.DueDate, inv.Currency, string(inv.GSTType), inv.CGSTRate, inv.SGSTRate, inv.IGSTRate,
			inv.Subtotal, inv.CGSTAmount, inv.SGSTAmount, inv.IGSTAmount, inv.TaxAmount, inv.DiscountAmount,
			inv.Total, inv.Notes, inv.PlaceOfSupply, inv.CompanyGSTIN, inv.UPIID, inv.PaymentAmount,
			inv.PaymentQR, inv.Status, inv.Client.Name, inv.Client.Email, inv.Client.Phone,
			inv.Client.Address, inv.Client.GSTIN)
		if err != nil {
			return fmt.Errorf("failed to insert invoice: %w", translate(err))
		}
		return insertItems(ctx, tx, inv)
	})
}

// Update rewrites the invoice row and replaces all of its items.
func (r *invoiceRepo) Update(ctx context.Context, inv *models.Invoice) error {
	query := `
		UPDATE invoices SET
			client_id = $1, invoice_number = $2, issue_date = $3, due_date = $4, currency = $5, gst_type = $6,
			cgst_rate = $7, sgst_rate = $8, igst_rate = $9, subtotal = $10, cgst_amount = $11,
			sgst_amount = $12, igst_amount = $13, tax_amount = $14, discount_amount = $15, total = $16,
			notes = $17, place_of_supply = $18, company_gstin = $19, upi_id = $20, payment_amount = $21,
			payment_qr_code = $22, client_name = $23, client_email = $24, client_phone = $25,
			client_address = $26, client_gstin = $27, updated_at = NOW()
		WHERE user_id = $28 AND id = $29
	`
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, inv.ClientID, inv.InvoiceNumber, inv.IssueDate, inv.DueDate,
			inv.Currency, string(inv.GSTType), inv.CGSTRate, inv.SGSTRate, inv.IGSTRate, inv.Subtotal,
			inv.CGSTAmount, inv.SGSTAmount, inv.IGSTAmount, inv.TaxAmount, inv.DiscountAmount, inv.Total,
			inv.Notes, inv.PlaceOfSupply, inv.CompanyGSTIN, inv.UPIID, inv.PaymentAmount, inv.PaymentQR,
			inv.Client.Name, inv.Client.Email, inv.Client.Phone, inv.Client.Address, inv.Client.GSTIN,
			inv.UserID, inv.ID)
		if err != nil {
			return fmt.Errorf("failed to update invoice: %w", translate(err))
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return fmt.Errorf("failed to clear invoice items: %w", err)
		}
		return insertItems(ctx, tx, inv)
	})
}

func insertItems(ctx context.Context, tx pgx.Tx, inv *models.Invoice) error {
	query := `
		INSERT INTO invoice_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	`
	for i, item := range inv.Items {
		_, err := tx.Exec(ctx, query, item.ID, inv.ID, i, item.Description, item.Quantity, item.UnitPrice,
			item.HSNSACCode, item.CGSTRate, item.SGSTRate, item.IGSTRate, item.TaxableAmount,
			item.CGSTAmount, item.SGSTAmount, item.IGSTAmount, item.Total)
		if err != nil {
			return fmt.Errorf("failed to insert invoice item %d: %w", i, err)
		}
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1 AND id = $2`
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, userID, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &models.LineItem{}
		err := rows.Scan(&item.ID, &item.InvoiceID, &item.Position, &item.Description, &item.Quantity,
			&item.UnitPrice, &item.HSNSACCode, &item.CGSTRate, &item.SGSTRate, &item.IGSTRate,
			&item.TaxableAmount, &item.CGSTAmount, &item.SGSTAmount, &item.IGSTAmount, &item.Total,
			&item.CreatedAt)
		if err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// List returns invoice headers without items, newest first.
func (r *invoiceRepo) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY issue_date DESC, created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, userID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete invoice items: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE user_id = $1 AND id = $2`, userID, id)
		if err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) error {
	query := `UPDATE invoices SET status = $1, updated_at = NOW() WHERE user_id = $2 AND id = $3`
	tag, err := r.db.Exec(ctx, query, status, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOverdue moves pending invoices whose due date is before asOf to overdue.
func (r *invoiceRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE invoices SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date IS NOT NULL AND due_date < $3
	`
	tag, err := r.db.Exec(ctx, query, common.InvoiceStatusOverdue, common.InvoiceStatusPending, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	return tag.RowsAffected(), nil
}

// NextInvoiceNumber allocates the next per-user, per-year number.
func (r *invoiceRepo) NextInvoiceNumber(ctx context.Context, userID uuid.UUID, issueDate time.Time) (string, error) {
	year := issueDate.Year()
	query := `
		INSERT INTO invoice_sequences (user_id, year, last_number, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id, year)
		DO UPDATE SET last_number = invoice_sequences.last_number + 1, updated_at = NOW()
		RETURNING last_number
	`
	var next int
	if err := r.db.QueryRow(ctx, query, userID, year).Scan(&next); err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%d-%04d", year, next), nil
}

// Stats aggregates every invoice of the user. Month earnings cover the
// month starting at monthStart and the one before it.
func (r *invoiceRepo) Stats(ctx context.Context, userID uuid.UUID, monthStart time.Time) (*models.InvoiceStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COALESCE(SUM(total) FILTER (WHERE status = $2), 0),
			COALESCE(SUM(tax_amount) FILTER (WHERE status = $2), 0),
			COALESCE(SUM(total) FILTER (WHERE status = $2 AND created_at >= $5), 0),
			COALESCE(SUM(total) FILTER (WHERE status = $2 AND created_at >= $6 AND created_at < $5), 0),
			(SELECT currency FROM invoices WHERE user_id = $1
				GROUP BY currency ORDER BY COUNT(*) DESC, currency LIMIT 1)
		FROM invoices
		WHERE user_id = $1
	`
	stats := &models.InvoiceStats{}
	err := r.db.QueryRow(ctx, query, userID, common.InvoiceStatusPaid, common.InvoiceStatusPending,
		common.InvoiceStatusOverdue, monthStart, monthStart.AddDate(0, -1, 0)).
		Scan(&stats.TotalInvoices, &stats.PendingInvoices, &stats.OverdueInvoices, &stats.PaidEarnings,
			&stats.GSTCollected, &stats.CurrentMonthEarnings, &stats.LastMonthEarnings, &stats.TopCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoices: %w", err)
	}
	return stats, nil
}

// MonthlyStats groups invoices created in [from, to) by calendar month (UTC).
// Months without invoices are omitted.
func (r *invoiceRepo) MonthlyStats(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.MonthlyInvoiceStats, error) {
	query := `
		SELECT
			EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COALESCE(SUM(total), 0),
			COALESCE(SUM(total) FILTER (WHERE status = $2), 0)
		FROM invoices
		WHERE user_id = $1 AND created_at >= $5 AND created_at < $6
		GROUP BY month
		ORDER BY month
	`
	rows, err := r.db.Query(ctx, query, userID, common.InvoiceStatusPaid, common.InvoiceStatusPending,
		common.InvoiceStatusOverdue, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly invoices: %w", err)
	}
	defer rows.Close()

	var months []models.MonthlyInvoiceStats
	for rows.Next() {
		var m models.MonthlyInvoiceStats
		if err := rows.Scan(&m.Month, &m.TotalInvoices, &m.PaidInvoices, &m.PendingInvoices,
			&m.OverdueInvoices, &m.TotalEarnings, &m.PaidEarnings); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// TopCurrency returns the most used currency among invoices created in
// [from, to), or "" when there are none.
func (r *invoiceRepo) TopCurrency(ctx context.Context, userID uuid.UUID, from, to time.Time) (string, error) {
	query := `
		SELECT currency FROM invoices
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY currency
		ORDER BY COUNT(*) DESC, currency
		LIMIT 1
	`
	var currency string
	err := r.db.QueryRow(ctx, query, userID, from, to).Scan(&currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find top currency: %w", err)
	}
	return currency, nil
}
