package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/repositories"
	"invomitra/internal/tax"
)

const documentURLExpiry = 24 * time.Hour

// LineItemInput is a line item as submitted by the editor. Amounts are
// always recomputed; only quantity, price and rates are taken as given.
type LineItemInput struct {
	ID          *uuid.UUID  `json:"id"`
	Description string      `json:"description" validate:"max=1000"`
	Quantity    tax.Number  `json:"quantity"`
	UnitPrice   tax.Number  `json:"unit_price"`
	HSNSACCode  *string     `json:"hsn_sac_code" validate:"omitempty,max=20"`
	CGSTRate    *tax.Number `json:"cgst_rate"`
	SGSTRate    *tax.Number `json:"sgst_rate"`
	IGSTRate    *tax.Number `json:"igst_rate"`
}

type InvoiceInput struct {
	InvoiceNumber  string                 `json:"invoice_number" validate:"max=50"`
	ClientID       *uuid.UUID             `json:"client_id"`
	Client         *models.ClientSnapshot `json:"client"`
	IssueDate      string                 `json:"issue_date"`
	DueDate        *string                `json:"due_date"`
	Currency       string                 `json:"currency" validate:"omitempty,len=3"`
	GSTType        string                 `json:"gst_type" validate:"omitempty,oneof=igst cgst_sgst"`
	CGSTRate       *tax.Number            `json:"cgst_rate"`
	SGSTRate       *tax.Number            `json:"sgst_rate"`
	IGSTRate       *tax.Number            `json:"igst_rate"`
	DiscountAmount tax.Number             `json:"discount_amount"`
	Notes          *string                `json:"notes" validate:"omitempty,max=1000"`
	PlaceOfSupply  *string                `json:"place_of_supply" validate:"omitempty,max=100"`
	CompanyGSTIN   *string                `json:"company_gstin"`
	UPIID          *string                `json:"upi_id" validate:"omitempty,max=256"`
	// PaymentAmount defaults to the invoice total.
	PaymentAmount *tax.Number     `json:"payment_amount"`
	Items         []LineItemInput `json:"items" validate:"required,min=1,dive"`
}

// PreviewLine shows both line totals for one item.
type PreviewLine struct {
	ItemID        uuid.UUID       `json:"item_id"`
	Description   string          `json:"description"`
	StoredTotal   decimal.Decimal `json:"stored_total"`
	LineTotal     decimal.Decimal `json:"line_total"`
	LineTotalText string          `json:"line_total_formatted"`
}

type InvoicePreview struct {
	Invoice   *models.Invoice   `json:"invoice"`
	Lines     []PreviewLine     `json:"lines"`
	Totals    tax.Totals        `json:"totals"`
	Formatted map[string]string `json:"formatted"`
}

// InvoiceDocument is a stored PDF rendering.
type InvoiceDocument struct {
	ObjectName string    `json:"object_name"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
	Size       int       `json:"size"`
}

type InvoiceDelivery struct {
	EmailID string `json:"email_id"`
	To      string `json:"to"`
}

type InvoiceService interface {
	Create(ctx context.Context, userID uuid.UUID, in InvoiceInput) (*models.Invoice, error)
	Update(ctx context.Context, userID, id uuid.UUID, in InvoiceInput) (*models.Invoice, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*models.Invoice, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (*models.Invoice, error)
	RemoveItem(ctx context.Context, userID, id, itemID uuid.UUID) (*models.Invoice, error)
	Preview(ctx context.Context, userID uuid.UUID, in InvoiceInput) (*InvoicePreview, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	RenderPDF(ctx context.Context, userID, id uuid.UUID) (*InvoiceDocument, error)
	SendEmail(ctx context.Context, userID, id uuid.UUID, to string) (*InvoiceDelivery, error)
}

type invoiceService struct {
	invoices repositories.InvoiceRepository
	clients  repositories.ClientRepository
	store    DocumentStore
	email    EmailService
	logger   *zap.Logger
	now      func() time.Time
}

func NewInvoiceService(invoices repositories.InvoiceRepository, clients repositories.ClientRepository, store DocumentStore, email EmailService, logger *zap.Logger) InvoiceService {
	return &invoiceService{
		invoices: invoices,
		clients:  clients,
		store:    store,
		email:    email,
		logger:   logger,
		now:      time.Now,
	}
}

// Allowed status moves. Setting the current status again is a no-op.
var statusTransitions = map[string][]string{
	common.InvoiceStatusPending: {common.InvoiceStatusPaid, common.InvoiceStatusOverdue},
	common.InvoiceStatusPaid:    {common.InvoiceStatusOverdue},
	common.InvoiceStatusOverdue: {common.InvoiceStatusPaid},
}

// CanTransition reports whether an invoice may move from one status to another.
func CanTransition(from, to string) bool {
	return from == to || lo.Contains(statusTransitions[from], to)
}

func (s *invoiceService) Create(ctx context.Context, userID uuid.UUID, in InvoiceInput) (*models.Invoice, error) {
	inv, err := s.build(ctx, userID, in, nil, true)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceNumber == "" {
		number, err := s.invoices.NextInvoiceNumber(ctx, userID, inv.IssueDate)
		if err != nil {
			return nil, common.WrapError(common.KindPersistence, "Failed to allocate invoice number", err)
		}
		inv.InvoiceNumber = number
	}

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, s.repoError("create invoice", err)
	}
	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.Total.String()))
	return inv, nil
}

func (s *invoiceService) Update(ctx context.Context, userID, id uuid.UUID, in InvoiceInput) (*models.Invoice, error) {
	existing, err := s.invoices.GetByID(ctx, userID, id)
	if err != nil {
		return nil, s.repoError("load invoice", err)
	}
	inv, err := s.build(ctx, userID, in, existing, true)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = existing.InvoiceNumber
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, s.repoError("update invoice", err)
	}
	return inv, nil
}

func (s *invoiceService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, userID, id)
	if err != nil {
		return nil, s.repoError("load invoice", err)
	}
	return inv, nil
}

func (s *invoiceService) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*models.Invoice, error) {
	if status != "" {
		if err := common.ValidateInvoiceStatus(status); err != nil {
			return nil, common.ValidationError("status", err.Error())
		}
	}
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, common.ValidationError("offset", err.Error())
	}
	invoices, err := s.invoices.List(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, s.repoError("list invoices", err)
	}
	return invoices, nil
}

func (s *invoiceService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.invoices.Delete(ctx, userID, id); err != nil {
		return s.repoError("delete invoice", err)
	}
	return nil
}

func (s *invoiceService) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (*models.Invoice, error) {
	if err := common.ValidateInvoiceStatus(status); err != nil {
		return nil, common.ValidationError("status", err.Error())
	}
	inv, err := s.invoices.GetByID(ctx, userID, id)
	if err != nil {
		return nil, s.repoError("load invoice", err)
	}
	if inv.Status == status {
		return inv, nil
	}
	if !CanTransition(inv.Status, status) {
		return nil, common.ValidationError("status", fmt.Sprintf("cannot change status from %s to %s", inv.Status, status))
	}
	if err := s.invoices.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, s.repoError("update invoice status", err)
	}
	s.logger.Info("invoice status changed",
		zap.String("invoice_id", id.String()),
		zap.String("from", inv.Status),
		zap.String("to", status))
	inv.Status = status
	return inv, nil
}

// RemoveItem drops one line item and saves the recomputed invoice. A
// payment amount that tracked the old total follows the new one.
func (s *invoiceService) RemoveItem(ctx context.Context, userID, id, itemID uuid.UUID) (*models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, userID, id)
	if err != nil {
		return nil, s.repoError("load invoice", err)
	}
	tracksTotal := inv.PaymentAmount.Equal(inv.Total)

	switch err := inv.RemoveItem(itemID); {
	case errors.Is(err, models.ErrLineItemNotFound):
		return nil, common.NewError(common.KindNotFound, "Line item not found")
	case errors.Is(err, models.ErrLastLineItem):
		return nil, common.ValidationError("items", "an invoice needs at least one line item")
	case err != nil:
		return nil, err
	}

	if tracksTotal {
		inv.PaymentAmount = inv.Total
		inv.PaymentQR = nil
		if inv.PaymentLinkReady() {
			qr, err := PaymentQRDataURL(*inv.UPIID, inv.PaymentAmount, inv.Currency)
			if err != nil {
				s.logger.Warn("failed to generate payment QR", zap.Error(err))
			} else {
				inv.PaymentQR = &qr
			}
		}
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, s.repoError("update invoice", err)
	}
	return inv, nil
}

// Preview runs the tax engine over the input without saving anything.
func (s *invoiceService) Preview(ctx context.Context, userID uuid.UUID, in InvoiceInput) (*InvoicePreview, error) {
	inv, err := s.build(ctx, userID, in, nil, false)
	if err != nil {
		return nil, err
	}
	totals := inv.Recalculate()

	lines := lo.Map(inv.Items, func(item *models.LineItem, _ int) PreviewLine {
		return PreviewLine{
			ItemID:        item.ID,
			Description:   item.Description,
			StoredTotal:   item.Total,
			LineTotal:     item.LineTotal(),
			LineTotalText: tax.FormatAmount(item.LineTotal(), inv.Currency),
		}
	})
	return &InvoicePreview{
		Invoice: inv,
		Lines:   lines,
		Totals:  totals,
		Formatted: map[string]string{
			"subtotal": tax.FormatAmount(totals.Subtotal, inv.Currency),
			"tax":      tax.FormatAmount(totals.TaxAmount, inv.Currency),
			"discount": tax.FormatAmount(totals.Discount, inv.Currency),
			"total":    tax.FormatAmount(totals.Total, inv.Currency),
		},
	}, nil
}

func (s *invoiceService) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.invoices.MarkOverdue(ctx, now)
	if err != nil {
		return 0, common.WrapError(common.KindPersistence, "Failed to mark overdue invoices", err)
	}
	return n, nil
}

func (s *invoiceService) RenderPDF(ctx context.Context, userID, id uuid.UUID) (*InvoiceDocument, error) {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	pdf, err := RenderInvoicePDF(inv)
	if err != nil {
		return nil, common.WrapError(common.KindUnavailable, "Failed to render invoice", err)
	}

	name := InvoiceObjectName(inv)
	if err := s.store.UploadDocument(ctx, name, bytes.NewReader(pdf), int64(len(pdf)), "application/pdf"); err != nil {
		s.logger.Error("failed to store invoice pdf", zap.String("object", name), zap.Error(err))
		return nil, common.WrapError(common.KindUnavailable, "Failed to store invoice document", err)
	}
	url, err := s.store.PresignedURL(ctx, name, documentURLExpiry)
	if err != nil {
		return nil, common.WrapError(common.KindUnavailable, "Failed to create document link", err)
	}
	return &InvoiceDocument{
		ObjectName: name,
		URL:        url,
		ExpiresAt:  s.now().Add(documentURLExpiry),
		Size:       len(pdf),
	}, nil
}

var invoiceEmailTemplate = template.Must(template.New("invoice").Parse(`<p>Hello {{.Client}},</p>
<p>Please find attached invoice <strong>{{.Number}}</strong> for <strong>{{.Total}}</strong>{{if .Due}}, due on {{.Due}}{{end}}.</p>
<p>Thank you for your business.</p>`))

func (s *invoiceService) SendEmail(ctx context.Context, userID, id uuid.UUID, to string) (*InvoiceDelivery, error) {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	recipient := common.NormalizeEmail(to)
	if recipient == "" {
		recipient = common.NormalizeEmail(common.SafeString(inv.Client.Email))
	}
	if recipient == "" {
		return nil, common.ValidationError("to", "client has no email address")
	}

	pdf, err := RenderInvoicePDF(inv)
	if err != nil {
		return nil, common.WrapError(common.KindUnavailable, "Failed to render invoice", err)
	}

	data := map[string]string{
		"Client": inv.Client.Name,
		"Number": inv.InvoiceNumber,
		"Total":  tax.FormatAmount(inv.Total, inv.Currency),
	}
	if inv.DueDate != nil {
		data["Due"] = inv.DueDate.Format("02 Jan 2006")
	}
	var body bytes.Buffer
	if err := invoiceEmailTemplate.Execute(&body, data); err != nil {
		return nil, common.WrapError(common.KindUnavailable, "Failed to render email", err)
	}

	emailID, err := s.email.SendInvoice(ctx, InvoiceEmail{
		To:         recipient,
		Subject:    "Invoice " + inv.InvoiceNumber,
		HTML:       body.String(),
		Filename:   inv.InvoiceNumber + ".pdf",
		Attachment: pdf,
	})
	if err != nil {
		return nil, err
	}
	return &InvoiceDelivery{EmailID: emailID, To: recipient}, nil
}

// build turns editor input into a fully recomputed invoice. Item amounts
// and totals sent by the client are never trusted.
func (s *invoiceService) build(ctx context.Context, userID uuid.UUID, in InvoiceInput, existing *models.Invoice, requireClient bool) (*models.Invoice, error) {
	issueDate := s.now().UTC().Truncate(24 * time.Hour)
	if strings.TrimSpace(in.IssueDate) != "" {
		d, err := parseDate(in.IssueDate)
		if err != nil {
			return nil, common.ValidationError("issue_date", "issue date must be YYYY-MM-DD")
		}
		issueDate = d
	}

	inv := models.NewInvoice(userID, issueDate)
	if existing != nil {
		inv.ID = existing.ID
		inv.Status = existing.Status
		inv.CreatedAt = existing.CreatedAt
	}

	if in.DueDate != nil && strings.TrimSpace(*in.DueDate) != "" {
		d, err := parseDate(*in.DueDate)
		if err != nil {
			return nil, common.ValidationError("due_date", "due date must be YYYY-MM-DD")
		}
		if d.Before(issueDate) {
			return nil, common.ValidationError("due_date", "due date cannot be before the issue date")
		}
		inv.DueDate = &d
	}

	if number := strings.TrimSpace(in.InvoiceNumber); number != "" {
		if err := common.ValidateInvoiceNumber(number); err != nil {
			return nil, common.ValidationError("invoice_number", err.Error())
		}
		inv.InvoiceNumber = number
	}

	if c := strings.ToUpper(strings.TrimSpace(in.Currency)); c != "" {
		if !tax.SupportedCurrency(c) {
			return nil, common.ValidationError("currency", "unsupported currency "+c)
		}
		inv.Currency = c
	}

	if in.GSTType != "" {
		t := tax.GSTType(in.GSTType)
		if !t.Valid() {
			return nil, common.ValidationError("gst_type", "gst type must be igst or cgst_sgst")
		}
		inv.SetGSTType(t)
	}

	inv.CGSTRate = rateOr(in.CGSTRate, inv.CGSTRate)
	inv.SGSTRate = rateOr(in.SGSTRate, inv.SGSTRate)
	inv.IGSTRate = rateOr(in.IGSTRate, inv.IGSTRate)

	if len(in.Items) == 0 {
		return nil, common.ValidationError("items", "an invoice needs at least one line item")
	}
	// The first input item takes over the seed item NewInvoice creates.
	for i, li := range in.Items {
		quantity, price := li.Quantity.Quantity(), li.UnitPrice.Decimal
		var item *models.LineItem
		if i == 0 {
			item = inv.Items[0]
			if err := inv.UpdateItem(item.ID, quantity, price); err != nil {
				return nil, err
			}
			item.Description = common.SanitizeText(li.Description)
			item.HSNSACCode = common.SanitizeOptional(li.HSNSACCode)
		} else {
			item = inv.AddItem(common.SanitizeText(li.Description), quantity, price, common.SanitizeOptional(li.HSNSACCode))
		}
		item.CGSTRate = rateOr(li.CGSTRate, inv.CGSTRate)
		item.SGSTRate = rateOr(li.SGSTRate, inv.SGSTRate)
		item.IGSTRate = rateOr(li.IGSTRate, inv.IGSTRate)
		if li.ID != nil && *li.ID != uuid.Nil {
			item.ID = *li.ID
		}
	}
	inv.SetDiscount(in.DiscountAmount.Decimal)

	client, err := s.resolveClient(ctx, userID, in, requireClient)
	if err != nil {
		return nil, err
	}
	inv.ClientID = in.ClientID
	inv.Client = client

	inv.Notes = common.SanitizeOptional(in.Notes)
	inv.PlaceOfSupply = common.SanitizeOptional(in.PlaceOfSupply)
	if in.CompanyGSTIN != nil {
		gstin := strings.ToUpper(strings.TrimSpace(*in.CompanyGSTIN))
		if err := common.ValidateGSTIN(gstin, "company_gstin"); err != nil {
			return nil, common.ValidationError("company_gstin", err.Error())
		}
		inv.CompanyGSTIN = common.StringPtr(gstin)
	}

	if in.UPIID != nil && strings.TrimSpace(*in.UPIID) != "" {
		if !ValidUPIID(*in.UPIID) {
			return nil, common.ValidationError("upi_id", "UPI id must look like name@bank")
		}
		inv.UPIID = common.StringPtr(strings.TrimSpace(*in.UPIID))
	}
	inv.PaymentAmount = inv.Total
	if in.PaymentAmount != nil {
		inv.PaymentAmount = in.PaymentAmount.Decimal
	}
	if inv.PaymentLinkReady() {
		qr, err := PaymentQRDataURL(*inv.UPIID, inv.PaymentAmount, inv.Currency)
		if err != nil {
			s.logger.Warn("failed to generate payment QR", zap.Error(err))
		} else {
			inv.PaymentQR = &qr
		}
	}
	return inv, nil
}

// resolveClient copies the referenced client's current details, or takes
// the inline snapshot when no client id is given.
func (s *invoiceService) resolveClient(ctx context.Context, userID uuid.UUID, in InvoiceInput, required bool) (models.ClientSnapshot, error) {
	var snap models.ClientSnapshot
	switch {
	case in.ClientID != nil:
		client, err := s.clients.GetByID(ctx, userID, *in.ClientID)
		if errors.Is(err, repositories.ErrNotFound) {
			return snap, common.ValidationError("client_id", "client not found")
		}
		if err != nil {
			return snap, common.WrapError(common.KindPersistence, "Failed to load client", err)
		}
		snap = client.Snapshot()
	case in.Client != nil:
		snap = models.ClientSnapshot{
			Name:    common.SanitizeText(in.Client.Name),
			Email:   common.StringPtr(common.NormalizeEmail(common.SafeString(in.Client.Email))),
			Phone:   common.SanitizeOptional(in.Client.Phone),
			Address: common.SanitizeOptional(in.Client.Address),
		}
		if in.Client.GSTIN != nil {
			gstin := strings.ToUpper(strings.TrimSpace(*in.Client.GSTIN))
			if err := common.ValidateGSTIN(gstin, "client.gstin"); err != nil {
				return snap, common.ValidationError("client.gstin", err.Error())
			}
			snap.GSTIN = common.StringPtr(gstin)
		}
	}
	if required && snap.Name == "" {
		return snap, common.ValidationError("client", "client name is required")
	}
	return snap, nil
}

func (s *invoiceService) repoError(action string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return common.NewError(common.KindNotFound, "Invoice not found")
	case errors.Is(err, repositories.ErrDuplicate):
		return common.ValidationError("invoice_number", "an invoice with this number already exists")
	}
	s.logger.Error("invoice persistence failed", zap.String("action", action), zap.Error(err))
	return common.WrapError(common.KindPersistence, "Failed to "+action, err)
}

func rateOr(n *tax.Number, fallback decimal.Decimal) decimal.Decimal {
	if n == nil {
		return fallback
	}
	return n.Decimal
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(24 * time.Hour), nil
}
