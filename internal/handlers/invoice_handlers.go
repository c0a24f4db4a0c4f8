package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"invomitra/internal/common"
	"invomitra/internal/services"
)

// InvoiceHandlers handles invoice HTTP requests
type InvoiceHandlers struct {
	invoiceService services.InvoiceService
}

func NewInvoiceHandlers(invoiceService services.InvoiceService) *InvoiceHandlers {
	return &InvoiceHandlers{invoiceService: invoiceService}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid overdue"`
}

type emailRequest struct {
	To string `json:"to" validate:"omitempty,email"`
}

// PreviewInvoice handles POST /v1/invoices/preview
func (h *InvoiceHandlers) PreviewInvoice(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	var in services.InvoiceInput
	if err := bindAndValidate(c, &in); err != nil {
		return common.SendAppError(c, err)
	}
	preview, err := h.invoiceService.Preview(c.Request().Context(), caller.UserID, in)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, preview)
}

// CreateInvoice handles POST /v1/invoices
func (h *InvoiceHandlers) CreateInvoice(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	var in services.InvoiceInput
	if err := bindAndValidate(c, &in); err != nil {
		return common.SendAppError(c, err)
	}
	invoice, err := h.invoiceService.Create(c.Request().Context(), caller.UserID, in)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusCreated, invoice)
}

// ListInvoices handles GET /v1/invoices?status=&limit=&offset=
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	limit, offset := pagination(c)
	invoices, err := h.invoiceService.List(c.Request().Context(), caller.UserID, c.QueryParam("status"), limit, offset)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetInvoice handles GET /v1/invoices/:id
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	invoice, err := h.invoiceService.Get(c.Request().Context(), caller.UserID, id)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// UpdateInvoice handles PUT /v1/invoices/:id. Items are replaced wholesale.
func (h *InvoiceHandlers) UpdateInvoice(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	var in services.InvoiceInput
	if err := bindAndValidate(c, &in); err != nil {
		return common.SendAppError(c, err)
	}
	invoice, err := h.invoiceService.Update(c.Request().Context(), caller.UserID, id, in)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice handles DELETE /v1/invoices/:id
func (h *InvoiceHandlers) DeleteInvoice(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	if err := h.invoiceService.Delete(c.Request().Context(), caller.UserID, id); err != nil {
		return common.SendAppError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveInvoiceItem handles DELETE /v1/invoices/:id/items/:itemId
func (h *InvoiceHandlers) RemoveInvoiceItem(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	itemID, err := pathUUID(c, "itemId")
	if err != nil {
		return common.SendAppError(c, err)
	}
	inv, err := h.invoiceService.RemoveItem(c.Request().Context(), caller.UserID, id, itemID)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

// UpdateInvoiceStatus handles PUT /v1/invoices/:id/status
func (h *InvoiceHandlers) UpdateInvoiceStatus(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	var req statusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}
	invoice, err := h.invoiceService.UpdateStatus(c.Request().Context(), caller.UserID, id, req.Status)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// GenerateInvoicePDF handles POST /v1/invoices/:id/pdf
func (h *InvoiceHandlers) GenerateInvoicePDF(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	doc, err := h.invoiceService.RenderPDF(c.Request().Context(), caller.UserID, id)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// EmailInvoice handles POST /v1/invoices/:id/email
func (h *InvoiceHandlers) EmailInvoice(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	var req emailRequest
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return common.SendAppError(c, err)
		}
	}
	delivery, err := h.invoiceService.SendEmail(c.Request().Context(), caller.UserID, id, req.To)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusAccepted, delivery)
}
