package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/services"
)

// ClientHandlers handles client-related HTTP requests
type ClientHandlers struct {
	clientService services.ClientService
}

func NewClientHandlers(clientService services.ClientService) *ClientHandlers {
	return &ClientHandlers{clientService: clientService}
}

type clientRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Address *string `json:"address" validate:"omitempty,max=1000"`
	GSTIN   *string `json:"gstin" validate:"omitempty,len=15"`
}

func (r clientRequest) toModel() *models.Client {
	return &models.Client{Name: r.Name, Email: r.Email, Phone: r.Phone, Address: r.Address, GSTIN: r.GSTIN}
}

// ListClients handles GET /v1/clients
func (h *ClientHandlers) ListClients(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	limit, offset := pagination(c)
	clients, err := h.clientService.List(c.Request().Context(), caller.UserID, limit, offset)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"clients": clients,
		"limit":   limit,
		"offset":  offset,
	})
}

// CreateClient handles POST /v1/clients
func (h *ClientHandlers) CreateClient(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	var req clientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}
	client := req.toModel()
	if err := h.clientService.Create(c.Request().Context(), caller.UserID, client); err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusCreated, client)
}

// GetClient handles GET /v1/clients/:id
func (h *ClientHandlers) GetClient(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	client, err := h.clientService.GetByID(c.Request().Context(), caller.UserID, id)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// UpdateClient handles PUT /v1/clients/:id
func (h *ClientHandlers) UpdateClient(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	var req clientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}
	client := req.toModel()
	client.ID = id
	if err := h.clientService.Update(c.Request().Context(), caller.UserID, client); err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// DeleteClient handles DELETE /v1/clients/:id
func (h *ClientHandlers) DeleteClient(c echo.Context) error {
	caller, err := requireCaller(c)
	if err != nil {
		return common.SendAppError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendAppError(c, err)
	}
	if err := h.clientService.Delete(c.Request().Context(), caller.UserID, id); err != nil {
		return common.SendAppError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
