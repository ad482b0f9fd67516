package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

// OrderHandler exposes account-scoped order management.
type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderItemRequest struct {
	Name           string `json:"name" validate:"required,notblank,max=200"`
	Quantity       int    `json:"quantity" validate:"gt=0,max=10000"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0,max=100000000"`
	Notes          string `json:"notes" validate:"max=500"`
}

type createOrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"required,notblank,max=120"`
	CustomerEmail   string             `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone   string             `json:"customer_phone" validate:"max=40"`
	Type            string             `json:"type" validate:"omitempty,oneof=pickup delivery dine_in"`
	DeliveryAddress string             `json:"delivery_address" validate:"max=500"`
	Notes           string             `json:"notes" validate:"max=1000"`
	Metadata        map[string]any     `json:"metadata"`
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateOrderRequest struct {
	CustomerName    *string            `json:"customer_name" validate:"omitempty,notblank,max=120"`
	CustomerEmail   *string            `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone   *string            `json:"customer_phone" validate:"omitempty,max=40"`
	Type            *string            `json:"type" validate:"omitempty,oneof=pickup delivery dine_in"`
	DeliveryAddress *string            `json:"delivery_address" validate:"omitempty,max=500"`
	Notes           *string            `json:"notes" validate:"omitempty,max=1000"`
	Metadata        map[string]any     `json:"metadata"`
	Items           []orderItemRequest `json:"items" validate:"omitempty,min=1,dive"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress ready delivered cancelled"`
}

func toItemInputs(items []orderItemRequest) []services.OrderItemInput {
	if items == nil {
		return nil
	}
	inputs := make([]services.OrderItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, services.OrderItemInput{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			Notes:          item.Notes,
		})
	}
	return inputs
}

// GET /api/orders
func (h *OrderHandler) List(c *gin.Context) {
	_, accountID := sessionIDs(c)
	page, perPage := pageParams(c)

	orders, total, err := h.orders.List(requestContext(c), accountID, services.ListOrdersOptions{
		Page:     page,
		PageSize: perPage,
		Filters: services.OrderFilters{
			Status: models.OrderStatus(strings.TrimSpace(c.Query("status"))),
			Type:   models.OrderType(strings.TrimSpace(c.Query("type"))),
			Query:  c.Query("q"),
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, orders, response.NewMeta(page, perPage, total))
}

// POST /api/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, accountID := sessionIDs(c)
	order, err := h.orders.Create(requestContext(c), userID, accountID, services.CreateOrderInput{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		Type:            models.OrderType(req.Type),
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		Metadata:        req.Metadata,
		Items:           toItemInputs(req.Items),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, order)
}

// GET /api/orders/stats
func (h *OrderHandler) Stats(c *gin.Context) {
	_, accountID := sessionIDs(c)

	stats, err := h.orders.Stats(requestContext(c), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// GET /api/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	_, accountID := sessionIDs(c)

	order, err := h.orders.Get(requestContext(c), accountID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, order)
}

// PATCH /api/orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	var req updateOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateOrderInput{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		Metadata:        req.Metadata,
		Items:           toItemInputs(req.Items),
	}
	if req.Type != nil {
		orderType := models.OrderType(*req.Type)
		input.Type = &orderType
	}

	_, accountID := sessionIDs(c)
	order, err := h.orders.Update(requestContext(c), accountID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, order)
}

// PATCH /api/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, accountID := sessionIDs(c)
	order, err := h.orders.UpdateStatus(requestContext(c), userID, accountID, c.Param("id"), models.OrderStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, order)
}

// DELETE /api/orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	userID, accountID := sessionIDs(c)

	if err := h.orders.Delete(requestContext(c), userID, accountID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
