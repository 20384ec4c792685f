package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caseloft/store-service/internal/checkout"
)

// OrderHandler serves the storefront checkout and the admin order endpoints.
type OrderHandler struct {
	svc    *checkout.Service
	logger zerolog.Logger
}

// NewOrderHandler creates an order handler over the given checkout service.
// The service may be nil when no database is configured; every endpoint then
// answers 503.
func NewOrderHandler(svc *checkout.Service, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

func (h *OrderHandler) requireService(c *gin.Context) bool {
	if h.svc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Order storage not configured"})
		return false
	}
	return true
}

// CreateOrderRequest represents a storefront checkout submission
type CreateOrderRequest struct {
	ProductID       string `json:"productId" binding:"required" jsonschema:"required"`
	Quantity        int    `json:"quantity" binding:"required,min=1" jsonschema:"required,minimum=1"`
	UserID          string `json:"userId" binding:"required" jsonschema:"required"`
	UserEmail       string `json:"userEmail"`
	ShippingAddress string `json:"shippingAddress"`
	OrderSource     string `json:"orderSource"`
}

// UpdateOrderStatusRequest represents an admin status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required" jsonschema:"required,enum=pending,enum=confirmed,enum=shipped,enum=delivered,enum=cancelled"`
}

// domainStatus maps a checkout domain error to its HTTP status.
func domainStatus(derr *checkout.DomainError) int {
	switch derr.Code {
	case checkout.ErrCodeProductNotFound, checkout.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case checkout.ErrCodeInsufficientStock:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (h *OrderHandler) renderError(c *gin.Context, err error) {
	var derr *checkout.DomainError
	if errors.As(err, &derr) {
		c.JSON(domainStatus(derr), gin.H{"error": derr.Message, "code": derr.Code})
		return
	}
	h.logger.Error().Err(err).Msg("Checkout operation failed")
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable, please retry"})
}

// Create reserves stock and records the order.
// POST /api/orders
func (h *OrderHandler) Create(c *gin.Context) {
	if !h.requireService(c) {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.svc.Reserve(c.Request.Context(), checkout.ReserveRequest{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		UserID:          req.UserID,
		UserEmail:       req.UserEmail,
		ShippingAddress: req.ShippingAddress,
		OrderSource:     req.OrderSource,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// List returns all orders, newest first.
// GET /admin/orders
func (h *OrderHandler) List(c *gin.Context) {
	if !h.requireService(c) {
		return
	}
	orders, err := h.svc.ListOrders(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list orders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	if orders == nil {
		orders = []checkout.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

// UpdateStatus moves an order to a new lifecycle status.
// PATCH /admin/orders/:orderId/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	if !h.requireService(c) {
		return
	}
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.UpdateStatus(c.Request.Context(), orderID, req.Status); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": orderID.String(), "status": req.Status})
}

// Delete cancels an order and restores its stock.
// DELETE /admin/orders/:orderId
func (h *OrderHandler) Delete(c *gin.Context) {
	if !h.requireService(c) {
		return
	}
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	if err := h.svc.CancelOrder(c.Request.Context(), orderID); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled, stock restored", "orderId": orderID.String()})
}
