package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/utils"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/services"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/views"
	"go.uber.org/zap"
)

type OrderHandler struct {
	logger  *zap.Logger
	service services.OrderService
}

func NewOrderHandler(logger *zap.Logger, svc services.OrderService) *OrderHandler {
	return &OrderHandler{logger: logger, service: svc}
}

// RegisterRoutes registers order routes on a group that already resolved the user.
func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
}

// CreateOrder godoc
// @Summary Place an order and receive its OTP
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller"
// @Param request body views.CreateOrderRequest true "Order"
// @Success 201 {object} views.CreateOrderResponse
// @Failure 400 {object} pkg.ErrorResponse
// @Failure 402 {object} pkg.ErrorResponse
// @Failure 404 {object} pkg.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	userID, err := utils.GetUserID(c)
	if err != nil {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrUnauthorizedCode, "authentication required", err))
		return
	}

	var req views.CreateOrderRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, traceID, err)
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), traceID, userID, req)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		if resp.Status >= http.StatusInternalServerError {
			resp.Message = "Payment failed"
		}
		c.JSON(resp.Status, resp)
		return
	}
	c.JSON(http.StatusCreated, views.NewCreateOrderResponse(order))
}

// GetOrder godoc
// @Summary Fetch one of the caller's orders
// @Tags orders
// @Produce json
// @Param X-User-Id header string true "Caller"
// @Param id path string true "Order id"
// @Success 200 {object} views.OrderResponse
// @Failure 403 {object} pkg.ErrorResponse
// @Failure 404 {object} pkg.ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	userID, err := utils.GetUserID(c)
	if err != nil {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrUnauthorizedCode, "authentication required", err))
		return
	}
	order, err := h.service.GetOrder(c.Request.Context(), traceID, c.Param("id"), userID)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.NewOrderResponse(order))
}

// ListOrders godoc
// @Summary Order history of the caller, newest first
// @Tags orders
// @Produce json
// @Param X-User-Id header string true "Caller"
// @Success 200 {object} views.OrderListResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	userID, err := utils.GetUserID(c)
	if err != nil {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrUnauthorizedCode, "authentication required", err))
		return
	}
	orders, err := h.service.ListOrders(c.Request.Context(), traceID, userID)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.NewOrderListResponse(orders))
}
