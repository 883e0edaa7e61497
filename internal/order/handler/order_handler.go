package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paymentsaga/payment-saga/internal/order/domain"
	"github.com/paymentsaga/payment-saga/internal/order/dto"
	"github.com/paymentsaga/payment-saga/internal/order/service"
	"github.com/paymentsaga/payment-saga/pkg/logger"
	"github.com/paymentsaga/payment-saga/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// OrderHandler exposes the REST surface of the order service
type OrderHandler struct {
	service service.OrderService
	log     *logger.Logger
}

// NewOrderHandler creates an OrderHandler
func NewOrderHandler(svc service.OrderService) *OrderHandler {
	return &OrderHandler{
		service: svc,
		log:     logger.Get().With("component", "order-handler"),
	}
}

// RegisterRoutes mounts the order routes on the router
func (h *OrderHandler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/orders/payment", h.InitiatePayment)
		v1.GET("/orders/:orderId", h.GetOrder)
	}
}

// InitiatePayment handles POST /api/v1/orders/payment
func (h *OrderHandler) InitiatePayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "order.initiate_payment")
	defer span.End()

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	order, err := h.service.InitiatePayment(ctx, &req)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		h.log.Error("failed to initiate payment", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to initiate payment",
		})
		return
	}

	span.SetAttributes(
		attribute.String("order.id", order.OrderID),
		attribute.String("saga.id", order.SagaID),
	)
	c.JSON(http.StatusCreated, dto.FromOrder(order))
}

// GetOrder handles GET /api/v1/orders/:orderId
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "order.get_order")
	defer span.End()

	orderID := c.Param("orderId")
	userID := c.GetHeader("X-User-Id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "X-User-Id header is required",
		})
		return
	}

	order, err := h.service.GetOrder(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "not_found",
				Message: "order not found",
			})
			return
		}
		telemetry.SetSpanError(ctx, err)
		h.log.Error("failed to get order", "order_id", orderID, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to get order",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromOrder(order))
}
