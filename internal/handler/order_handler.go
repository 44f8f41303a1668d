package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/service"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/response"
)

// OrderHandler exposes the publication state machine.
type OrderHandler struct {
	orders *service.PublicationService
}

// NewOrderHandler constructs the order handler.
func NewOrderHandler(orders *service.PublicationService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Publish godoc
// @Summary Publish a validated draft
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param request body dto.PublishRequest true "Publication settings"
// @Success 201 {object} response.Envelope{data=dto.OrderResponse}
// @Router /orders/drafts/{id}/publish [post]
func (h *OrderHandler) Publish(c *gin.Context) {
	owner, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	order, err := h.orders.Publish(c.Request.Context(), c.Param("id"), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toOrderResponse(order))
}

// Get godoc
// @Summary Load a published order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Envelope{data=dto.OrderResponse}
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toOrderResponse(order), nil)
}

// Accept godoc
// @Summary Take an open order as executor
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body dto.AcceptRequest true "Executor claim"
// @Success 200 {object} response.Envelope{data=dto.OrderResponse}
// @Router /orders/{id}/accept [post]
func (h *OrderHandler) Accept(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if req.ExecutorID != actor {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "orders can only be claimed for yourself"))
		return
	}
	order, err := h.orders.Accept(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toOrderResponse(order), nil)
}

// Confirm godoc
// @Summary Confirm order completion
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body dto.ConfirmRequest true "Confirming party"
// @Success 200 {object} response.Envelope{data=dto.OrderResponse}
// @Router /orders/{id}/confirm [post]
func (h *OrderHandler) Confirm(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if req.PartyID != actor {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "completion can only be confirmed for yourself"))
		return
	}
	order, err := h.orders.ConfirmCompletion(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toOrderResponse(order), nil)
}

// Cancel godoc
// @Summary Cancel a published order
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body dto.CancelRequest true "Cancellation reason"
// @Success 200 {object} response.Envelope{data=dto.OrderResponse}
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	owner, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), c.Param("id"), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toOrderResponse(order), nil)
}

// Complete godoc
// @Summary Force-complete an order per timeout policy
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Envelope{data=dto.OrderResponse}
// @Router /orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}
	order, err := h.orders.CompleteByPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toOrderResponse(order), nil)
}

func toOrderResponse(order *models.PublishedOrder) *dto.OrderResponse {
	return &dto.OrderResponse{
		ID:                order.ID,
		OwnerID:           order.OwnerID,
		Brief:             order.Brief,
		Status:            order.Status,
		EscrowState:       order.EscrowState,
		ExecutorID:        order.ExecutorID,
		Deadline:          order.Deadline,
		Views:             order.Views,
		Budget:            order.Budget,
		Visibility:        order.Publication.Visibility,
		ClientConfirmed:   order.ClientConfirmed,
		ExecutorConfirmed: order.ExecutorConfirmed,
		ManualReview:      order.ManualReview,
		PublishedAt:       order.Publication.PublishedAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}
