package orders

//go:generate mockgen -source=orders.go -destination=mock_orders.go -package=orders

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/dto"
	"github.com/GlebRadaev/wholesale/internal/handlers/httperr"
	"github.com/GlebRadaev/wholesale/internal/service/orderservice"
	"github.com/GlebRadaev/wholesale/pkg/auth"
	"github.com/GlebRadaev/wholesale/pkg/utils"
)

type Service interface {
	ListOrders(ctx context.Context, actor domain.Actor) ([]orderservice.OrderSummary, error)
	GetOrder(ctx context.Context, orderID int, actor domain.Actor) (*orderservice.OrderDetails, error)
	UpdateOrder(ctx context.Context, orderID int, input orderservice.UpdateOrderInput, actor domain.Actor) (*orderservice.UpdateResult, error)
}

type OrderHandler struct {
	orderService Service
}

func New(orderService Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// GetOrders godoc
//
//	@Summary		List own orders
//	@Description	Retrieve the orders placed by the authorized user
//	@Tags			Orders
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		dto.OrderDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [get]
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), actor)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	response := make([]dto.OrderDTO, 0, len(orders))
	for i := range orders {
		response = append(response, dto.NewOrder(&orders[i].Order, orders[i].Total.StringFixed(2)))
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetOrder godoc
//
//	@Summary		Get order details
//	@Description	Order with items, invoice and payments. Buyers see their own orders only.
//	@Tags			Orders
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Order ID"
//	@Success		200	{object}	dto.OrderDetailsDTO
//	@Failure		400	{object}	utils.Response	"Invalid order id"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{id} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	details, err := h.orderService.GetOrder(r.Context(), orderID, actor)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.OrderDetailsDTO{
		Order:    dto.NewOrder(details.Order, details.Total.StringFixed(2)),
		Items:    dto.NewOrderItems(details.Items),
		Invoice:  dto.NewInvoice(details.Invoice),
		Payments: dto.NewPayments(details.Payments),
	})
}

// UpdateOrder godoc
//
//	@Summary		Update order status or notes
//	@Description	Staff and admins only. Approving an order creates its invoice once and emails the buyer.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int							true	"Order ID"
//	@Param			request	body		dto.UpdateOrderRequestDTO	true	"Fields to change"
//	@Success		200		{object}	dto.UpdateOrderResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		403		{object}	utils.Response	"Role may not update orders"
//	@Failure		404		{object}	utils.Response	"Order not found"
//	@Failure		422		{object}	utils.Response	"Invalid status or nothing to update"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequireActor(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.orderService.UpdateOrder(r.Context(), orderID, orderservice.UpdateOrderInput{
		Status: req.Status,
		Notes:  req.Notes,
	}, actor)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dto.UpdateOrderResponseDTO{
		Order:            dto.NewOrder(result.Order, result.Total.StringFixed(2)),
		NotificationSent: result.NotificationSent,
		InvoiceCreated:   result.InvoiceCreated,
		InvoiceNumber:    result.InvoiceNumber,
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return 0, false
	}
	return id, true
}
