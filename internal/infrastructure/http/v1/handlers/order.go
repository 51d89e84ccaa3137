package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	appctx "cannapos/internal/core/context"
	"cannapos/internal/core/entity"
	"cannapos/internal/domain/order"
	"cannapos/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves /orders.
type OrderHandler struct {
	BaseHandler
	svc *order.Service
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	o, err := h.svc.Create(ctx, order.CreateInput{
		DispensaryID: appctx.GetDispensaryID(ctx),
		UserID:       appctx.GetUserID(ctx),
		CustomerID:   req.CustomerID,
		Status:       req.Status,
		OrderType:    req.OrderType,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, o)
}

// Amount handles GET /orders/:id/amount.
func (h *OrderHandler) Amount(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	info, err := h.svc.AmountInfo(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, info)
}

func (h *OrderHandler) itemInput(c *gin.Context) (order.AddItemInput, bool) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return order.AddItemInput{}, false
	}
	var req dto.AddItemRequest
	if !h.BindJSON(c, &req) {
		return order.AddItemInput{}, false
	}
	return order.AddItemInput{
		OrderID:      id,
		ProductID:    req.ProductID,
		PackageLabel: req.PackageLabel,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Cost:         req.Cost,
	}, true
}

// AddItem handles POST /orders/:id/items.
func (h *OrderHandler) AddItem(c *gin.Context) {
	in, ok := h.itemInput(c)
	if !ok {
		return
	}
	item, err := h.svc.AddItem(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// AddReturnItem handles POST /orders/:id/return-items.
func (h *OrderHandler) AddReturnItem(c *gin.Context) {
	in, ok := h.itemInput(c)
	if !ok {
		return
	}
	item, err := h.svc.AddReturnItem(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// RemoveItem handles DELETE /orders/:id/items/:itemId.
func (h *OrderHandler) RemoveItem(c *gin.Context) {
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}
	if err := h.svc.RemoveItem(c.Request.Context(), itemID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, dto.SuccessResponse{Success: true})
}

// ApplyDiscount handles POST /orders/:id/discount.
func (h *OrderHandler) ApplyDiscount(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.DiscountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	d, err := h.svc.ApplyDiscount(c.Request.Context(), order.DiscountInput{
		OrderID: id,
		Name:    req.Name,
		Method:  req.Method,
		Value:   req.Value,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, d)
}

// CancelDiscount handles DELETE /orders/:id/discount.
func (h *OrderHandler) CancelDiscount(c *gin.Context) {
	h.simple(c, h.svc.CancelDiscount)
}

// ApplyLoyalty handles POST /orders/:id/loyalty.
func (h *OrderHandler) ApplyLoyalty(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.LoyaltyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	l, err := h.svc.ApplyLoyalty(c.Request.Context(), id, req.Points)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, l)
}

// CancelLoyalty handles DELETE /orders/:id/loyalty.
func (h *OrderHandler) CancelLoyalty(c *gin.Context) {
	h.simple(c, h.svc.CancelLoyalty)
}

// Cancel handles POST /orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.simple(c, h.svc.Cancel)
}

// RecomputeTax handles POST /orders/:id/tax.
func (h *OrderHandler) RecomputeTax(c *gin.Context) { h.returning(c, h.svc.RecomputeTax) }

// Hold handles POST /orders/:id/hold.
func (h *OrderHandler) Hold(c *gin.Context) { h.returning(c, h.svc.Hold) }

// Unhold handles POST /orders/:id/unhold.
func (h *OrderHandler) Unhold(c *gin.Context) { h.returning(c, h.svc.Unhold) }

// ConvertToReturn handles POST /orders/:id/return.
func (h *OrderHandler) ConvertToReturn(c *gin.Context) { h.returning(c, h.svc.ConvertToReturn) }

// Complete handles POST /orders/:id/complete.
func (h *OrderHandler) Complete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CompleteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.svc.Complete(c.Request.Context(), order.CompleteInput{
		OrderID:   id,
		Cash:      req.Cash,
		Other:     req.Other,
		ChangeDue: req.ChangeDue,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, res)
}

// Void handles POST /orders/:id/void.
func (h *OrderHandler) Void(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.VoidRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.svc.Void(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, res)
}

// Sync handles POST /orders/:id/sync.
func (h *OrderHandler) Sync(c *gin.Context) { h.sync(c, h.svc.Sync) }

// Unsync handles POST /orders/:id/unsync.
func (h *OrderHandler) Unsync(c *gin.Context) { h.sync(c, h.svc.Unsync) }

func (h *OrderHandler) simple(c *gin.Context, fn func(ctx context.Context, id int64) error) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, dto.SuccessResponse{Success: true})
}

func (h *OrderHandler) returning(c *gin.Context, fn func(ctx context.Context, id int64) (*entity.Order, error)) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	o, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, o)
}

func (h *OrderHandler) sync(c *gin.Context, fn func(ctx context.Context, id int64) (bool, error)) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	done, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, dto.SyncResponse{Success: done})
}
