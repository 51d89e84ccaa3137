package dto

import (
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
)

// CreateOrderRequest opens an order on the caller's drawer.
type CreateOrderRequest struct {
	CustomerID *int64             `json:"customerId"`
	Status     entity.OrderStatus `json:"status"`
	OrderType  entity.OrderType   `json:"orderType"`
}

// AddItemRequest adds a product line.
type AddItemRequest struct {
	ProductID    int64       `json:"productId" binding:"required"`
	PackageLabel string      `json:"packageLabel"`
	Quantity     types.Money `json:"quantity"`
	Price        types.Money `json:"price"`
	Cost         types.Money `json:"cost"`
}

// DiscountRequest applies an order-level discount.
type DiscountRequest struct {
	Name   string                `json:"discountName"`
	Method entity.DiscountMethod `json:"discountMethod" binding:"required"`
	Value  types.Money           `json:"value"`
}

// LoyaltyRequest spends customer points.
type LoyaltyRequest struct {
	Points types.Money `json:"points"`
}

// CompleteRequest takes payment.
type CompleteRequest struct {
	Cash      types.Money `json:"cashAmount"`
	Other     types.Money `json:"otherAmount"`
	ChangeDue types.Money `json:"changeDue"`
}

// VoidRequest voids a paid order.
type VoidRequest struct {
	Reason string `json:"voidReason"`
}
