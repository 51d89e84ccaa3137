package entity

import (
	"fmt"
	"time"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/types"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusEdit OrderStatus = "EDIT"
	OrderStatusHold OrderStatus = "HOLD"
	OrderStatusPaid OrderStatus = "PAID"
	OrderStatusVoid OrderStatus = "VOID"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusEdit, OrderStatusHold, OrderStatusPaid, OrderStatusVoid:
		return true
	}
	return false
}

// OrderType distinguishes sales from returns.
type OrderType string

const (
	OrderTypeSale   OrderType = "SALE"
	OrderTypeReturn OrderType = "RETURN"
)

// MjType classifies regulated and non-regulated goods.
type MjType string

const (
	MjTypeNone MjType = "NONE"
	MjTypeMJ   MjType = "MJ"
	MjTypeNMJ  MjType = "NMJ"
)

// Order is the header of a sale or return.
type Order struct {
	ID           int64       `db:"id" json:"id"`
	DispensaryID int64       `db:"dispensary_id" json:"dispensaryId"`
	CustomerID   *int64      `db:"customer_id" json:"customerId,omitempty"`
	DrawerID     int64       `db:"drawer_id" json:"drawerId"`
	UserID       int64       `db:"user_id" json:"userId"`
	Status       OrderStatus `db:"status" json:"status"`
	OrderType    OrderType   `db:"order_type" json:"orderType"`
	MjType       MjType      `db:"mj_type" json:"mjType"`

	Cash      types.Money `db:"cash_amount" json:"cashAmount"`
	Other     types.Money `db:"other_amount" json:"otherAmount"`
	ChangeDue types.Money `db:"change_due" json:"changeDue"`

	Amount   types.Money `db:"amount" json:"amount"`
	Cost     types.Money `db:"cost" json:"cost"`
	Discount types.Money `db:"discount" json:"discount"`
	Loyalty  types.Money `db:"loyalty" json:"loyalty"`
	Tax      types.Money `db:"tax" json:"tax"`

	MetrcID           *int64     `db:"metrc_id" json:"metrcId,omitempty"`
	IsReportedToMetrc bool       `db:"is_reported_to_metrc" json:"isReportedToMetrc"`
	VoidReason        string     `db:"void_reason" json:"voidReason,omitempty"`
	VoidedAt          *time.Time `db:"voided_at" json:"voidedAt,omitempty"`

	Timestamps
}

// NewOrder creates an order with zero items in the given status.
func NewOrder(dispensaryID, drawerID, userID int64, customerID *int64, status OrderStatus, orderType OrderType) *Order {
	if status == "" {
		status = OrderStatusEdit
	}
	if orderType == "" {
		orderType = OrderTypeSale
	}
	return &Order{
		DispensaryID: dispensaryID,
		DrawerID:     drawerID,
		UserID:       userID,
		CustomerID:   customerID,
		Status:       status,
		OrderType:    orderType,
		MjType:       MjTypeNone,
		Timestamps:   NewTimestamps(),
	}
}

// Validate implements Validatable.
func (o *Order) Validate() error {
	if err := requirePositiveID("dispensaryId", o.DispensaryID); err != nil {
		return err
	}
	if !o.Status.Valid() {
		return apperror.NewValidation(fmt.Sprintf("unknown order status %q", o.Status)).WithDetail("field", "status")
	}
	switch o.OrderType {
	case OrderTypeSale, OrderTypeReturn:
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown order type %q", o.OrderType)).WithDetail("field", "orderType")
	}
	for field, v := range map[string]types.Money{"cashAmount": o.Cash, "otherAmount": o.Other, "changeDue": o.ChangeDue} {
		if err := requireNonNegative(field, v); err != nil {
			return err
		}
	}
	return nil
}

// IsEditable reports whether items may be mutated.
func (o *Order) IsEditable() bool { return o.Status == OrderStatusEdit }

// IsReturn reports whether the order is a return.
func (o *Order) IsReturn() bool { return o.OrderType == OrderTypeReturn }

// OrderItem is one line of an order.
type OrderItem struct {
	ID           int64  `db:"id" json:"id"`
	OrderID      int64  `db:"order_id" json:"orderId"`
	DispensaryID int64  `db:"dispensary_id" json:"dispensaryId"`
	ProductID    int64  `db:"product_id" json:"productId"`
	PackageLabel string `db:"package_label" json:"packageLabel,omitempty"`
	MjType       MjType `db:"mj_type" json:"mjType"`

	Quantity         types.Money `db:"quantity" json:"quantity"`
	Price            types.Money `db:"price" json:"price"`
	Cost             types.Money `db:"cost" json:"cost"`
	Amount           types.Money `db:"amount" json:"amount"`
	CostAmount       types.Money `db:"cost_amount" json:"costAmount"`
	DiscountedAmount types.Money `db:"discounted_amount" json:"discountedAmount"`
	LoyaltyAmount    types.Money `db:"loyalty_amount" json:"loyaltyAmount"`
}

// Validate implements Validatable.
func (i *OrderItem) Validate() error {
	if err := requirePositiveID("productId", i.ProductID); err != nil {
		return err
	}
	if !i.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	if err := requireNonNegative("price", i.Price); err != nil {
		return err
	}
	return requireNonNegative("cost", i.Cost)
}

// FundAmount is the taxable base of the line: amount less discount and loyalty.
func (i *OrderItem) FundAmount() types.Money {
	return i.Amount.Sub(i.DiscountedAmount).Sub(i.LoyaltyAmount)
}

// IsRegulated reports whether the line carries regulated product.
func (i *OrderItem) IsRegulated() bool { return i.MjType == MjTypeMJ }
