package entity

import (
	"time"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/types"
)

// DiscountMethod selects how a discount value is interpreted.
type DiscountMethod string

const (
	DiscountByPercent DiscountMethod = "BYPERCENT"
	DiscountByAmount  DiscountMethod = "BYAMOUNT"
	DiscountToAmount  DiscountMethod = "TOAMOUNT"
)

// Valid reports whether m is a known method.
func (m DiscountMethod) Valid() bool {
	switch m {
	case DiscountByPercent, DiscountByAmount, DiscountToAmount:
		return true
	}
	return false
}

// LoyaltyType selects how points are redeemed.
type LoyaltyType string

const (
	LoyaltyManual LoyaltyType = "MANUAL"
	// LoyaltyAuto is reserved and has no allocation behavior.
	LoyaltyAuto LoyaltyType = "AUTO"
)

// LoyaltyTxType is the direction of a loyalty transaction.
type LoyaltyTxType string

const (
	LoyaltySpend LoyaltyTxType = "spend"
	LoyaltyEarn  LoyaltyTxType = "earn"
)

// DiscountHistory is the discount policy currently applied to an order.
type DiscountHistory struct {
	ID           int64          `db:"id" json:"id"`
	OrderID      int64          `db:"order_id" json:"orderId"`
	DispensaryID int64          `db:"dispensary_id" json:"dispensaryId"`
	Name         string         `db:"discount_name" json:"discountName"`
	Method       DiscountMethod `db:"discount_method" json:"discountMethod"`
	Value        types.Money    `db:"value" json:"value"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// Validate implements Validatable.
func (d *DiscountHistory) Validate() error {
	if !d.Method.Valid() {
		return apperror.NewValidation("unknown discount method " + string(d.Method)).WithDetail("field", "discountMethod")
	}
	if d.Method == DiscountByPercent && d.Value.GreaterThan(types.MustMoney("100")) {
		return apperror.NewValidation("discount percent can not exceed 100").WithDetail("field", "value")
	}
	return requireNonNegative("value", d.Value)
}

// LoyaltyProgram is a dispensary's loyalty configuration.
type LoyaltyProgram struct {
	ID           int64       `db:"id" json:"id"`
	DispensaryID int64       `db:"dispensary_id" json:"dispensaryId"`
	Name         string      `db:"name" json:"name"`
	Type         LoyaltyType `db:"type" json:"type"`
	PointWorth   types.Money `db:"point_worth" json:"pointWorth"`
	IsActive     bool        `db:"is_active" json:"isActive"`
}

// LoyaltyHistory records a redemption or an accrual of points.
type LoyaltyHistory struct {
	ID           int64         `db:"id" json:"id"`
	OrderID      int64         `db:"order_id" json:"orderId"`
	DispensaryID int64         `db:"dispensary_id" json:"dispensaryId"`
	CustomerID   int64         `db:"customer_id" json:"customerId"`
	LoyaltyID    int64         `db:"loyalty_id" json:"loyaltyId"`
	LoyaltyType  LoyaltyType   `db:"loyalty_type" json:"loyaltyType"`
	TxType       LoyaltyTxType `db:"tx_type" json:"txType"`
	Worth        types.Money   `db:"loyalty_worth" json:"loyaltyWorth"`
	Points       types.Money   `db:"value" json:"value"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
}

// Amount returns the monetary value of the transaction.
func (h *LoyaltyHistory) Amount() types.Money {
	return h.Worth.Mul(h.Points)
}

// TaxRule is an active tax applied to one product bucket.
type TaxRule struct {
	ID              int64       `db:"id" json:"id"`
	DispensaryID    int64       `db:"dispensary_id" json:"dispensaryId"`
	Name            string      `db:"tax_name" json:"taxName"`
	BasePercent     types.Money `db:"base_percent" json:"basePercent"`
	CompoundPercent types.Money `db:"compound_percent" json:"compoundPercent"`
	ApplyTo         MjType      `db:"apply_to" json:"applyTo"`
	IsTaxExempt     bool        `db:"is_tax_exempt" json:"isTaxExempt"`
	IsActive        bool        `db:"is_active" json:"isActive"`
	// Condition is an optional boolean expression over item and customer.
	Condition string `db:"condition" json:"condition,omitempty"`
}

// Validate implements Validatable.
func (r *TaxRule) Validate() error {
	switch r.ApplyTo {
	case MjTypeMJ, MjTypeNMJ:
	default:
		return apperror.NewValidation("unknown tax target " + string(r.ApplyTo)).WithDetail("field", "applyTo")
	}
	if err := requireNonNegative("basePercent", r.BasePercent); err != nil {
		return err
	}
	return requireNonNegative("compoundPercent", r.CompoundPercent)
}

// TaxHistory is a snapshot of one rule applied to one order item.
type TaxHistory struct {
	ID              int64       `db:"id" json:"id"`
	DispensaryID    int64       `db:"dispensary_id" json:"dispensaryId"`
	OrderID         int64       `db:"order_id" json:"orderId"`
	OrderItemID     int64       `db:"order_item_id" json:"orderItemId"`
	TaxName         string      `db:"tax_name" json:"taxName"`
	TaxPercent      types.Money `db:"tax_percent" json:"taxPercent"`
	CompoundPercent types.Money `db:"compound_percent" json:"compoundPercent"`
	TaxAmount       types.Money `db:"tax_amount" json:"taxAmount"`
}
