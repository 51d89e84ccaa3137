// Package totals computes the read-side money summary of an order.
package totals

import (
	"github.com/shopspring/decimal"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
)

// Totals holds the raw sums of an order.
type Totals struct {
	SubTotal  types.Money
	Tax       types.Money
	Discount  types.Money
	NetTotal  types.Money
	Total     types.Money
	Cash      types.Money
	Other     types.Money
	ChangeDue types.Money
}

// Display is Totals rendered with two fixed decimals.
type Display struct {
	SubTotal  string `json:"subTotal"`
	Tax       string `json:"tax"`
	Discount  string `json:"discount"`
	NetTotal  string `json:"netTotal"`
	Total     string `json:"total"`
	Cash      string `json:"cash"`
	Other     string `json:"other"`
	ChangeDue string `json:"changeDue"`
}

// TaxByItem groups tax history rows by order item.
func TaxByItem(taxes []entity.TaxHistory) map[int64]types.Money {
	byItem := make(map[int64]types.Money, len(taxes))
	for _, t := range taxes {
		byItem[t.OrderItemID] = types.TruncateQuantity(byItem[t.OrderItemID].Add(types.TruncateQuantity(t.TaxAmount)))
	}
	return byItem
}

// ItemNet is the amount of a line after discount, loyalty and tax.
func ItemNet(item *entity.OrderItem, itemTax types.Money) types.Money {
	return types.TruncateQuantity(
		types.TruncateQuantity(item.Amount).
			Sub(item.DiscountedAmount).
			Sub(item.LoyaltyAmount).
			Sub(types.TruncateQuantity(itemTax)),
	)
}

// Aggregate sums an order. Every term is truncated to 4 decimals before it
// is added; NetTotal is derived from the 2-decimal presentation values.
func Aggregate(order *entity.Order, items []*entity.OrderItem, taxes []entity.TaxHistory) Totals {
	taxByItem := TaxByItem(taxes)

	t := Totals{
		SubTotal: decimal.Zero,
		Tax:      decimal.Zero,
		Discount: decimal.Zero,
	}
	for _, item := range items {
		t.SubTotal = t.SubTotal.Add(types.TruncateQuantity(item.Amount))
		t.Tax = t.Tax.Add(taxByItem[item.ID])
		t.Discount = t.Discount.
			Add(types.TruncateQuantity(item.DiscountedAmount)).
			Add(types.TruncateQuantity(item.LoyaltyAmount))
	}
	t.NetTotal = types.TruncateCurrency(t.SubTotal).
		Sub(types.TruncateCurrency(t.Discount)).
		Sub(types.TruncateCurrency(t.Tax))

	t.Cash = types.TruncateQuantity(order.Cash)
	t.Other = types.TruncateQuantity(order.Other)
	t.ChangeDue = types.TruncateQuantity(order.ChangeDue)
	t.Total = types.TruncateQuantity(t.Cash.Sub(t.Other).Sub(t.ChangeDue))
	return t
}

// Display renders the totals for clients and receipts.
func (t Totals) Display() Display {
	return Display{
		SubTotal:  types.Fixed2(t.SubTotal),
		Tax:       types.Fixed2(t.Tax),
		Discount:  types.Fixed2(t.Discount),
		NetTotal:  types.Fixed2(t.NetTotal),
		Total:     types.Fixed2(t.Total),
		Cash:      types.Fixed2(t.Cash),
		Other:     types.Fixed2(t.Other),
		ChangeDue: types.Fixed2(t.ChangeDue),
	}
}
