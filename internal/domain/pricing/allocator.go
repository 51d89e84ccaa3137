// Package pricing spreads order-level discounts and loyalty redemptions
// across order items.
package pricing

import (
	"github.com/shopspring/decimal"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// orderTotal sums persisted item amounts plus an amount not yet persisted.
func orderTotal(items []*entity.OrderItem, extraBase types.Money) types.Money {
	total := extraBase
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

// share returns value * part / total, or zero for an empty order.
func share(value, part, total types.Money) types.Money {
	if total.IsZero() {
		return decimal.Zero
	}
	return value.Mul(part).Div(total)
}

// AllocateDiscount writes DiscountedAmount on every item and returns the
// discount attributable to extraBase, the amount of an item being added.
//
//   - BYPERCENT: each item gets amount * value / 100.
//   - BYAMOUNT:  value is split by amount share.
//   - TOAMOUNT:  each item keeps its share of value, the rest is discount.
func AllocateDiscount(items []*entity.OrderItem, method entity.DiscountMethod, value, extraBase types.Money) types.Money {
	total := orderTotal(items, extraBase)

	var perItem func(amount types.Money) types.Money
	switch method {
	case entity.DiscountByPercent:
		perItem = func(amount types.Money) types.Money {
			return amount.Mul(value).Div(hundred)
		}
	case entity.DiscountByAmount:
		perItem = func(amount types.Money) types.Money {
			return share(value, amount, total)
		}
	case entity.DiscountToAmount:
		perItem = func(amount types.Money) types.Money {
			if total.IsZero() {
				return decimal.Zero
			}
			return amount.Sub(share(value, amount, total))
		}
	default:
		return decimal.Zero
	}

	for _, item := range items {
		item.DiscountedAmount = types.TruncateQuantity(perItem(item.Amount))
	}
	return types.TruncateQuantity(perItem(extraBase))
}

// ClearDiscount zeroes DiscountedAmount on every item.
func ClearDiscount(items []*entity.OrderItem) {
	for _, item := range items {
		item.DiscountedAmount = decimal.Zero
	}
}

// AllocateLoyalty splits worth * points across items by amount share and
// returns the portion attributable to extraBase. Only MANUAL programs
// allocate; other types leave items untouched and return zero.
func AllocateLoyalty(items []*entity.OrderItem, loyaltyType entity.LoyaltyType, worth, points, extraBase types.Money) types.Money {
	if loyaltyType != entity.LoyaltyManual {
		return decimal.Zero
	}

	total := orderTotal(items, extraBase)
	redeemed := worth.Mul(points)
	for _, item := range items {
		item.LoyaltyAmount = types.TruncateQuantity(share(redeemed, item.Amount, total))
	}
	return types.TruncateQuantity(share(redeemed, extraBase, total))
}

// ClearLoyalty zeroes LoyaltyAmount on every item.
func ClearLoyalty(items []*entity.OrderItem) {
	for _, item := range items {
		item.LoyaltyAmount = decimal.Zero
	}
}

// SumDiscount returns the sum of item discounts.
func SumDiscount(items []*entity.OrderItem) types.Money {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.DiscountedAmount)
	}
	return sum
}

// SumLoyalty returns the sum of item loyalty deductions.
func SumLoyalty(items []*entity.OrderItem) types.Money {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LoyaltyAmount)
	}
	return sum
}
