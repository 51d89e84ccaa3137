// Package tax computes compounded per-item tax lines for an order.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// Calculator applies tax rules to order items.
type Calculator struct {
	matcher *RuleMatcher
}

// NewCalculator creates a calculator. A nil matcher ignores rule conditions.
func NewCalculator(matcher *RuleMatcher) *Calculator {
	return &Calculator{matcher: matcher}
}

// Applies reports whether a rule is eligible for the item before conditions.
func Applies(rule *entity.TaxRule, item *entity.OrderItem, customer *entity.Customer) bool {
	if !rule.IsActive || rule.DispensaryID != item.DispensaryID {
		return false
	}
	if rule.ApplyTo != item.MjType {
		return false
	}
	if customer != nil && customer.IsTaxExempt && rule.IsTaxExempt {
		return false
	}
	return true
}

// Compute returns one TaxHistory per (item, applicable rule) and the order tax.
// Each line is fundAmount * compoundPercent / 100 truncated to 4 decimals.
func (c *Calculator) Compute(orderID int64, items []*entity.OrderItem, rules []entity.TaxRule, customer *entity.Customer) ([]entity.TaxHistory, types.Money, error) {
	lines := make([]entity.TaxHistory, 0, len(items)*len(rules))
	sum := decimal.Zero

	for _, item := range items {
		fund := item.FundAmount()
		for i := range rules {
			rule := &rules[i]
			if !Applies(rule, item, customer) {
				continue
			}
			if c.matcher != nil {
				ok, err := c.matcher.Match(rule, item, customer)
				if err != nil {
					return nil, decimal.Zero, fmt.Errorf("rule %d: %w", rule.ID, err)
				}
				if !ok {
					continue
				}
			}

			amount := types.TruncateQuantity(fund.Mul(rule.CompoundPercent).Div(hundred))
			lines = append(lines, entity.TaxHistory{
				DispensaryID:    item.DispensaryID,
				OrderID:         orderID,
				OrderItemID:     item.ID,
				TaxName:         rule.Name,
				TaxPercent:      rule.BasePercent,
				CompoundPercent: rule.CompoundPercent,
				TaxAmount:       amount,
			})
			sum = sum.Add(amount)
		}
	}

	return lines, sum, nil
}
