// Package limits enforces per-visit purchase caps on regulated product.
package limits

import (
	"github.com/shopspring/decimal"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/core/units"
)

// Line is an order line as seen by the evaluator.
type Line struct {
	Quantity types.Money
	Product  *entity.Product
	Category *entity.ItemCategory
	// Raw marks a quantity as entered at the register, before the
	// product's unit-weight factor was applied.
	Raw bool
}

// Result is the outcome of a limit check.
type Result struct {
	Accept bool
	// Usage is the converted quantity per limit type, including the
	// candidate when it was accepted.
	Usage map[string]types.Money
	// LimitType is the candidate's limit type, empty when it is not gated.
	LimitType string
}

// Evaluator checks order lines against a dispensary's purchase limits.
type Evaluator struct {
	limits map[string]entity.PurchaseLimit
}

// NewEvaluator indexes limits by type.
func NewEvaluator(limits []entity.PurchaseLimit) *Evaluator {
	idx := make(map[string]entity.PurchaseLimit, len(limits))
	for _, l := range limits {
		idx[l.LimitType] = l
	}
	return &Evaluator{limits: idx}
}

// Limit returns the configured limit for a type.
func (e *Evaluator) Limit(limitType string) (entity.PurchaseLimit, bool) {
	l, ok := e.limits[limitType]
	return l, ok
}

// Contribution converts a line's quantity into the unit of its limit.
// ok is false for non-regulated lines and limit types without a cap.
func (e *Evaluator) Contribution(line Line) (limitType string, qty types.Money, ok bool) {
	if line.Category == nil || !line.Category.ContainMj || line.Category.PurchaseLimitType == "" {
		return "", decimal.Zero, false
	}
	limitType = line.Category.PurchaseLimitType
	limit, ok := e.limits[limitType]
	if !ok {
		return limitType, decimal.Zero, false
	}

	p := line.Product
	if !p.UnitOfMeasure.IsEach() {
		// Weight products are persisted in grams.
		return limitType, units.Convert(line.Quantity, units.Gram, limit.LimitUnit), true
	}

	weight, unit := p.EffectiveNetWeight(), p.UnitOfNetWeight
	if limit.LimitWeight == entity.LimitByUnitWeight {
		weight, unit = p.EffectiveUnitWeight(), p.UnitOfUnitWeight
	}

	var raw types.Money
	if !line.Raw && p.IsApplyUnitWeight && p.UnitWeight.IsPositive() {
		raw = types.TruncateCurrency(line.Quantity.Div(p.UnitWeight).Mul(weight))
	} else {
		raw = line.Quantity.Mul(weight)
	}
	return limitType, units.Convert(raw, unitOrGram(unit), limit.LimitUnit), true
}

// Usage sums the converted quantities of regulated lines per limit type.
func (e *Evaluator) Usage(lines []Line) map[string]types.Money {
	usage := make(map[string]types.Money)
	for _, line := range lines {
		limitType, qty, ok := e.Contribution(line)
		if !ok {
			continue
		}
		usage[limitType] = usage[limitType].Add(qty)
	}
	return usage
}

// Check gates the candidate against the current usage of lines.
// Rejections are returned as validation errors naming the limit type.
func (e *Evaluator) Check(lines []Line, candidate Line) (Result, error) {
	usage := e.Usage(lines)
	res := Result{Usage: usage}

	if candidate.Category == nil || !candidate.Category.ContainMj {
		res.Accept = true
		return res, nil
	}
	if candidate.Category.PurchaseLimitType == "" {
		return res, apperror.NewValidation("Please set Limit Type for " + candidate.Category.Name)
	}

	limitType, qty, ok := e.Contribution(candidate)
	if !ok {
		res.Accept = true
		return res, nil
	}
	res.LimitType = limitType

	limit := e.limits[limitType]
	after := usage[limitType].Add(qty)
	if after.GreaterThan(limit.LimitAmount) {
		return res, apperror.NewValidation("Exceeded " + limitType + " limit").
			WithDetail("limitType", limitType).
			WithDetail("limit", limit.LimitAmount.String()).
			WithDetail("requested", after.String())
	}

	usage[limitType] = after
	res.Accept = true
	return res, nil
}

func unitOrGram(u units.Unit) units.Unit {
	if u == "" {
		return units.Gram
	}
	return u
}
