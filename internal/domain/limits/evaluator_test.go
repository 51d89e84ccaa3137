package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/core/units"
)

var flower = &entity.ItemCategory{ID: 1, Name: "Flower", ContainMj: true, PurchaseLimitType: "flower"}

func gramLimit(amount string) entity.PurchaseLimit {
	return entity.PurchaseLimit{
		LimitType:   "flower",
		LimitAmount: types.MustMoney(amount),
		LimitUnit:   units.Gram,
		LimitWeight: entity.LimitByNetWeight,
	}
}

func bulk() *entity.Product {
	return &entity.Product{ID: 1, Name: "Bulk flower", UnitOfMeasure: entity.ProductUnitGram}
}

func grams(q string) Line {
	return Line{Quantity: types.MustMoney(q), Product: bulk(), Category: flower}
}

func TestCheck_Gate(t *testing.T) {
	e := NewEvaluator([]entity.PurchaseLimit{gramLimit("28")})
	existing := []Line{grams("27")}

	_, err := e.Check(existing, grams("2"))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Exceeded flower limit")

	res, err := e.Check(existing, grams("1"))
	require.NoError(t, err)
	assert.True(t, res.Accept)
	assert.Equal(t, "flower", res.LimitType)
	assert.True(t, res.Usage["flower"].Equal(types.MustMoney("28")))
}

func TestCheck_MissingLimitType(t *testing.T) {
	e := NewEvaluator([]entity.PurchaseLimit{gramLimit("28")})
	unset := &entity.ItemCategory{Name: "Vapes", ContainMj: true}

	_, err := e.Check(nil, Line{Quantity: types.MustMoney("1"), Product: bulk(), Category: unset})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please set Limit Type for Vapes")
}

func TestCheck_NotGated(t *testing.T) {
	e := NewEvaluator([]entity.PurchaseLimit{gramLimit("28")})

	t.Run("non regulated", func(t *testing.T) {
		res, err := e.Check(nil, Line{Quantity: types.MustMoney("500"), Product: bulk(), Category: &entity.ItemCategory{Name: "Apparel"}})
		require.NoError(t, err)
		assert.True(t, res.Accept)
	})

	t.Run("type without limit", func(t *testing.T) {
		edible := &entity.ItemCategory{Name: "Edible", ContainMj: true, PurchaseLimitType: "edible"}
		res, err := e.Check(nil, Line{Quantity: types.MustMoney("500"), Product: bulk(), Category: edible})
		require.NoError(t, err)
		assert.True(t, res.Accept)
		assert.Empty(t, res.LimitType)
	})
}

func TestContribution_Units(t *testing.T) {
	ounceLimit := gramLimit("1")
	ounceLimit.LimitUnit = units.Ounce
	e := NewEvaluator([]entity.PurchaseLimit{ounceLimit})

	_, qty, ok := e.Contribution(grams("28.3495"))
	require.True(t, ok)
	// 28.3495 g * 0.035274 = 1.0000002... oz
	assert.True(t, qty.Sub(types.MustMoney("1")).Abs().LessThan(types.MustMoney("0.000001")))
}

func TestContribution_EachProducts(t *testing.T) {
	preroll := &entity.Product{
		ID:                2,
		Name:              "Pre-roll 0.5g",
		UnitOfMeasure:     entity.ProductUnitEach,
		UnitWeight:        types.MustMoney("0.5"),
		UnitOfUnitWeight:  units.Gram,
		NetWeight:         types.MustMoney("700"),
		UnitOfNetWeight:   units.Milligram,
		IsApplyUnitWeight: true,
	}

	tests := []struct {
		name  string
		basis entity.LimitWeightBasis
		line  Line
		want  string
	}{
		{
			name:  "raw count by unit weight",
			basis: entity.LimitByUnitWeight,
			line:  Line{Quantity: types.MustMoney("3"), Product: preroll, Category: flower, Raw: true},
			want:  "1.5",
		},
		{
			name:  "persisted quantity by unit weight",
			basis: entity.LimitByUnitWeight,
			line:  Line{Quantity: types.MustMoney("1.5"), Product: preroll, Category: flower},
			want:  "1.5",
		},
		{
			name:  "persisted quantity by net weight in mg",
			basis: entity.LimitByNetWeight,
			line:  Line{Quantity: types.MustMoney("1.5"), Product: preroll, Category: flower},
			want:  "2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit := gramLimit("28")
			limit.LimitWeight = tt.basis
			e := NewEvaluator([]entity.PurchaseLimit{limit})

			_, qty, ok := e.Contribution(tt.line)
			require.True(t, ok)
			assert.True(t, qty.Equal(types.MustMoney(tt.want)), "got %s", qty)
		})
	}
}

func TestUsage_GroupsByType(t *testing.T) {
	conc := &entity.ItemCategory{Name: "Concentrate", ContainMj: true, PurchaseLimitType: "concentrate"}
	concLimit := entity.PurchaseLimit{LimitType: "concentrate", LimitAmount: types.MustMoney("8"), LimitUnit: units.Gram, LimitWeight: entity.LimitByNetWeight}
	e := NewEvaluator([]entity.PurchaseLimit{gramLimit("28"), concLimit})

	usage := e.Usage([]Line{
		grams("3.5"),
		grams("7"),
		{Quantity: types.MustMoney("1"), Product: bulk(), Category: conc},
	})

	assert.True(t, usage["flower"].Equal(types.MustMoney("10.5")))
	assert.True(t, usage["concentrate"].Equal(types.MustMoney("1")))
}
