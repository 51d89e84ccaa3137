package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/types"
	"cannapos/internal/core/units"
)

func TestNewOrder_Defaults(t *testing.T) {
	o := NewOrder(1, 2, 3, nil, "", "")

	assert.Equal(t, OrderStatusEdit, o.Status)
	assert.Equal(t, OrderTypeSale, o.OrderType)
	assert.Equal(t, MjTypeNone, o.MjType)
	assert.True(t, o.IsEditable())
	require.NoError(t, o.Validate())
}

func TestOrder_Validate(t *testing.T) {
	o := NewOrder(1, 2, 3, nil, "DRAFT", OrderTypeSale)
	err := o.Validate()
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	o = NewOrder(1, 2, 3, nil, OrderStatusEdit, OrderTypeSale)
	o.Cash = types.MustMoney("-1")
	assert.Error(t, o.Validate())
}

func TestPurchaseLimit_Validate(t *testing.T) {
	tests := []struct {
		name    string
		limit   PurchaseLimit
		wantErr bool
	}{
		{
			name:  "valid",
			limit: PurchaseLimit{LimitType: "flower", LimitAmount: types.MustMoney("28"), LimitUnit: units.Gram, LimitWeight: LimitByNetWeight},
		},
		{
			name:    "unknown unit",
			limit:   PurchaseLimit{LimitType: "flower", LimitAmount: types.MustMoney("28"), LimitUnit: "lb", LimitWeight: LimitByNetWeight},
			wantErr: true,
		},
		{
			name:    "missing type",
			limit:   PurchaseLimit{LimitAmount: types.MustMoney("28"), LimitUnit: units.Gram, LimitWeight: LimitByNetWeight},
			wantErr: true,
		},
		{
			name:    "unknown basis",
			limit:   PurchaseLimit{LimitType: "flower", LimitAmount: types.MustMoney("28"), LimitUnit: units.Gram, LimitWeight: "gross"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.limit.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProduct_Weights(t *testing.T) {
	p := Product{Name: "Pre-roll", UnitOfMeasure: ProductUnitEach}
	assert.True(t, p.EffectiveUnitWeight().Equal(types.MustMoney("1")))
	assert.True(t, p.EffectiveNetWeight().Equal(types.MustMoney("1")))
	assert.True(t, p.ApplyUnitWeightFactor().Equal(types.MustMoney("1")))

	p.UnitWeight = types.MustMoney("0.5")
	p.IsApplyUnitWeight = true
	assert.True(t, p.ApplyUnitWeightFactor().Equal(types.MustMoney("0.5")))

	p.UnitOfMeasure = ProductUnitGram
	assert.True(t, p.ApplyUnitWeightFactor().Equal(types.MustMoney("1")))
}

func TestOrderItem_FundAmount(t *testing.T) {
	item := OrderItem{
		Amount:           types.MustMoney("100"),
		DiscountedAmount: types.MustMoney("10"),
		LoyaltyAmount:    types.MustMoney("5"),
	}
	assert.True(t, item.FundAmount().Equal(types.MustMoney("85")))
}

func TestPackage_Drift(t *testing.T) {
	p := Package{PosQty: types.MustMoney("12"), Quantity: types.MustMoney("15")}
	assert.True(t, p.Drift().Equal(types.MustMoney("-3")))
}
