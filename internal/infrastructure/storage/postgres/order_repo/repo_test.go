package order_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/infrastructure/storage/postgres"
)

func TestInsertTaxesQuery(t *testing.T) {
	rows := []entity.TaxHistory{
		{DispensaryID: 1, OrderID: 2, OrderItemID: 3, TaxName: "State", TaxPercent: types.MustMoney("5"), TaxAmount: types.MustMoney("1.25")},
		{DispensaryID: 1, OrderID: 2, OrderItemID: 4, TaxName: "City", TaxPercent: types.MustMoney("2"), TaxAmount: types.MustMoney("0.4")},
	}

	sql, args, err := insertTaxesQuery(rows).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO tax_histories (dispensary_id,order_id,order_item_id,tax_name,tax_percent,compound_percent,tax_amount) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14)",
		sql)
	assert.Len(t, args, 14)
	assert.Equal(t, "City", args[10])
}

func TestAllocationQuery(t *testing.T) {
	it := &entity.OrderItem{ID: 8, DiscountedAmount: types.MustMoney("1.5"), LoyaltyAmount: types.MustMoney("0.5")}
	sql, args, err := allocationQuery(it).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE order_items SET discounted_amount = $1, loyalty_amount = $2 WHERE id = $3", sql)
	assert.Equal(t, int64(8), args[2])
}

func TestLockQuery(t *testing.T) {
	sql, args, err := lockQuery(postgres.Builder().Select("id", "status").From("orders"), 7).Limit(1).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, status FROM orders WHERE id = $1 LIMIT 1 FOR UPDATE", sql)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestLoyaltyFilter(t *testing.T) {
	all := loyaltyFilter(5, "")
	assert.Len(t, all, 1)

	spend := loyaltyFilter(5, entity.LoyaltySpend)
	assert.Equal(t, entity.LoyaltySpend, spend["tx_type"])
}
