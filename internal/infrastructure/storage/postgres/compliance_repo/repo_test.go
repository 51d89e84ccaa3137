package compliance_repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/compliance"
)

func TestUpsertQuery_KeepsStoreColumns(t *testing.T) {
	p := &entity.Package{
		DispensaryID: 1,
		PackageID:    77,
		Label:        "1A4000000000000000000001",
		Status:       entity.PackageActive,
		Quantity:     types.MustMoney("12"),
		PosQty:       types.MustMoney("3"),
	}

	sql, args, err := upsertQuery(p).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "ON CONFLICT (dispensary_id, package_label) DO UPDATE SET")
	update := sql[strings.Index(sql, "DO UPDATE SET"):]
	assert.Contains(t, update, "quantity = EXCLUDED.quantity")
	assert.NotContains(t, update, "pos_qty = EXCLUDED")
	assert.NotContains(t, update, "product_id = EXCLUDED.product_id")
	assert.True(t, strings.HasSuffix(sql, "RETURNING id, pos_qty, product_id, is_connected_with_product, created_at"))

	// New rows start with the regulator quantity.
	var posQty types.Money
	cols := sql[strings.Index(sql, "(")+1 : strings.Index(sql, ")")]
	for i, c := range strings.Split(cols, ",") {
		if c == "pos_qty" {
			posQty = args[i].(types.Money)
		}
	}
	assert.Equal(t, "12", posQty.String())
}

func TestDriftQuery(t *testing.T) {
	r := New(nil)
	sql, args, err := r.driftQuery(compliance.DriftFilter{
		DispensaryID: 4,
		SortKey:      compliance.SortPosQty,
		Desc:         true,
		Limit:        10,
		Offset:       20,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "pos_qty <> quantity")
	assert.Contains(t, sql, "package_id > $")
	assert.Contains(t, sql, "ORDER BY pos_qty DESC, id DESC LIMIT 10 OFFSET 20")
	assert.Contains(t, args, int64(4))
}
