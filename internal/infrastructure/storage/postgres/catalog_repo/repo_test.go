package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/core/types"
)

func TestAddPointsQuery(t *testing.T) {
	sql, args, err := addPointsQuery(5, types.MustMoney("-12.5")).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE customers SET loyalty_points = loyalty_points + $1 WHERE id = $2", sql)
	require.Len(t, args, 2)
	assert.Equal(t, "-12.5", args[0].(types.Money).String())
	assert.Equal(t, int64(5), args[1])
}

func TestListMetrcDispensariesQuery(t *testing.T) {
	r := New(nil)
	sql, _, err := r.dispensaries.Select().ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM dispensaries")
	assert.Contains(t, sql, "metrc_api_key")
}
