package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
)

func TestColumns_FlattensTimestamps(t *testing.T) {
	cols := Columns[entity.Package]()
	assert.Contains(t, cols, "package_label")
	assert.Contains(t, cols, "pos_qty")
	assert.Contains(t, cols, "created_at")
	assert.Contains(t, cols, "updated_at")
}

func TestToMap(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	p := &entity.Package{
		ID:         4,
		Label:      "PKG-1",
		PosQty:     types.MustMoney("2.5"),
		Timestamps: entity.Timestamps{CreatedAt: now, UpdatedAt: now},
	}

	m := ToMap(p, "id")
	_, hasID := m["id"]
	assert.False(t, hasID)
	assert.Equal(t, "PKG-1", m["package_label"])
	assert.Equal(t, now, m["created_at"])
	assert.True(t, types.MustMoney("2.5").Equal(m["pos_qty"].(types.Money)))
}
