package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	appctx "cannapos/internal/core/context"
)

func TestEnrich(t *testing.T) {
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: 5, DispensaryID: 9})

	e := Entry{Action: ActionOrderCreate}
	Enrich(ctx, &e)
	assert.Equal(t, int64(5), e.UserID)
	assert.Equal(t, int64(9), e.DispensaryID)
	assert.False(t, e.CreatedAt.IsZero())

	e = Entry{Action: ActionPackageSync, UserID: 1, DispensaryID: 2}
	Enrich(ctx, &e)
	assert.Equal(t, int64(1), e.UserID)
	assert.Equal(t, int64(2), e.DispensaryID)
}

func TestEnrich_NoUser(t *testing.T) {
	e := Entry{Action: ActionPackageSync}
	Enrich(context.Background(), &e)
	assert.Zero(t, e.UserID)
	assert.False(t, e.CreatedAt.IsZero())
}
