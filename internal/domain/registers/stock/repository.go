package stock

import (
	"context"

	"cannapos/internal/core/types"
)

// Repository updates store-side package quantities.
type Repository interface {
	// AdjustPosQty adds delta to the PosQty of the labelled package.
	// Returns a not-found AppError when no package carries the label.
	AdjustPosQty(ctx context.Context, dispensaryID int64, label string, delta types.Money) error
}
