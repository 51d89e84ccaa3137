// Package compliance reconciles store inventory with the regulator:
// package sync, drift detection, staged adjustments and package lifecycle.
package compliance

import (
	"context"

	"cannapos/internal/core/entity"
)

// Repository defines persistence for packages, adjustments and sync runs.
type Repository interface {
	GetPackage(ctx context.Context, id int64) (*entity.Package, error)
	FindPackageByLabel(ctx context.Context, dispensaryID int64, label string) (*entity.Package, error)
	// UpsertPackage inserts or updates a package by (dispensary, label).
	// Regulator-side fields are overwritten; PosQty, ProductID and the
	// product connection of an existing row are kept. New rows start with
	// PosQty equal to Quantity.
	UpsertPackage(ctx context.Context, p *entity.Package) error
	UpdatePackage(ctx context.Context, p *entity.Package) error
	// ListDrift returns ACTIVE regulator packages connected to a product
	// whose PosQty differs from Quantity, and the total match count.
	ListDrift(ctx context.Context, filter DriftFilter) ([]*entity.Package, int, error)
	// ListEmptyActive returns ACTIVE packages with zero Quantity and PosQty.
	ListEmptyActive(ctx context.Context, dispensaryID int64) ([]*entity.Package, error)

	GetAdjustment(ctx context.Context, id int64) (*entity.AdjustPackage, error)
	CreateAdjustment(ctx context.Context, a *entity.AdjustPackage) error
	UpdateAdjustment(ctx context.Context, a *entity.AdjustPackage) error
	DeleteAdjustment(ctx context.Context, id int64) error
	// DeletePendingAdjustments removes unsynced adjustments of a label
	// that still need regulator sync.
	DeletePendingAdjustments(ctx context.Context, dispensaryID int64, label string) error
	ListPendingAdjustments(ctx context.Context, dispensaryID int64) ([]*entity.AdjustPackage, error)

	// LatestSync returns the most recent sync run of a type, or nil.
	LatestSync(ctx context.Context, dispensaryID int64, syncType entity.SyncType) (*entity.SyncHistory, error)
	CreateSyncHistory(ctx context.Context, h *entity.SyncHistory) error
}
