package entity

import (
	"time"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/types"
)

// PackageStatus is the compliance state of a package.
type PackageStatus string

const (
	PackageActive   PackageStatus = "ACTIVE"
	PackageHold     PackageStatus = "HOLD"
	PackageFinished PackageStatus = "FINISHED"
	// PackagePending marks non-regulated packages awaiting manual creation.
	PackagePending PackageStatus = "PENDING"
)

// Valid reports whether s is a known status.
func (s PackageStatus) Valid() bool {
	switch s {
	case PackageActive, PackageHold, PackageFinished, PackagePending:
		return true
	}
	return false
}

// SyncType identifies what a SyncHistory row tracks.
type SyncType string

const (
	SyncTypePackage SyncType = "package"
	SyncTypeReceipt SyncType = "receipt"
)

// Package is a store-side inventory record, optionally mirrored from the regulator.
type Package struct {
	ID           int64 `db:"id" json:"id"`
	DispensaryID int64 `db:"dispensary_id" json:"dispensaryId"`
	// PackageID is the regulator's identifier, 0 for packages the regulator does not track.
	PackageID int64         `db:"package_id" json:"packageId"`
	Label     string        `db:"package_label" json:"packageLabel"`
	Status    PackageStatus `db:"package_status" json:"packageStatus"`

	// Quantity is the last-known regulator quantity.
	Quantity types.Money `db:"quantity" json:"quantity"`
	// PosQty is the store-side quantity.
	PosQty      types.Money `db:"pos_qty" json:"posQty"`
	OriginalQty types.Money `db:"original_qty" json:"originalQty"`

	UnitOfMeasureName      string     `db:"unit_of_measure_name" json:"unitOfMeasureName"`
	ItemName               string     `db:"item_name" json:"itemName"`
	ItemCategory           string     `db:"item_product_category_name" json:"itemProductCategoryName"`
	ProductID              *int64     `db:"product_id" json:"productId,omitempty"`
	IsConnectedWithProduct bool       `db:"is_connected_with_product" json:"isConnectedWithProduct"`
	LastModified           *time.Time `db:"last_modified" json:"lastModified,omitempty"`

	Timestamps
}

// Validate implements Validatable.
func (p *Package) Validate() error {
	if p.Label == "" {
		return apperror.NewValidation("package label is required").WithDetail("field", "packageLabel")
	}
	if !p.Status.Valid() {
		return apperror.NewValidation("unknown package status " + string(p.Status)).WithDetail("field", "packageStatus")
	}
	return nil
}

// IsRegulated reports whether the regulator tracks the package.
func (p *Package) IsRegulated() bool { return p.PackageID > 0 }

// Drift is the store quantity minus the regulator quantity.
func (p *Package) Drift() types.Money {
	return types.TruncateQuantity(p.PosQty.Sub(p.Quantity))
}

// AdjustPackage is a staged quantity correction.
type AdjustPackage struct {
	ID           int64  `db:"id" json:"id"`
	DispensaryID int64  `db:"dispensary_id" json:"dispensaryId"`
	UserID       int64  `db:"user_id" json:"userId"`
	PackageID    int64  `db:"package_id" json:"packageId"`
	PackageLabel string `db:"package_label" json:"packageLabel"`

	NewQty types.Money `db:"new_qty" json:"newQty"`
	// PrevQty is the regulator quantity the delta was computed against.
	PrevQty types.Money `db:"prev_qty" json:"prevQty"`
	Delta   types.Money `db:"delta" json:"delta"`

	UnitOfMeasureName string `db:"unit_of_measure_name" json:"unitOfMeasureName"`
	Reason            string `db:"reason" json:"reason"`
	Notes             string `db:"notes" json:"notes"`

	NeedMetrcSync bool       `db:"need_metrc_sync" json:"needMetrcSync"`
	SyncMetrc     bool       `db:"sync_metrc" json:"syncMetrc"`
	SyncedAt      *time.Time `db:"synced_at" json:"syncedAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// Validate implements Validatable.
func (a *AdjustPackage) Validate() error {
	if a.PackageLabel == "" {
		return apperror.NewValidation("package label is required").WithDetail("field", "packageLabel")
	}
	if a.NeedMetrcSync && a.Reason == "" {
		return apperror.NewValidation("adjustment reason is required").WithDetail("field", "reason")
	}
	return requireNonNegative("newQty", a.NewQty)
}

// SyncHistory records a regulator synchronization run.
type SyncHistory struct {
	ID           int64     `db:"id" json:"id"`
	DispensaryID int64     `db:"dispensary_id" json:"dispensaryId"`
	UserID       int64     `db:"user_id" json:"userId"`
	SyncType     SyncType  `db:"sync_type" json:"syncType"`
	IsSuccess    bool      `db:"is_success" json:"isSuccess"`
	Count        int       `db:"count" json:"count"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
