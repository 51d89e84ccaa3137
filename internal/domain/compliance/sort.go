package compliance

import (
	"cannapos/internal/core/apperror"
	"cannapos/internal/core/entity"
)

// SortKey orders the drift listing.
type SortKey string

const (
	SortLabel       SortKey = "label"
	SortPackageID   SortKey = "packageId"
	SortQuantity    SortKey = "quantity"
	SortPosQty      SortKey = "posQty"
	SortOriginalQty SortKey = "originalQty"
	SortStatus      SortKey = "status"
	SortItemName    SortKey = "itemName"
)

type sortSpec struct {
	column string
	less   func(a, b *entity.Package) bool
}

var sortKeys = map[SortKey]sortSpec{
	SortLabel:       {"package_label", func(a, b *entity.Package) bool { return a.Label < b.Label }},
	SortPackageID:   {"package_id", func(a, b *entity.Package) bool { return a.PackageID < b.PackageID }},
	SortQuantity:    {"quantity", func(a, b *entity.Package) bool { return a.Quantity.LessThan(b.Quantity) }},
	SortPosQty:      {"pos_qty", func(a, b *entity.Package) bool { return a.PosQty.LessThan(b.PosQty) }},
	SortOriginalQty: {"original_qty", func(a, b *entity.Package) bool { return a.OriginalQty.LessThan(b.OriginalQty) }},
	SortStatus:      {"package_status", func(a, b *entity.Package) bool { return a.Status < b.Status }},
	SortItemName:    {"item_name", func(a, b *entity.Package) bool { return a.ItemName < b.ItemName }},
}

// ParseSortKey validates a sort key; empty selects SortLabel.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortLabel, nil
	}
	k := SortKey(s)
	if _, ok := sortKeys[k]; !ok {
		return "", apperror.NewValidation("unknown sort key " + s).WithDetail("field", "sort")
	}
	return k, nil
}

// Column returns the storage column of the key.
func (k SortKey) Column() string {
	if spec, ok := sortKeys[k]; ok {
		return spec.column
	}
	return sortKeys[SortLabel].column
}

// Less compares two packages by the key.
func (k SortKey) Less(a, b *entity.Package) bool {
	spec, ok := sortKeys[k]
	if !ok {
		spec = sortKeys[SortLabel]
	}
	return spec.less(a, b)
}

// DriftFilter selects and pages the drift listing.
type DriftFilter struct {
	DispensaryID int64
	SortKey      SortKey
	Desc         bool
	Limit        int
	Offset       int
}

const (
	defaultDriftLimit = 50
	maxDriftLimit     = 500
)

func (f *DriftFilter) normalize() {
	if f.SortKey == "" {
		f.SortKey = SortLabel
	}
	if f.Limit <= 0 {
		f.Limit = defaultDriftLimit
	}
	if f.Limit > maxDriftLimit {
		f.Limit = maxDriftLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
