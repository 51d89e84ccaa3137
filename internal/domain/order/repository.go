// Package order implements the order lifecycle: line items, discounts,
// loyalty, tax, completion and regulator reporting.
package order

import (
	"context"

	"cannapos/internal/core/entity"
)

// Repository defines persistence for orders and their dependent rows.
// Get methods return apperror NotFound for missing rows; Find methods
// return nil when nothing matches.
type Repository interface {
	Create(ctx context.Context, o *entity.Order) error
	Get(ctx context.Context, id int64) (*entity.Order, error)
	// Lock loads the order and holds its row until the transaction ends.
	Lock(ctx context.Context, id int64) (*entity.Order, error)
	Update(ctx context.Context, o *entity.Order) error
	Delete(ctx context.Context, id int64) error

	ListItems(ctx context.Context, orderID int64) ([]*entity.OrderItem, error)
	GetItem(ctx context.Context, itemID int64) (*entity.OrderItem, error)
	CreateItem(ctx context.Context, item *entity.OrderItem) error
	// UpdateAllocations persists discounted and loyalty amounts of items.
	UpdateAllocations(ctx context.Context, items []*entity.OrderItem) error
	DeleteItem(ctx context.Context, itemID int64) error
	DeleteItems(ctx context.Context, orderID int64) error

	FindDiscount(ctx context.Context, orderID int64) (*entity.DiscountHistory, error)
	CreateDiscount(ctx context.Context, d *entity.DiscountHistory) error
	DeleteDiscounts(ctx context.Context, orderID int64) error

	FindLoyalty(ctx context.Context, orderID int64, txType entity.LoyaltyTxType) (*entity.LoyaltyHistory, error)
	CreateLoyalty(ctx context.Context, h *entity.LoyaltyHistory) error
	// DeleteLoyalty removes loyalty rows of the given type, or all when txType is empty.
	DeleteLoyalty(ctx context.Context, orderID int64, txType entity.LoyaltyTxType) error

	ListTaxes(ctx context.Context, orderID int64) ([]entity.TaxHistory, error)
	// ReplaceTaxes deletes every tax row of the order and inserts rows.
	ReplaceTaxes(ctx context.Context, orderID int64, rows []entity.TaxHistory) error
	DeleteTaxes(ctx context.Context, orderID int64) error
}

// PackageReader resolves the packages referenced by order items.
type PackageReader interface {
	FindPackageByLabel(ctx context.Context, dispensaryID int64, label string) (*entity.Package, error)
}
