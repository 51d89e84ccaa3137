// Package catalog provides read access to the dispensary master data used
// by order pricing and compliance.
package catalog

import (
	"context"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
)

// Repository defines persistence for master data.
// Single-record lookups return apperror NotFound when the row is missing.
type Repository interface {
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
	GetCategory(ctx context.Context, id int64) (*entity.ItemCategory, error)
	GetCustomer(ctx context.Context, id int64) (*entity.Customer, error)

	// AddCustomerPoints changes a customer's loyalty balance by delta.
	AddCustomerPoints(ctx context.Context, customerID int64, delta types.Money) error

	GetDispensary(ctx context.Context, id int64) (*entity.Dispensary, error)

	// ListMetrcDispensaries returns dispensaries with an active regulator connection.
	ListMetrcDispensaries(ctx context.Context) ([]*entity.Dispensary, error)

	// ActiveDrawer returns the drawer a user is currently working, or nil.
	ActiveDrawer(ctx context.Context, dispensaryID, userID int64) (*entity.Drawer, error)

	// ActiveLoyalty returns the dispensary's active loyalty program, or nil.
	ActiveLoyalty(ctx context.Context, dispensaryID int64) (*entity.LoyaltyProgram, error)

	ListTaxRules(ctx context.Context, dispensaryID int64) ([]entity.TaxRule, error)
	ListPurchaseLimits(ctx context.Context, dispensaryID int64) ([]entity.PurchaseLimit, error)
}

// LimitCache stores purchase limits per dispensary.
type LimitCache interface {
	// Get returns the cached limits and whether they were present.
	Get(ctx context.Context, dispensaryID int64) ([]entity.PurchaseLimit, bool, error)
	Set(ctx context.Context, dispensaryID int64, limits []entity.PurchaseLimit) error
	Invalidate(ctx context.Context, dispensaryID int64) error
}
