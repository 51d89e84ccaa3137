// Package catalog_repo stores dispensary master data in PostgreSQL.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/infrastructure/storage/postgres"
)

var _ catalog.Repository = (*Repo)(nil)

// Repo implements catalog.Repository.
type Repo struct {
	products     *postgres.Table[entity.Product]
	categories   *postgres.Table[entity.ItemCategory]
	customers    *postgres.Table[entity.Customer]
	dispensaries *postgres.Table[entity.Dispensary]
	drawers      *postgres.Table[entity.Drawer]
	loyalties    *postgres.Table[entity.LoyaltyProgram]
	taxRules     *postgres.Table[entity.TaxRule]
	limits       *postgres.Table[entity.PurchaseLimit]
}

// New creates a catalog repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		products:     postgres.NewTable[entity.Product](txm, "products", "product"),
		categories:   postgres.NewTable[entity.ItemCategory](txm, "item_categories", "item category"),
		customers:    postgres.NewTable[entity.Customer](txm, "customers", "customer"),
		dispensaries: postgres.NewTable[entity.Dispensary](txm, "dispensaries", "dispensary"),
		drawers:      postgres.NewTable[entity.Drawer](txm, "drawers", "drawer"),
		loyalties:    postgres.NewTable[entity.LoyaltyProgram](txm, "loyalty_programs", "loyalty program"),
		taxRules:     postgres.NewTable[entity.TaxRule](txm, "tax_rules", "tax rule"),
		limits:       postgres.NewTable[entity.PurchaseLimit](txm, "purchase_limits", "purchase limit"),
	}
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	return r.products.Get(ctx, id)
}

func (r *Repo) GetCategory(ctx context.Context, id int64) (*entity.ItemCategory, error) {
	return r.categories.Get(ctx, id)
}

func (r *Repo) GetCustomer(ctx context.Context, id int64) (*entity.Customer, error) {
	return r.customers.Get(ctx, id)
}

// AddCustomerPoints implements catalog.Repository.
func (r *Repo) AddCustomerPoints(ctx context.Context, customerID int64, delta types.Money) error {
	return r.customers.Exec(ctx, addPointsQuery(customerID, delta), customerID)
}

func addPointsQuery(customerID int64, delta types.Money) squirrel.UpdateBuilder {
	return postgres.Builder().Update("customers").
		Set("loyalty_points", squirrel.Expr("loyalty_points + ?", delta)).
		Where(squirrel.Eq{"id": customerID})
}

func (r *Repo) GetDispensary(ctx context.Context, id int64) (*entity.Dispensary, error) {
	return r.dispensaries.Get(ctx, id)
}

// ListMetrcDispensaries implements catalog.Repository.
func (r *Repo) ListMetrcDispensaries(ctx context.Context) ([]*entity.Dispensary, error) {
	return r.dispensaries.List(ctx, r.dispensaries.Select().
		Where(squirrel.Eq{"metrc_connection_status": true}).
		Where(squirrel.NotEq{"metrc_api_key": ""}).
		OrderBy("id"))
}

// ActiveDrawer implements catalog.Repository.
func (r *Repo) ActiveDrawer(ctx context.Context, dispensaryID, userID int64) (*entity.Drawer, error) {
	return r.drawers.First(ctx, r.drawers.Select().
		Where(squirrel.Eq{"dispensary_id": dispensaryID, "user_id": userID, "is_using": true}).
		OrderBy("id DESC"))
}

// ActiveLoyalty implements catalog.Repository.
func (r *Repo) ActiveLoyalty(ctx context.Context, dispensaryID int64) (*entity.LoyaltyProgram, error) {
	return r.loyalties.First(ctx, r.loyalties.Select().
		Where(squirrel.Eq{"dispensary_id": dispensaryID, "is_active": true}).
		OrderBy("id"))
}

// ListTaxRules implements catalog.Repository.
func (r *Repo) ListTaxRules(ctx context.Context, dispensaryID int64) ([]entity.TaxRule, error) {
	rows, err := r.taxRules.List(ctx, r.taxRules.Select().
		Where(squirrel.Eq{"dispensary_id": dispensaryID}).
		OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return values(rows), nil
}

// ListPurchaseLimits implements catalog.Repository.
func (r *Repo) ListPurchaseLimits(ctx context.Context, dispensaryID int64) ([]entity.PurchaseLimit, error) {
	rows, err := r.limits.List(ctx, r.limits.Select().
		Where(squirrel.Eq{"dispensary_id": dispensaryID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("purchase limits of dispensary %d: %w", dispensaryID, err)
	}
	return values(rows), nil
}

func values[T any](rows []*T) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out
}
