// Package order_repo stores orders and their dependent rows in PostgreSQL.
package order_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/entity"
	"cannapos/internal/domain/order"
	"cannapos/internal/infrastructure/storage/postgres"
)

var _ order.Repository = (*Repo)(nil)

// Repo implements order.Repository.
type Repo struct {
	txm       *postgres.TxManager
	orders    *postgres.Table[entity.Order]
	items     *postgres.Table[entity.OrderItem]
	discounts *postgres.Table[entity.DiscountHistory]
	loyalty   *postgres.Table[entity.LoyaltyHistory]
	taxes     *postgres.Table[entity.TaxHistory]
}

// New creates an order repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:       txm,
		orders:    postgres.NewTable[entity.Order](txm, "orders", "order"),
		items:     postgres.NewTable[entity.OrderItem](txm, "order_items", "order item"),
		discounts: postgres.NewTable[entity.DiscountHistory](txm, "discount_histories", "discount history"),
		loyalty:   postgres.NewTable[entity.LoyaltyHistory](txm, "loyalty_histories", "loyalty history"),
		taxes:     postgres.NewTable[entity.TaxHistory](txm, "tax_histories", "tax history"),
	}
}

func (r *Repo) Create(ctx context.Context, o *entity.Order) error {
	if o.CreatedAt.IsZero() {
		o.Timestamps = entity.NewTimestamps()
	}
	id, err := r.orders.Insert(ctx, o)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*entity.Order, error) {
	return r.orders.Get(ctx, id)
}

// Lock implements order.Repository with SELECT ... FOR UPDATE.
func (r *Repo) Lock(ctx context.Context, id int64) (*entity.Order, error) {
	o, err := r.orders.First(ctx, lockQuery(r.orders.Select(), id))
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.NewNotFound("order", id)
	}
	return o, nil
}

func lockQuery(q squirrel.SelectBuilder, id int64) squirrel.SelectBuilder {
	return q.Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE")
}

func (r *Repo) Update(ctx context.Context, o *entity.Order) error {
	o.Touch()
	return r.orders.Update(ctx, o.ID, o)
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	return r.orders.Delete(ctx, squirrel.Eq{"id": id})
}

func (r *Repo) ListItems(ctx context.Context, orderID int64) ([]*entity.OrderItem, error) {
	return r.items.List(ctx, r.items.Select().Where(squirrel.Eq{"order_id": orderID}).OrderBy("id"))
}

func (r *Repo) GetItem(ctx context.Context, itemID int64) (*entity.OrderItem, error) {
	return r.items.Get(ctx, itemID)
}

func (r *Repo) CreateItem(ctx context.Context, item *entity.OrderItem) error {
	id, err := r.items.Insert(ctx, item)
	if err != nil {
		return err
	}
	item.ID = id
	return nil
}

// UpdateAllocations implements order.Repository.
func (r *Repo) UpdateAllocations(ctx context.Context, items []*entity.OrderItem) error {
	for _, it := range items {
		if err := r.items.Exec(ctx, allocationQuery(it), it.ID); err != nil {
			return fmt.Errorf("update allocations of item %d: %w", it.ID, err)
		}
	}
	return nil
}

func allocationQuery(it *entity.OrderItem) squirrel.UpdateBuilder {
	return postgres.Builder().Update("order_items").
		Set("discounted_amount", it.DiscountedAmount).
		Set("loyalty_amount", it.LoyaltyAmount).
		Where(squirrel.Eq{"id": it.ID})
}

// DeleteItem removes the item and its tax rows.
func (r *Repo) DeleteItem(ctx context.Context, itemID int64) error {
	if err := r.taxes.Delete(ctx, squirrel.Eq{"order_item_id": itemID}); err != nil {
		return err
	}
	return r.items.Delete(ctx, squirrel.Eq{"id": itemID})
}

func (r *Repo) DeleteItems(ctx context.Context, orderID int64) error {
	return r.items.Delete(ctx, squirrel.Eq{"order_id": orderID})
}

// FindDiscount returns the latest discount of the order, or nil.
func (r *Repo) FindDiscount(ctx context.Context, orderID int64) (*entity.DiscountHistory, error) {
	return r.discounts.First(ctx, r.discounts.Select().
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("id DESC"))
}

func (r *Repo) CreateDiscount(ctx context.Context, d *entity.DiscountHistory) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	id, err := r.discounts.Insert(ctx, d)
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

func (r *Repo) DeleteDiscounts(ctx context.Context, orderID int64) error {
	return r.discounts.Delete(ctx, squirrel.Eq{"order_id": orderID})
}

// FindLoyalty returns the latest loyalty row of a type, or nil.
func (r *Repo) FindLoyalty(ctx context.Context, orderID int64, txType entity.LoyaltyTxType) (*entity.LoyaltyHistory, error) {
	return r.loyalty.First(ctx, r.loyalty.Select().
		Where(squirrel.Eq{"order_id": orderID, "tx_type": txType}).
		OrderBy("id DESC"))
}

func (r *Repo) CreateLoyalty(ctx context.Context, h *entity.LoyaltyHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	id, err := r.loyalty.Insert(ctx, h)
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}

func (r *Repo) DeleteLoyalty(ctx context.Context, orderID int64, txType entity.LoyaltyTxType) error {
	return r.loyalty.Delete(ctx, loyaltyFilter(orderID, txType))
}

func loyaltyFilter(orderID int64, txType entity.LoyaltyTxType) squirrel.Eq {
	where := squirrel.Eq{"order_id": orderID}
	if txType != "" {
		where["tx_type"] = txType
	}
	return where
}

func (r *Repo) ListTaxes(ctx context.Context, orderID int64) ([]entity.TaxHistory, error) {
	rows, err := r.taxes.List(ctx, r.taxes.Select().Where(squirrel.Eq{"order_id": orderID}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	out := make([]entity.TaxHistory, len(rows))
	for i, t := range rows {
		out[i] = *t
	}
	return out, nil
}

// ReplaceTaxes implements order.Repository.
func (r *Repo) ReplaceTaxes(ctx context.Context, orderID int64, rows []entity.TaxHistory) error {
	if err := r.DeleteTaxes(ctx, orderID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return r.taxes.Exec(ctx, insertTaxesQuery(rows), nil)
}

var taxColumns = []string{
	"dispensary_id", "order_id", "order_item_id", "tax_name",
	"tax_percent", "compound_percent", "tax_amount",
}

func insertTaxesQuery(rows []entity.TaxHistory) squirrel.InsertBuilder {
	q := postgres.Builder().Insert("tax_histories").Columns(taxColumns...)
	for _, t := range rows {
		q = q.Values(t.DispensaryID, t.OrderID, t.OrderItemID, t.TaxName,
			t.TaxPercent, t.CompoundPercent, t.TaxAmount)
	}
	return q
}

func (r *Repo) DeleteTaxes(ctx context.Context, orderID int64) error {
	return r.taxes.Delete(ctx, squirrel.Eq{"order_id": orderID})
}
