package order

import (
	"context"
	"fmt"
	"time"

	"cannapos/internal/config"
	"cannapos/internal/core/apperror"
	appctx "cannapos/internal/core/context"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/tx"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/audit"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/domain/events"
	"cannapos/internal/domain/limits"
	"cannapos/internal/domain/pricing"
	"cannapos/internal/domain/registers/stock"
	"cannapos/internal/domain/regulator"
	"cannapos/internal/domain/tax"
	"cannapos/internal/domain/totals"
	"cannapos/pkg/logger"
)

const entityType = "order"

// ServiceConfig holds the collaborators of Service.
type ServiceConfig struct {
	Repo      Repository
	Packages  PackageReader
	Catalog   *catalog.Service
	TxManager tx.Manager
	Taxes     *tax.Calculator
	Stock     *stock.Service
	Regulator regulator.Client
	Audit     audit.Recorder
	Events    events.Publisher
	Metrc     config.MetrcConfig
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service implements order operations. Every mutation runs in one
// transaction and records one audit entry.
type Service struct {
	repo      Repository
	packages  PackageReader
	catalog   *catalog.Service
	txManager tx.Manager
	taxes     *tax.Calculator
	stock     *stock.Service
	regulator regulator.Client
	audit     audit.Recorder
	events    events.Publisher
	metrc     config.MetrcConfig
	now       func() time.Time
}

// NewService creates a new order service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		packages:  cfg.Packages,
		catalog:   cfg.Catalog,
		txManager: cfg.TxManager,
		taxes:     cfg.Taxes,
		stock:     cfg.Stock,
		regulator: cfg.Regulator,
		audit:     cfg.Audit,
		events:    cfg.Events,
		metrc:     cfg.Metrc,
		now:       cfg.Now,
	}
	if s.taxes == nil {
		s.taxes = tax.NewCalculator(nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateInput describes a new order.
type CreateInput struct {
	DispensaryID int64
	UserID       int64
	CustomerID   *int64
	Status       entity.OrderStatus
	OrderType    entity.OrderType
}

// AddItemInput describes a new order line. Quantity is as entered at the
// register; the product's unit-weight factor is applied on persistence.
type AddItemInput struct {
	OrderID      int64
	ProductID    int64
	PackageLabel string
	Quantity     types.Money
	Price        types.Money
	Cost         types.Money
}

// DiscountInput describes a discount applied to a whole order.
type DiscountInput struct {
	OrderID int64
	Name    string
	Method  entity.DiscountMethod
	Value   types.Money
}

// AmountInfo is the read-side summary of an order.
type AmountInfo struct {
	OrderID int64          `json:"orderId"`
	Totals  totals.Display `json:"totals"`
	// Limits is the purchase-limit usage per limit type, MJ orders only.
	Limits map[string]string `json:"limits,omitempty"`
}

// Create opens an order on the user's active drawer.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	drawer, err := s.catalog.ActiveDrawer(ctx, in.DispensaryID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("find active drawer: %w", err)
	}
	if drawer == nil {
		return nil, apperror.NewValidation("Please start Drawer.")
	}

	o := entity.NewOrder(in.DispensaryID, drawer.ID, in.UserID, in.CustomerID, in.Status, in.OrderType)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return s.record(ctx, o, audit.ActionOrderCreate, nil)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created", "order_id", o.ID, "drawer_id", o.DrawerID)
	return o, nil
}

// Get returns an order.
func (s *Service) Get(ctx context.Context, orderID int64) (*entity.Order, error) {
	return s.repo.Get(ctx, orderID)
}

// AddItem prices a new line, gates it against purchase limits and
// re-allocates the active discount and loyalty before persisting it.
// The order row stays locked from the gate to the last write.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (*entity.OrderItem, error) {
	product, category, err := s.catalog.Product(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	var (
		o    *entity.Order
		item *entity.OrderItem
	)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.Lock(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if o.IsReturn() {
			return apperror.NewValidation(fmt.Sprintf("The Order #%d is RETURN type. Can not add items.", o.ID))
		}
		if !o.IsEditable() {
			return apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
		}

		items, err := s.repo.ListItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		if err := s.checkLimits(ctx, o, items, product, category, in.Quantity); err != nil {
			return err
		}

		item = priceItem(o, product, category, in)
		if err := item.Validate(); err != nil {
			return err
		}

		if item.MjType == entity.MjTypeMJ && o.MjType != entity.MjTypeMJ {
			o.MjType = entity.MjTypeMJ
			o.Touch()
			if err := s.repo.Update(ctx, o); err != nil {
				return fmt.Errorf("set order mj type: %w", err)
			}
		}
		if err := s.reallocate(ctx, o.ID, items, item); err != nil {
			return err
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
		if err := s.recomputeTax(ctx, o); err != nil {
			return err
		}
		return s.record(ctx, o, audit.ActionOrderItemAdd, map[string]any{
			"itemId":       item.ID,
			"productId":    product.ID,
			"productName":  product.Name,
			"packageLabel": item.PackageLabel,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order item added", "order_id", o.ID, "item_id", item.ID, "package_label", item.PackageLabel)
	return item, nil
}

// priceItem applies the truncation chain of a sale line.
func priceItem(o *entity.Order, p *entity.Product, c *entity.ItemCategory, in AddItemInput) *entity.OrderItem {
	qty := types.TruncateQuantity(in.Quantity)
	price := types.TruncateQuantity(in.Price)
	cost := types.TruncateQuantity(in.Cost)

	return &entity.OrderItem{
		OrderID:          o.ID,
		DispensaryID:     o.DispensaryID,
		ProductID:        p.ID,
		PackageLabel:     in.PackageLabel,
		MjType:           c.MjType(),
		Quantity:         types.TruncateQuantity(qty.Mul(types.TruncateQuantity(p.ApplyUnitWeightFactor()))),
		Price:            types.TruncateCurrency(in.Price),
		Cost:             types.TruncateCurrency(in.Cost),
		Amount:           types.TruncateQuantity(qty.Mul(price)),
		CostAmount:       types.TruncateQuantity(qty.Mul(cost)),
		DiscountedAmount: types.Zero(),
		LoyaltyAmount:    types.Zero(),
	}
}

// AddReturnItem adds a line to a RETURN order at the product's list price.
func (s *Service) AddReturnItem(ctx context.Context, in AddItemInput) (*entity.OrderItem, error) {
	o, err := s.repo.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.IsReturn() {
		return nil, apperror.NewValidation(fmt.Sprintf("The Order #%d is SALE type.", o.ID))
	}
	if !o.IsEditable() {
		return nil, apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
	}

	product, category, err := s.catalog.Product(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	item := &entity.OrderItem{
		OrderID:          o.ID,
		DispensaryID:     o.DispensaryID,
		ProductID:        product.ID,
		PackageLabel:     in.PackageLabel,
		MjType:           category.MjType(),
		Quantity:         types.TruncateCurrency(in.Quantity),
		Price:            types.TruncateCurrency(product.Price),
		Amount:           types.TruncateQuantity(product.Price.Mul(in.Quantity)),
		DiscountedAmount: types.Zero(),
		LoyaltyAmount:    types.Zero(),
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("create return item: %w", err)
		}
		return s.record(ctx, o, audit.ActionOrderItemReturn, map[string]any{
			"itemId":       item.ID,
			"productId":    product.ID,
			"packageLabel": item.PackageLabel,
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem deletes a line and re-prices the remaining ones.
func (s *Service) RemoveItem(ctx context.Context, itemID int64) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	o, err := s.repo.Get(ctx, item.OrderID)
	if err != nil {
		return err
	}
	if !o.IsEditable() {
		return apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
			return fmt.Errorf("delete order item: %w", err)
		}
		items, err := s.repo.ListItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		if err := s.reallocate(ctx, o.ID, items, nil); err != nil {
			return err
		}
		if err := s.recomputeTax(ctx, o); err != nil {
			return err
		}
		return s.record(ctx, o, audit.ActionOrderItemRemove, map[string]any{
			"itemId":       item.ID,
			"productId":    item.ProductID,
			"packageLabel": item.PackageLabel,
		})
	})
}

// ApplyDiscount replaces the order's discount policy.
func (s *Service) ApplyDiscount(ctx context.Context, in DiscountInput) (*entity.DiscountHistory, error) {
	o, err := s.repo.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.IsEditable() {
		return nil, apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
	}

	d := &entity.DiscountHistory{
		OrderID:      o.ID,
		DispensaryID: o.DispensaryID,
		Name:         in.Name,
		Method:       in.Method,
		Value:        in.Value,
		CreatedAt:    s.now().UTC(),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteDiscounts(ctx, o.ID); err != nil {
			return fmt.Errorf("delete discounts: %w", err)
		}
		if err := s.repo.CreateDiscount(ctx, d); err != nil {
			return fmt.Errorf("create discount: %w", err)
		}
		items, err := s.repo.ListItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		pricing.AllocateDiscount(items, d.Method, d.Value, types.Zero())
		if err := s.repo.UpdateAllocations(ctx, items); err != nil {
			return fmt.Errorf("update allocations: %w", err)
		}
		if err := s.recomputeTax(ctx, o); err != nil {
			return err
		}
		return s.record(ctx, o, audit.ActionDiscountApply, map[string]any{
			"name":   d.Name,
			"method": string(d.Method),
			"value":  d.Value.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CancelDiscount removes the order's discount. Requires MANAGER.
func (s *Service) CancelDiscount(ctx context.Context, orderID int64) error {
	if !appctx.HasRole(ctx, appctx.RoleManager) {
		return apperror.NewForbidden()
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.IsEditable() {
		return apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		items, err := s.repo.ListItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		pricing.ClearDiscount(items)
		if err := s.repo.UpdateAllocations(ctx, items); err != nil {
			return fmt.Errorf("update allocations: %w", err)
		}
		if err := s.repo.DeleteDiscounts(ctx, o.ID); err != nil {
			return fmt.Errorf("delete discounts: %w", err)
		}
		if err := s.recomputeTax(ctx, o); err != nil {
			return err
		}
		return s.record(ctx, o, audit.ActionDiscountCancel, nil)
	})
}

// ApplyLoyalty redeems customer points against the order.
func (s *Service) ApplyLoyalty(ctx context.Context, orderID int64, points types.Money) (*entity.LoyaltyHistory, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsEditable() {
		return nil, apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
	}
	if !points.IsPositive() {
		return nil, apperror.NewValidation("Loyalty points must be positive.")
	}

	customer, err := s.catalog.Customer(ctx, o.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperror.NewValidation("Please select a customer for the order.")
	}
	if customer.LoyaltyPoints.LessThan(points) {
		return nil, apperror.NewValidation("Not enough loyalty points.")
	}
	program, err := s.catalog.ActiveLoyalty(ctx, o.DispensaryID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, apperror.NewValidation("There is no active loyalty program.")
	}

	h := &entity.LoyaltyHistory{
		OrderID:      o.ID,
		DispensaryID: o.DispensaryID,
		CustomerID:   customer.ID,
		LoyaltyID:    program.ID,
		LoyaltyType:  program.Type,
		TxType:       entity.LoyaltySpend,
		Worth:        program.PointWorth,
		Points:       points,
		CreatedAt:    s.now().UTC(),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindLoyalty(ctx, o.ID, entity.LoyaltySpend)
		if err != nil {
			return fmt.Errorf("find loyalty: %w", err)
		}
		if existing != nil {
			return apperror.NewValidation(fmt.Sprintf("Loyalty is already applied to the order #%d.", o.ID))
		}
		if err := s.repo.CreateLoyalty(ctx, h); err != nil {
			return fmt.Errorf("create loyalty history: %w", err)
		}
		if err := s.catalog.AddCustomerPoints(ctx, customer.ID, points.Neg()); err != nil {
			return fmt.Errorf("spend customer points: %w", err)
		}

		o.Loyalty = types.TruncateQuantity(h.Amount())
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update order loyalty: %w", err)
		}

		items, err := s.repo.ListItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		pricing.AllocateLoyalty(items, h.LoyaltyType, h.Worth, h.Points, types.Zero())
		if err := s.repo.UpdateAllocations(ctx, items); err != nil {
			return fmt.Errorf("update allocations: %w", err)
		}
		if err := s.recomputeTax(ctx, o); err != nil {
			return err
		}
		return s.record(ctx, o, audit.ActionLoyaltyApply, map[string]any{
			"loyaltyName": program.Name,
			"loyaltyType": string(program.Type),
			"points":      points.String(),
			"worth":       program.PointWorth.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// CancelLoyalty reverses a redemption and refunds the points.
func (s *Service) CancelLoyalty(ctx context.Context, orderID int64) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.IsEditable() {
		return apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		h, err := s.repo.FindLoyalty(ctx, o.ID, entity.LoyaltySpend)
		if err != nil {
			return fmt.Errorf("find loyalty: %w", err)
		}
		if h == nil {
			return nil
		}

		items, err := s.repo.ListItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		pricing.ClearLoyalty(items)
		if err := s.repo.UpdateAllocations(ctx, items); err != nil {
			return fmt.Errorf("update allocations: %w", err)
		}
		if h.CustomerID != 0 {
			if err := s.catalog.AddCustomerPoints(ctx, h.CustomerID, h.Points); err != nil {
				return fmt.Errorf("refund customer points: %w", err)
			}
		}
		if err := s.repo.DeleteLoyalty(ctx, o.ID, entity.LoyaltySpend); err != nil {
			return fmt.Errorf("delete loyalty: %w", err)
		}

		o.Loyalty = types.Zero()
		if err := s.recomputeTax(ctx, o); err != nil {
			return err
		}
		return s.record(ctx, o, audit.ActionLoyaltyCancel, map[string]any{"points": h.Points.String()})
	})
}

// RecomputeTax regenerates the tax history of an editable order.
func (s *Service) RecomputeTax(ctx context.Context, orderID int64) (*entity.Order, error) {
	var o *entity.Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.repo.Get(ctx, orderID); err != nil {
			return err
		}
		if !o.IsEditable() {
			return apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
		}
		if err := s.recomputeTax(ctx, o); err != nil {
			return err
		}
		return s.record(ctx, o, audit.ActionTaxRecompute, map[string]any{"tax": o.Tax.String()})
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// recomputeTax deletes and rebuilds every tax row of o, then stores the
// sum on the order. Must run inside a transaction after allocations.
func (s *Service) recomputeTax(ctx context.Context, o *entity.Order) error {
	items, err := s.repo.ListItems(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	rules, err := s.catalog.TaxRules(ctx, o.DispensaryID)
	if err != nil {
		return fmt.Errorf("list tax rules: %w", err)
	}
	customer, err := s.catalog.Customer(ctx, o.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	rows, sum, err := s.taxes.Compute(o.ID, items, rules, customer)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceTaxes(ctx, o.ID, rows); err != nil {
		return fmt.Errorf("replace tax history: %w", err)
	}

	o.Tax = sum
	o.Touch()
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("update order tax: %w", err)
	}
	return nil
}

// reallocate re-applies the active discount and loyalty across items.
// A candidate that is not persisted yet is folded into the base and
// receives its own share.
func (s *Service) reallocate(ctx context.Context, orderID int64, items []*entity.OrderItem, candidate *entity.OrderItem) error {
	extra := types.Zero()
	if candidate != nil {
		extra = candidate.Amount
	}

	d, err := s.repo.FindDiscount(ctx, orderID)
	if err != nil {
		return fmt.Errorf("find discount: %w", err)
	}
	h, err := s.repo.FindLoyalty(ctx, orderID, entity.LoyaltySpend)
	if err != nil {
		return fmt.Errorf("find loyalty: %w", err)
	}
	if d == nil && h == nil {
		return nil
	}

	if d != nil {
		share := pricing.AllocateDiscount(items, d.Method, d.Value, extra)
		if candidate != nil {
			candidate.DiscountedAmount = share
		}
	}
	if h != nil {
		share := pricing.AllocateLoyalty(items, h.LoyaltyType, h.Worth, h.Points, extra)
		if candidate != nil {
			candidate.LoyaltyAmount = share
		}
	}

	if err := s.repo.UpdateAllocations(ctx, items); err != nil {
		return fmt.Errorf("update allocations: %w", err)
	}
	return nil
}

// Hold parks an EDIT order.
func (s *Service) Hold(ctx context.Context, orderID int64) (*entity.Order, error) {
	return s.transition(ctx, orderID, entity.OrderStatusEdit, entity.OrderStatusHold, audit.ActionOrderHold,
		"Only EDIT status orders can be held.")
}

// Unhold resumes a held order.
func (s *Service) Unhold(ctx context.Context, orderID int64) (*entity.Order, error) {
	return s.transition(ctx, orderID, entity.OrderStatusHold, entity.OrderStatusEdit, audit.ActionOrderUnhold,
		"Only HOLD status orders can be resumed.")
}

func (s *Service) transition(ctx context.Context, orderID int64, from, to entity.OrderStatus, action audit.Action, msg string) (*entity.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != from {
		return nil, apperror.NewValidation(msg)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o.Status = to
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return s.record(ctx, o, action, nil)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel deletes an EDIT order with all dependent rows. Redeemed points
// are returned to the customer.
func (s *Service) Cancel(ctx context.Context, orderID int64) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != entity.OrderStatusEdit {
		return apperror.NewValidation("Only EDIT status orders can be cancelled.")
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		h, err := s.repo.FindLoyalty(ctx, o.ID, entity.LoyaltySpend)
		if err != nil {
			return fmt.Errorf("find loyalty: %w", err)
		}
		if h != nil && h.CustomerID != 0 {
			if err := s.catalog.AddCustomerPoints(ctx, h.CustomerID, h.Points); err != nil {
				return fmt.Errorf("refund customer points: %w", err)
			}
		}

		if err := s.repo.DeleteTaxes(ctx, o.ID); err != nil {
			return fmt.Errorf("delete taxes: %w", err)
		}
		if err := s.repo.DeleteDiscounts(ctx, o.ID); err != nil {
			return fmt.Errorf("delete discounts: %w", err)
		}
		if err := s.repo.DeleteLoyalty(ctx, o.ID, ""); err != nil {
			return fmt.Errorf("delete loyalty: %w", err)
		}
		if err := s.repo.DeleteItems(ctx, o.ID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := s.repo.Delete(ctx, o.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return s.record(ctx, o, audit.ActionOrderCancel, nil)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order cancelled", "order_id", o.ID)
	return nil
}

// ConvertToReturn turns an empty order into a RETURN.
func (s *Service) ConvertToReturn(ctx context.Context, orderID int64) (*entity.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsEditable() {
		return nil, apperror.NewValidation(fmt.Sprintf("The order #%d is not editable.", o.ID))
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		items, err := s.repo.ListItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		if len(items) > 0 {
			return apperror.NewValidation("To be a Return type order please remove all products from the order.")
		}
		o.OrderType = entity.OrderTypeReturn
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update order type: %w", err)
		}
		return s.record(ctx, o, audit.ActionOrderToReturn, nil)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// AmountInfo returns the order totals and, for MJ orders, the current
// purchase-limit usage.
func (s *Service) AmountInfo(ctx context.Context, orderID int64) (*AmountInfo, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	taxes, err := s.repo.ListTaxes(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list taxes: %w", err)
	}

	info := &AmountInfo{
		OrderID: o.ID,
		Totals:  totals.Aggregate(o, items, taxes).Display(),
	}
	if o.MjType != entity.MjTypeMJ {
		return info, nil
	}

	evaluator, lines, err := s.limitState(ctx, o, items)
	if err != nil {
		return nil, err
	}
	info.Limits = make(map[string]string)
	for limitType, qty := range evaluator.Usage(lines) {
		info.Limits[limitType] = types.Fixed2(qty)
	}
	return info, nil
}

// checkLimits gates a new line against the lines already on the order.
func (s *Service) checkLimits(ctx context.Context, o *entity.Order, items []*entity.OrderItem, p *entity.Product, c *entity.ItemCategory, qty types.Money) error {
	if !c.ContainMj {
		return nil
	}
	evaluator, lines, err := s.limitState(ctx, o, items)
	if err != nil {
		return err
	}
	_, err = evaluator.Check(lines, limits.Line{Quantity: qty, Product: p, Category: c, Raw: true})
	return err
}

// limitState loads the dispensary limits and the regulated lines of an order.
func (s *Service) limitState(ctx context.Context, o *entity.Order, items []*entity.OrderItem) (*limits.Evaluator, []limits.Line, error) {
	configured, err := s.catalog.PurchaseLimits(ctx, o.DispensaryID)
	if err != nil {
		return nil, nil, err
	}

	type productInfo struct {
		product  *entity.Product
		category *entity.ItemCategory
	}
	seen := make(map[int64]productInfo)

	lines := make([]limits.Line, 0, len(items))
	for _, item := range items {
		if !item.IsRegulated() {
			continue
		}
		info, ok := seen[item.ProductID]
		if !ok {
			p, c, err := s.catalog.Product(ctx, item.ProductID)
			if err != nil {
				return nil, nil, err
			}
			info = productInfo{product: p, category: c}
			seen[item.ProductID] = info
		}
		lines = append(lines, limits.Line{Quantity: item.Quantity, Product: info.product, Category: info.category})
	}
	return limits.NewEvaluator(configured), lines, nil
}

func (s *Service) record(ctx context.Context, o *entity.Order, action audit.Action, fields map[string]any) error {
	if s.audit == nil {
		return nil
	}
	entry := audit.Entry{
		Action:       action,
		EntityType:   entityType,
		EntityID:     o.ID,
		DispensaryID: o.DispensaryID,
		OrderID:      o.ID,
		Fields:       fields,
	}
	audit.Enrich(ctx, &entry)
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}
