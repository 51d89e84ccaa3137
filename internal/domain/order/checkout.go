package order

import (
	"context"
	"fmt"

	"cannapos/internal/core/apperror"
	appctx "cannapos/internal/core/context"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/audit"
	"cannapos/internal/domain/events"
	"cannapos/internal/domain/registers/stock"
	"cannapos/internal/domain/regulator"
	"cannapos/pkg/logger"
)

// Regulator reporting outcomes.
const (
	MetrcSuccess = "success"
	MetrcFailed  = "failed"
	MetrcIgnore  = "ignore"
)

// CompleteInput carries the drawer amounts of a payment.
type CompleteInput struct {
	OrderID   int64
	Cash      types.Money
	Other     types.Money
	ChangeDue types.Money
}

// Result reports the local and regulator outcome of a completion or void.
// Pos is true once the order row was updated, even when some stock
// updates failed; those are listed in Stock.
type Result struct {
	Pos   bool              `json:"pos"`
	Metrc string            `json:"metrc"`
	Stock stock.BatchResult `json:"stock"`
}

// Complete takes payment for an EDIT or HOLD order.
//
// Stock updates run first, each on its own, and never fail the call. The
// order row, loyalty accrual and totals are then written in one
// transaction. MJ orders are reported to the regulator afterwards.
func (s *Service) Complete(ctx context.Context, in CompleteInput) (*Result, error) {
	o, err := s.repo.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != entity.OrderStatusEdit && o.Status != entity.OrderStatusHold {
		return nil, apperror.NewValidation(fmt.Sprintf("The order #%d can not be completed.", o.ID))
	}
	for field, v := range map[string]types.Money{"cashAmount": in.Cash, "otherAmount": in.Other, "changeDue": in.ChangeDue} {
		if v.IsNegative() {
			return nil, apperror.NewValidation(field + " must not be negative").WithDetail("field", field)
		}
	}

	items, err := s.repo.ListItems(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	// 1. Best-effort stock decrement
	res := &Result{Stock: s.stock.Apply(ctx, stockDeltas(o, items, true))}

	// 2. Persist payment
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		taxes, err := s.repo.ListTaxes(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list taxes: %w", err)
		}
		if err := s.accrueLoyalty(ctx, o, in); err != nil {
			return err
		}

		amount, discount, loyalty, cost, tax := types.Zero(), types.Zero(), types.Zero(), types.Zero(), types.Zero()
		for _, item := range items {
			amount = amount.Add(item.Amount)
			discount = discount.Add(item.DiscountedAmount)
			loyalty = loyalty.Add(item.LoyaltyAmount)
			cost = cost.Add(item.CostAmount)
		}
		for _, t := range taxes {
			tax = tax.Add(t.TaxAmount)
		}

		o.Status = entity.OrderStatusPaid
		o.Cash = types.TruncateQuantity(in.Cash)
		o.Other = types.TruncateQuantity(in.Other)
		o.ChangeDue = types.TruncateQuantity(in.ChangeDue)
		o.Amount = types.TruncateQuantity(amount)
		o.Discount = types.TruncateQuantity(discount)
		o.Loyalty = types.TruncateQuantity(loyalty)
		o.Cost = types.TruncateQuantity(cost)
		o.Tax = types.TruncateQuantity(tax)
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Pos = true

	// 3. Regulator receipt
	res.Metrc = MetrcIgnore
	if o.MjType == entity.MjTypeMJ {
		res.Metrc = MetrcFailed
		if s.report(ctx, o) {
			res.Metrc = MetrcSuccess
		}
	}

	// 4. History and outbox
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.record(ctx, o, audit.ActionOrderComplete, map[string]any{
			"metrc":       res.Metrc,
			"stockFailed": len(res.Stock.Failed()),
		}); err != nil {
			return err
		}
		return s.publish(ctx, events.Event{
			AggregateType: events.AggregateOrder,
			AggregateID:   o.ID,
			EventType:     events.OrderCompleted,
			Payload: events.OrderCompletedPayload{
				OrderID:      o.ID,
				DispensaryID: o.DispensaryID,
				Amount:       o.Amount.String(),
				Tax:          o.Tax.String(),
				MjType:       string(o.MjType),
				Metrc:        res.Metrc,
				StockFailed:  len(res.Stock.Failed()),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order completed",
		"order_id", o.ID,
		"metrc", res.Metrc,
		"stock_failed", len(res.Stock.Failed()),
	)
	return res, nil
}

// accrueLoyalty credits points for the amount received when the
// dispensary runs a loyalty program and the order has a customer.
func (s *Service) accrueLoyalty(ctx context.Context, o *entity.Order, in CompleteInput) error {
	if o.CustomerID == nil || *o.CustomerID == 0 {
		return nil
	}
	program, err := s.catalog.ActiveLoyalty(ctx, o.DispensaryID)
	if err != nil {
		return fmt.Errorf("find loyalty program: %w", err)
	}
	if program == nil {
		return nil
	}

	earned := types.TruncateCurrency(in.Cash.Sub(in.ChangeDue))
	if !earned.IsPositive() {
		return nil
	}
	h := &entity.LoyaltyHistory{
		OrderID:      o.ID,
		DispensaryID: o.DispensaryID,
		CustomerID:   *o.CustomerID,
		LoyaltyID:    program.ID,
		LoyaltyType:  program.Type,
		TxType:       entity.LoyaltyEarn,
		Worth:        program.PointWorth,
		Points:       earned,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateLoyalty(ctx, h); err != nil {
		return fmt.Errorf("create loyalty earn: %w", err)
	}
	if err := s.catalog.AddCustomerPoints(ctx, *o.CustomerID, earned); err != nil {
		return fmt.Errorf("credit customer points: %w", err)
	}
	return nil
}

// Void reverses a PAID order. Requires MANAGER.
func (s *Service) Void(ctx context.Context, orderID int64, reason string) (*Result, error) {
	if !appctx.HasRole(ctx, appctx.RoleManager) {
		return nil, apperror.NewForbidden()
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != entity.OrderStatusPaid {
		return nil, apperror.NewValidation(fmt.Sprintf("The order #%d can not be voided.", o.ID))
	}

	items, err := s.repo.ListItems(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	res := &Result{Stock: s.stock.Apply(ctx, stockDeltas(o, items, false))}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		o.Status = entity.OrderStatusVoid
		o.VoidReason = reason
		o.VoidedAt = &now
		o.Touch()
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("void order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Pos = true

	res.Metrc = MetrcIgnore
	if reported(o) {
		res.Metrc = MetrcFailed
		if s.unreport(ctx, o) {
			res.Metrc = MetrcSuccess
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.record(ctx, o, audit.ActionOrderVoid, map[string]any{
			"reason": reason,
			"metrc":  res.Metrc,
		}); err != nil {
			return err
		}
		return s.publish(ctx, events.Event{
			AggregateType: events.AggregateOrder,
			AggregateID:   o.ID,
			EventType:     events.OrderVoided,
			Payload: events.OrderVoidedPayload{
				OrderID:      o.ID,
				DispensaryID: o.DispensaryID,
				Reason:       reason,
				Metrc:        res.Metrc,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order voided", "order_id", o.ID, "metrc", res.Metrc)
	return res, nil
}

// Sync reports a PAID order that has no regulator receipt yet.
// It returns false when the order carries no regulated lines, was already
// reported or the call failed.
func (s *Service) Sync(ctx context.Context, orderID int64) (bool, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	if o.Status != entity.OrderStatusPaid {
		return false, apperror.NewValidation(fmt.Sprintf("The order #%d is not paid.", o.ID))
	}
	if o.MjType != entity.MjTypeMJ || reported(o) {
		return false, nil
	}

	ok := s.report(ctx, o)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.record(ctx, o, audit.ActionOrderSync, map[string]any{"result": ok})
	})
	return ok, err
}

// Unsync deletes the regulator receipt of a reported order.
func (s *Service) Unsync(ctx context.Context, orderID int64) (bool, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !reported(o) {
		return false, nil
	}

	ok := s.unreport(ctx, o)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.record(ctx, o, audit.ActionOrderUnsync, map[string]any{"result": ok})
	})
	return ok, err
}

func reported(o *entity.Order) bool {
	return o.MetrcID != nil && *o.MetrcID > 0
}

// report posts the order receipt and stores the regulator id on success.
func (s *Service) report(ctx context.Context, o *entity.Order) bool {
	d, err := s.catalog.Dispensary(ctx, o.DispensaryID)
	if err != nil {
		logger.Error(ctx, "load dispensary for receipt", "order_id", o.ID, "error", err)
		return false
	}
	receipt, err := s.receipt(ctx, o, d)
	if err != nil {
		logger.Error(ctx, "build metrc receipt", "order_id", o.ID, "error", err)
		return false
	}

	result, err := s.regulator.PostReceipt(ctx, regulator.CredentialsFor(d), receipt)
	if err != nil {
		logger.Error(ctx, "post metrc receipt", "order_id", o.ID, "error", err)
		return false
	}
	if !regulator.OK(result.Status) {
		return false
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o.MetrcID = &result.ID
		o.IsReportedToMetrc = true
		o.Touch()
		return s.repo.Update(ctx, o)
	})
	if err != nil {
		logger.Error(ctx, "store metrc receipt id", "order_id", o.ID, "metrc_id", result.ID, "error", err)
		return false
	}
	return true
}

// unreport deletes the order receipt and clears the regulator id on success.
func (s *Service) unreport(ctx context.Context, o *entity.Order) bool {
	d, err := s.catalog.Dispensary(ctx, o.DispensaryID)
	if err != nil {
		logger.Error(ctx, "load dispensary for receipt", "order_id", o.ID, "error", err)
		return false
	}

	status, err := s.regulator.DeleteReceipt(ctx, regulator.CredentialsFor(d), *o.MetrcID)
	if err != nil {
		logger.Error(ctx, "delete metrc receipt", "order_id", o.ID, "error", err)
		return false
	}
	if !regulator.OK(status) {
		return false
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o.MetrcID = nil
		o.IsReportedToMetrc = false
		o.Touch()
		return s.repo.Update(ctx, o)
	})
	if err != nil {
		logger.Error(ctx, "clear metrc receipt id", "order_id", o.ID, "error", err)
		return false
	}
	return true
}

// receipt gathers everything BuildReceipt needs for an order.
func (s *Service) receipt(ctx context.Context, o *entity.Order, d *entity.Dispensary) (regulator.Receipt, error) {
	loc, err := s.metrc.Location(d.StateOfUsa)
	if err != nil {
		return regulator.Receipt{}, err
	}
	customer, err := s.catalog.Customer(ctx, o.CustomerID)
	if err != nil {
		return regulator.Receipt{}, fmt.Errorf("load customer: %w", err)
	}
	items, err := s.repo.ListItems(ctx, o.ID)
	if err != nil {
		return regulator.Receipt{}, fmt.Errorf("list items: %w", err)
	}
	taxes, err := s.repo.ListTaxes(ctx, o.ID)
	if err != nil {
		return regulator.Receipt{}, fmt.Errorf("list taxes: %w", err)
	}

	units := make(map[string]string)
	for _, item := range items {
		if !item.IsRegulated() || item.PackageLabel == "" {
			continue
		}
		if _, ok := units[item.PackageLabel]; ok {
			continue
		}
		pkg, err := s.packages.FindPackageByLabel(ctx, o.DispensaryID, item.PackageLabel)
		if err != nil {
			return regulator.Receipt{}, fmt.Errorf("find package %s: %w", item.PackageLabel, err)
		}
		if pkg != nil {
			units[item.PackageLabel] = pkg.UnitOfMeasureName
		}
	}

	return BuildReceipt(o, customer, items, taxes, units, loc), nil
}

// stockDeltas turns labelled lines into package quantity changes.
func stockDeltas(o *entity.Order, items []*entity.OrderItem, sale bool) []stock.Delta {
	deltas := make([]stock.Delta, 0, len(items))
	for _, item := range items {
		if item.PackageLabel == "" {
			continue
		}
		qty := types.TruncateCurrency(item.Quantity)
		if sale {
			qty = qty.Neg()
		}
		deltas = append(deltas, stock.Delta{DispensaryID: o.DispensaryID, Label: item.PackageLabel, Qty: qty})
	}
	return deltas
}

func (s *Service) publish(ctx context.Context, e events.Event) error {
	if s.events == nil {
		return nil
	}
	if err := s.events.Publish(ctx, e); err != nil {
		return fmt.Errorf("publish %s: %w", e.EventType, err)
	}
	return nil
}
