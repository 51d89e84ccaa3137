// Package audit records the action history of every mutating operation.
package audit

import (
	"context"
	"time"

	appctx "cannapos/internal/core/context"
)

// Action names a mutating operation.
type Action string

const (
	ActionOrderCreate      Action = "order.create"
	ActionOrderItemAdd     Action = "order.item.add"
	ActionOrderItemReturn  Action = "order.item.return"
	ActionOrderItemRemove  Action = "order.item.remove"
	ActionDiscountApply    Action = "order.discount.apply"
	ActionDiscountCancel   Action = "order.discount.cancel"
	ActionLoyaltyApply     Action = "order.loyalty.apply"
	ActionLoyaltyCancel    Action = "order.loyalty.cancel"
	ActionTaxRecompute     Action = "order.tax.recompute"
	ActionOrderHold        Action = "order.hold"
	ActionOrderUnhold      Action = "order.unhold"
	ActionOrderCancel      Action = "order.cancel"
	ActionOrderToReturn    Action = "order.convert_to_return"
	ActionOrderComplete    Action = "order.complete"
	ActionOrderVoid        Action = "order.void"
	ActionOrderSync        Action = "order.metrc.sync"
	ActionOrderUnsync      Action = "order.metrc.unsync"
	ActionPackageSync      Action = "package.sync"
	ActionPackageAdjust    Action = "package.adjust"
	ActionPackageReconcile Action = "package.reconcile"
	ActionAdjustCancel     Action = "package.adjust.cancel"
	ActionPackageFinish    Action = "package.finish"
	ActionPackageReopen    Action = "package.reactivate"
	ActionPackageHold      Action = "package.hold"
	ActionPackageUnhold    Action = "package.unhold"
)

// Entry is one action history record.
type Entry struct {
	Action       Action
	EntityType   string
	EntityID     int64
	DispensaryID int64
	UserID       int64
	OrderID      int64
	PackageLabel string
	Fields       map[string]any
	CreatedAt    time.Time
}

// Recorder persists audit entries inside the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Enrich fills user, dispensary and timestamp from the request context
// where the caller left them empty.
func Enrich(ctx context.Context, e *Entry) {
	if user := appctx.GetUser(ctx); user != nil {
		if e.UserID == 0 {
			e.UserID = user.UserID
		}
		if e.DispensaryID == 0 {
			e.DispensaryID = user.DispensaryID
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}
