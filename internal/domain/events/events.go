// Package events defines the domain events written to the outbox.
package events

import (
	"context"
)

// Event types. They double as broker routing keys.
const (
	OrderCompleted    = "order.completed"
	OrderVoided       = "order.voided"
	PackageAdjusted   = "package.adjusted"
	PackageReconciled = "package.reconciled"
)

// Aggregate types.
const (
	AggregateOrder   = "order"
	AggregatePackage = "package"
)

// Event is a domain event to be relayed after commit.
type Event struct {
	AggregateType string
	AggregateID   int64
	EventType     string
	Payload       any
}

// Publisher writes events within the current transaction.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// OrderCompletedPayload is the body of OrderCompleted.
type OrderCompletedPayload struct {
	OrderID      int64  `json:"orderId"`
	DispensaryID int64  `json:"dispensaryId"`
	Amount       string `json:"amount"`
	Tax          string `json:"tax"`
	MjType       string `json:"mjType"`
	Metrc        string `json:"metrc"`
	StockFailed  int    `json:"stockFailed"`
}

// OrderVoidedPayload is the body of OrderVoided.
type OrderVoidedPayload struct {
	OrderID      int64  `json:"orderId"`
	DispensaryID int64  `json:"dispensaryId"`
	Reason       string `json:"reason"`
	Metrc        string `json:"metrc"`
}

// PackagePayload is the body of package events.
type PackagePayload struct {
	PackageID    int64  `json:"packageId"`
	AdjustID     int64  `json:"adjustId"`
	DispensaryID int64  `json:"dispensaryId"`
	Label        string `json:"packageLabel"`
	Delta        string `json:"delta"`
	Reason       string `json:"reason,omitempty"`
}
