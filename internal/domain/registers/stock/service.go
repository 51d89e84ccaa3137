// Package stock applies store-side package quantity changes caused by
// completed and voided orders.
package stock

import (
	"context"
	"sync"

	"cannapos/internal/core/types"
	"cannapos/pkg/logger"
)

// Delta is one package quantity change.
type Delta struct {
	DispensaryID int64
	Label        string
	Qty          types.Money
}

// Outcome is the result of one Delta.
type Outcome struct {
	Label string      `json:"packageLabel"`
	Delta types.Money `json:"delta"`
	Err   error       `json:"-"`
}

// OK reports whether the update succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// BatchResult carries per-item outcomes in input order.
type BatchResult struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Failed returns the outcomes that did not apply.
func (r BatchResult) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded returns the number of applied updates.
func (r BatchResult) Succeeded() int {
	return len(r.Outcomes) - len(r.Failed())
}

// Service fans package updates out concurrently.
type Service struct {
	repo Repository
}

// NewService creates a new stock service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Apply updates every package independently. Failures are recorded in the
// result and logged; Apply itself never fails, so a caller may report
// success with part of the inventory left unchanged.
func (s *Service) Apply(ctx context.Context, deltas []Delta) BatchResult {
	result := BatchResult{Outcomes: make([]Outcome, len(deltas))}

	var wg sync.WaitGroup
	for i, d := range deltas {
		result.Outcomes[i] = Outcome{Label: d.Label, Delta: d.Qty}
		wg.Add(1)
		go func(i int, d Delta) {
			defer wg.Done()
			if err := s.repo.AdjustPosQty(ctx, d.DispensaryID, d.Label, d.Qty); err != nil {
				result.Outcomes[i].Err = err
				logger.Error(ctx, "package stock update failed",
					"package_label", d.Label,
					"delta", d.Qty.String(),
					"error", err,
				)
			}
		}(i, d)
	}
	wg.Wait()

	if failed := len(result.Failed()); failed > 0 {
		logger.Warn(ctx, "stock fan-out finished with failures",
			"total", len(deltas),
			"failed", failed,
		)
	}
	return result
}
