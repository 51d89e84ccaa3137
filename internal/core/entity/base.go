// Package entity provides the typed records shared by the pricing,
// compliance and order packages.
package entity

import (
	"time"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/types"
)

// Validatable is implemented by records that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate returns nil if valid, AppError with details otherwise.
	Validate() error
}

var (
	_ Validatable = (*Product)(nil)
	_ Validatable = (*PurchaseLimit)(nil)
	_ Validatable = (*Order)(nil)
	_ Validatable = (*OrderItem)(nil)
	_ Validatable = (*Package)(nil)
	_ Validatable = (*AdjustPackage)(nil)
	_ Validatable = (*DiscountHistory)(nil)
	_ Validatable = (*TaxRule)(nil)
)

// Timestamps contains audit timestamps shared by persisted records.
type Timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewTimestamps returns timestamps set to now (UTC).
func NewTimestamps() Timestamps {
	now := time.Now().UTC()
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}

// Touch updates the UpdatedAt timestamp.
func (t *Timestamps) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

func requireNonNegative(field string, v types.Money) error {
	if v.IsNegative() {
		return apperror.NewValidation(field + " must not be negative").
			WithDetail("field", field)
	}
	return nil
}

func requirePositiveID(field string, v int64) error {
	if v <= 0 {
		return apperror.NewValidation(field + " is required").
			WithDetail("field", field)
	}
	return nil
}
