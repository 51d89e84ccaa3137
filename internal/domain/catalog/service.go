package catalog

import (
	"context"
	"fmt"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/pkg/logger"
)

// Service wraps the repository and caches purchase limits, which are read
// on every item addition and change rarely.
type Service struct {
	repo  Repository
	cache LimitCache
}

// NewService creates a catalog service. cache may be nil.
func NewService(repo Repository, cache LimitCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Product returns a product with its category.
func (s *Service) Product(ctx context.Context, productID int64) (*entity.Product, *entity.ItemCategory, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.repo.GetCategory(ctx, p.CategoryID)
	if err != nil {
		return nil, nil, fmt.Errorf("category of product %d: %w", productID, err)
	}
	return p, c, nil
}

// Customer returns a customer, or nil when id is nil.
func (s *Service) Customer(ctx context.Context, id *int64) (*entity.Customer, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	return s.repo.GetCustomer(ctx, *id)
}

// AddCustomerPoints changes a customer's loyalty balance.
func (s *Service) AddCustomerPoints(ctx context.Context, customerID int64, delta types.Money) error {
	return s.repo.AddCustomerPoints(ctx, customerID, delta)
}

// Dispensary returns a dispensary.
func (s *Service) Dispensary(ctx context.Context, id int64) (*entity.Dispensary, error) {
	return s.repo.GetDispensary(ctx, id)
}

// MetrcDispensaries returns dispensaries connected to the regulator.
func (s *Service) MetrcDispensaries(ctx context.Context) ([]*entity.Dispensary, error) {
	return s.repo.ListMetrcDispensaries(ctx)
}

// ActiveDrawer returns the user's open drawer, or nil.
func (s *Service) ActiveDrawer(ctx context.Context, dispensaryID, userID int64) (*entity.Drawer, error) {
	return s.repo.ActiveDrawer(ctx, dispensaryID, userID)
}

// ActiveLoyalty returns the active loyalty program, or nil.
func (s *Service) ActiveLoyalty(ctx context.Context, dispensaryID int64) (*entity.LoyaltyProgram, error) {
	return s.repo.ActiveLoyalty(ctx, dispensaryID)
}

// TaxRules returns the dispensary's tax rules.
func (s *Service) TaxRules(ctx context.Context, dispensaryID int64) ([]entity.TaxRule, error) {
	return s.repo.ListTaxRules(ctx, dispensaryID)
}

// PurchaseLimits returns the dispensary's limits, reading through the cache.
// Cache failures fall back to the repository.
func (s *Service) PurchaseLimits(ctx context.Context, dispensaryID int64) ([]entity.PurchaseLimit, error) {
	if s.cache != nil {
		limits, ok, err := s.cache.Get(ctx, dispensaryID)
		if err != nil {
			logger.Warn(ctx, "purchase limit cache read failed", "dispensary_id", dispensaryID, "error", err)
		} else if ok {
			return limits, nil
		}
	}

	limits, err := s.repo.ListPurchaseLimits(ctx, dispensaryID)
	if err != nil {
		return nil, fmt.Errorf("list purchase limits: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dispensaryID, limits); err != nil {
			logger.Warn(ctx, "purchase limit cache write failed", "dispensary_id", dispensaryID, "error", err)
		}
	}
	return limits, nil
}

// InvalidateLimits drops the cached limits of a dispensary.
func (s *Service) InvalidateLimits(ctx context.Context, dispensaryID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, dispensaryID)
}
