package memory

import (
	"cmp"
	"context"
	"slices"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
)

// PutProduct stores a product, assigning an ID when zero.
func (s *Store) PutProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID()
	}
	s.st.products[p.ID] = *p
}

// PutCategory stores a category, assigning an ID when zero.
func (s *Store) PutCategory(c *entity.ItemCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID()
	}
	s.st.categories[c.ID] = *c
}

// PutCustomer stores a customer, assigning an ID when zero.
func (s *Store) PutCustomer(c *entity.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID()
	}
	s.st.customers[c.ID] = *c
}

// PutDispensary stores a dispensary, assigning an ID when zero.
func (s *Store) PutDispensary(d *entity.Dispensary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.nextID()
	}
	s.st.dispensaries[d.ID] = *d
}

// PutDrawer stores a drawer, assigning an ID when zero.
func (s *Store) PutDrawer(d *entity.Drawer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.nextID()
	}
	s.st.drawers[d.ID] = *d
}

// PutLoyaltyProgram stores a loyalty program, assigning an ID when zero.
func (s *Store) PutLoyaltyProgram(l *entity.LoyaltyProgram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.nextID()
	}
	s.st.loyalties[l.ID] = *l
}

// PutTaxRule stores a tax rule, assigning an ID when zero.
func (s *Store) PutTaxRule(r *entity.TaxRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.nextID()
	}
	s.st.taxRules[r.ID] = *r
}

// PutPurchaseLimit stores a purchase limit, assigning an ID when zero.
func (s *Store) PutPurchaseLimit(l *entity.PurchaseLimit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.nextID()
	}
	s.st.limits[l.ID] = *l
}

// GetProduct implements catalog.Repository.
func (s *Store) GetProduct(_ context.Context, id int64) (*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.st.products[id]
	if !ok {
		return nil, apperror.NewNotFound("product", id)
	}
	return &p, nil
}

// GetCategory implements catalog.Repository.
func (s *Store) GetCategory(_ context.Context, id int64) (*entity.ItemCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.st.categories[id]
	if !ok {
		return nil, apperror.NewNotFound("item category", id)
	}
	return &c, nil
}

// GetCustomer implements catalog.Repository.
func (s *Store) GetCustomer(_ context.Context, id int64) (*entity.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.st.customers[id]
	if !ok {
		return nil, apperror.NewNotFound("customer", id)
	}
	return &c, nil
}

// AddCustomerPoints implements catalog.Repository.
func (s *Store) AddCustomerPoints(_ context.Context, customerID int64, delta types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.customers[customerID]
	if !ok {
		return apperror.NewNotFound("customer", customerID)
	}
	c.LoyaltyPoints = c.LoyaltyPoints.Add(delta)
	s.st.customers[customerID] = c
	return nil
}

// GetDispensary implements catalog.Repository.
func (s *Store) GetDispensary(_ context.Context, id int64) (*entity.Dispensary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.st.dispensaries[id]
	if !ok {
		return nil, apperror.NewNotFound("dispensary", id)
	}
	return &d, nil
}

// ListMetrcDispensaries implements catalog.Repository.
func (s *Store) ListMetrcDispensaries(_ context.Context) ([]*entity.Dispensary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Dispensary
	for _, d := range s.st.dispensaries {
		if d.MetrcConnected() {
			out = append(out, &d)
		}
	}
	slices.SortFunc(out, func(a, b *entity.Dispensary) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ActiveDrawer implements catalog.Repository.
func (s *Store) ActiveDrawer(_ context.Context, dispensaryID, userID int64) (*entity.Drawer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.st.drawers {
		if d.DispensaryID == dispensaryID && d.UserID == userID && d.IsUsing {
			return &d, nil
		}
	}
	return nil, nil
}

// ActiveLoyalty implements catalog.Repository.
func (s *Store) ActiveLoyalty(_ context.Context, dispensaryID int64) (*entity.LoyaltyProgram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.st.loyalties {
		if l.DispensaryID == dispensaryID && l.IsActive {
			return &l, nil
		}
	}
	return nil, nil
}

// ListTaxRules implements catalog.Repository.
func (s *Store) ListTaxRules(_ context.Context, dispensaryID int64) ([]entity.TaxRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.TaxRule
	for _, r := range s.st.taxRules {
		if r.DispensaryID == dispensaryID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b entity.TaxRule) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ListPurchaseLimits implements catalog.Repository.
func (s *Store) ListPurchaseLimits(_ context.Context, dispensaryID int64) ([]entity.PurchaseLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.PurchaseLimit
	for _, l := range s.st.limits {
		if l.DispensaryID == dispensaryID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b entity.PurchaseLimit) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
