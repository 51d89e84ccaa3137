package memory

import (
	"cmp"
	"context"
	"slices"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/entity"
)

// Create implements order.Repository.
func (s *Store) Create(_ context.Context, o *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.nextID()
	s.st.orders[o.ID] = *o
	return nil
}

// Get implements order.Repository.
func (s *Store) Get(_ context.Context, id int64) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.st.orders[id]
	if !ok {
		return nil, apperror.NewNotFound("order", id)
	}
	return &o, nil
}

// Lock implements order.Repository. The TxManager already serializes
// transactions, so a plain read is enough.
func (s *Store) Lock(ctx context.Context, id int64) (*entity.Order, error) {
	return s.Get(ctx, id)
}

// Update implements order.Repository.
func (s *Store) Update(_ context.Context, o *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.orders[o.ID]; !ok {
		return apperror.NewNotFound("order", o.ID)
	}
	s.st.orders[o.ID] = *o
	return nil
}

// Delete implements order.Repository.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.orders, id)
	return nil
}

// ListItems implements order.Repository. Items are returned in insertion order.
func (s *Store) ListItems(_ context.Context, orderID int64) ([]*entity.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.OrderItem
	for _, it := range s.st.items {
		if it.OrderID == orderID {
			out = append(out, &it)
		}
	}
	slices.SortFunc(out, func(a, b *entity.OrderItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// GetItem implements order.Repository.
func (s *Store) GetItem(_ context.Context, itemID int64) (*entity.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.st.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("order item", itemID)
	}
	return &it, nil
}

// CreateItem implements order.Repository.
func (s *Store) CreateItem(_ context.Context, item *entity.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextID()
	s.st.items[item.ID] = *item
	return nil
}

// UpdateAllocations implements order.Repository.
func (s *Store) UpdateAllocations(_ context.Context, items []*entity.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		cur, ok := s.st.items[it.ID]
		if !ok {
			continue
		}
		cur.DiscountedAmount = it.DiscountedAmount
		cur.LoyaltyAmount = it.LoyaltyAmount
		s.st.items[it.ID] = cur
	}
	return nil
}

// DeleteItem implements order.Repository.
func (s *Store) DeleteItem(_ context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.items, itemID)
	for id, t := range s.st.taxes {
		if t.OrderItemID == itemID {
			delete(s.st.taxes, id)
		}
	}
	return nil
}

// DeleteItems implements order.Repository.
func (s *Store) DeleteItems(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range s.st.items {
		if it.OrderID == orderID {
			delete(s.st.items, id)
		}
	}
	return nil
}

// FindDiscount implements order.Repository.
func (s *Store) FindDiscount(_ context.Context, orderID int64) (*entity.DiscountHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *entity.DiscountHistory
	for _, d := range s.st.discounts {
		if d.OrderID == orderID && (found == nil || d.ID > found.ID) {
			found = &d
		}
	}
	return found, nil
}

// CreateDiscount implements order.Repository.
func (s *Store) CreateDiscount(_ context.Context, d *entity.DiscountHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.nextID()
	s.st.discounts[d.ID] = *d
	return nil
}

// DeleteDiscounts implements order.Repository.
func (s *Store) DeleteDiscounts(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.st.discounts {
		if d.OrderID == orderID {
			delete(s.st.discounts, id)
		}
	}
	return nil
}

// FindLoyalty implements order.Repository.
func (s *Store) FindLoyalty(_ context.Context, orderID int64, txType entity.LoyaltyTxType) (*entity.LoyaltyHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *entity.LoyaltyHistory
	for _, h := range s.st.loyalty {
		if h.OrderID == orderID && h.TxType == txType && (found == nil || h.ID > found.ID) {
			found = &h
		}
	}
	return found, nil
}

// CreateLoyalty implements order.Repository.
func (s *Store) CreateLoyalty(_ context.Context, h *entity.LoyaltyHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = s.nextID()
	s.st.loyalty[h.ID] = *h
	return nil
}

// DeleteLoyalty implements order.Repository.
func (s *Store) DeleteLoyalty(_ context.Context, orderID int64, txType entity.LoyaltyTxType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, h := range s.st.loyalty {
		if h.OrderID == orderID && (txType == "" || h.TxType == txType) {
			delete(s.st.loyalty, id)
		}
	}
	return nil
}

// ListTaxes implements order.Repository.
func (s *Store) ListTaxes(_ context.Context, orderID int64) ([]entity.TaxHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.TaxHistory
	for _, t := range s.st.taxes {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b entity.TaxHistory) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ReplaceTaxes implements order.Repository.
func (s *Store) ReplaceTaxes(_ context.Context, orderID int64, rows []entity.TaxHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteTaxesLocked(orderID)
	for _, r := range rows {
		r.ID = s.nextID()
		r.OrderID = orderID
		s.st.taxes[r.ID] = r
	}
	return nil
}

// DeleteTaxes implements order.Repository.
func (s *Store) DeleteTaxes(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteTaxesLocked(orderID)
	return nil
}

func (s *Store) deleteTaxesLocked(orderID int64) {
	for id, t := range s.st.taxes {
		if t.OrderID == orderID {
			delete(s.st.taxes, id)
		}
	}
}
