package memory

import (
	"cmp"
	"context"
	"slices"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/compliance"
)

// PutPackage stores a package as is, assigning an ID when zero.
func (s *Store) PutPackage(p *entity.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID()
	}
	s.st.packages[p.ID] = *p
}

// GetPackage implements compliance.Repository.
func (s *Store) GetPackage(_ context.Context, id int64) (*entity.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.st.packages[id]
	if !ok {
		return nil, apperror.NewNotFound("package", id)
	}
	return &p, nil
}

func (s *Store) findByLabelLocked(dispensaryID int64, label string) (entity.Package, bool) {
	for _, p := range s.st.packages {
		if p.DispensaryID == dispensaryID && p.Label == label {
			return p, true
		}
	}
	return entity.Package{}, false
}

// FindPackageByLabel implements compliance.Repository.
func (s *Store) FindPackageByLabel(_ context.Context, dispensaryID int64, label string) (*entity.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.findByLabelLocked(dispensaryID, label)
	if !ok {
		return nil, apperror.NewNotFound("package", label)
	}
	return &p, nil
}

// UpsertPackage implements compliance.Repository.
func (s *Store) UpsertPackage(_ context.Context, p *entity.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.findByLabelLocked(p.DispensaryID, p.Label)
	if !ok {
		p.ID = s.nextID()
		p.PosQty = p.Quantity
		s.st.packages[p.ID] = *p
		return nil
	}
	p.ID = cur.ID
	p.PosQty = cur.PosQty
	p.ProductID = cur.ProductID
	p.IsConnectedWithProduct = cur.IsConnectedWithProduct
	p.CreatedAt = cur.CreatedAt
	s.st.packages[p.ID] = *p
	return nil
}

// UpdatePackage implements compliance.Repository.
func (s *Store) UpdatePackage(_ context.Context, p *entity.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.packages[p.ID]; !ok {
		return apperror.NewNotFound("package", p.ID)
	}
	s.st.packages[p.ID] = *p
	return nil
}

// AdjustPosQty implements stock.Repository.
func (s *Store) AdjustPosQty(_ context.Context, dispensaryID int64, label string, delta types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findByLabelLocked(dispensaryID, label)
	if !ok {
		return apperror.NewNotFound("package", label)
	}
	p.PosQty = p.PosQty.Add(delta)
	s.st.packages[p.ID] = p
	return nil
}

// ListDrift implements compliance.Repository.
func (s *Store) ListDrift(_ context.Context, filter compliance.DriftFilter) ([]*entity.Package, int, error) {
	s.mu.RLock()
	var all []*entity.Package
	for _, p := range s.st.packages {
		if p.DispensaryID != filter.DispensaryID || p.Status != entity.PackageActive {
			continue
		}
		if !p.IsRegulated() || !p.IsConnectedWithProduct || p.PosQty.Equal(p.Quantity) {
			continue
		}
		all = append(all, &p)
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b *entity.Package) int {
		var c int
		switch {
		case filter.SortKey.Less(a, b):
			c = -1
		case filter.SortKey.Less(b, a):
			c = 1
		default:
			c = cmp.Compare(a.ID, b.ID)
		}
		if filter.Desc {
			return -c
		}
		return c
	})

	total := len(all)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)
	return all[filter.Offset:end], total, nil
}

// ListEmptyActive implements compliance.Repository.
func (s *Store) ListEmptyActive(_ context.Context, dispensaryID int64) ([]*entity.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Package
	for _, p := range s.st.packages {
		if p.DispensaryID == dispensaryID && p.Status == entity.PackageActive && p.Quantity.IsZero() && p.PosQty.IsZero() {
			out = append(out, &p)
		}
	}
	slices.SortFunc(out, func(a, b *entity.Package) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// GetAdjustment implements compliance.Repository.
func (s *Store) GetAdjustment(_ context.Context, id int64) (*entity.AdjustPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.st.adjustments[id]
	if !ok {
		return nil, apperror.NewNotFound("package adjustment", id)
	}
	return &a, nil
}

// CreateAdjustment implements compliance.Repository.
func (s *Store) CreateAdjustment(_ context.Context, a *entity.AdjustPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID()
	s.st.adjustments[a.ID] = *a
	return nil
}

// UpdateAdjustment implements compliance.Repository.
func (s *Store) UpdateAdjustment(_ context.Context, a *entity.AdjustPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.adjustments[a.ID]; !ok {
		return apperror.NewNotFound("package adjustment", a.ID)
	}
	s.st.adjustments[a.ID] = *a
	return nil
}

// DeleteAdjustment implements compliance.Repository.
func (s *Store) DeleteAdjustment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.adjustments, id)
	return nil
}

// DeletePendingAdjustments implements compliance.Repository.
func (s *Store) DeletePendingAdjustments(_ context.Context, dispensaryID int64, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.st.adjustments {
		if a.DispensaryID == dispensaryID && a.PackageLabel == label && a.NeedMetrcSync && !a.SyncMetrc {
			delete(s.st.adjustments, id)
		}
	}
	return nil
}

// ListPendingAdjustments implements compliance.Repository.
func (s *Store) ListPendingAdjustments(_ context.Context, dispensaryID int64) ([]*entity.AdjustPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.AdjustPackage
	for _, a := range s.st.adjustments {
		if a.DispensaryID == dispensaryID && a.NeedMetrcSync && !a.SyncMetrc {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *entity.AdjustPackage) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// LatestSync implements compliance.Repository.
func (s *Store) LatestSync(_ context.Context, dispensaryID int64, syncType entity.SyncType) (*entity.SyncHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *entity.SyncHistory
	for _, h := range s.st.syncs {
		if h.DispensaryID != dispensaryID || h.SyncType != syncType {
			continue
		}
		if found == nil || h.CreatedAt.After(found.CreatedAt) {
			found = &h
		}
	}
	return found, nil
}

// CreateSyncHistory implements compliance.Repository.
func (s *Store) CreateSyncHistory(_ context.Context, h *entity.SyncHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = s.nextID()
	s.st.syncs[h.ID] = *h
	return nil
}
