// Package memory is an in-process implementation of every repository,
// used by tests and by the server when no database is configured.
package memory

import (
	"context"
	"maps"
	"sync"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/tx"
	"cannapos/internal/domain/audit"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/domain/compliance"
	"cannapos/internal/domain/events"
	"cannapos/internal/domain/order"
	"cannapos/internal/domain/registers/stock"
)

var (
	_ order.Repository      = (*Store)(nil)
	_ order.PackageReader   = (*Store)(nil)
	_ catalog.Repository    = (*Store)(nil)
	_ compliance.Repository = (*Store)(nil)
	_ stock.Repository      = (*Store)(nil)
	_ audit.Recorder        = (*Store)(nil)
	_ events.Publisher      = (*Store)(nil)
	_ tx.Manager            = (*TxManager)(nil)
)

type state struct {
	seq int64

	products     map[int64]entity.Product
	categories   map[int64]entity.ItemCategory
	customers    map[int64]entity.Customer
	dispensaries map[int64]entity.Dispensary
	drawers      map[int64]entity.Drawer
	loyalties    map[int64]entity.LoyaltyProgram
	taxRules     map[int64]entity.TaxRule
	limits       map[int64]entity.PurchaseLimit

	orders    map[int64]entity.Order
	items     map[int64]entity.OrderItem
	discounts map[int64]entity.DiscountHistory
	loyalty   map[int64]entity.LoyaltyHistory
	taxes     map[int64]entity.TaxHistory

	packages    map[int64]entity.Package
	adjustments map[int64]entity.AdjustPackage
	syncs       map[int64]entity.SyncHistory

	audit  []audit.Entry
	events []events.Event
}

func newState() state {
	return state{
		products:     map[int64]entity.Product{},
		categories:   map[int64]entity.ItemCategory{},
		customers:    map[int64]entity.Customer{},
		dispensaries: map[int64]entity.Dispensary{},
		drawers:      map[int64]entity.Drawer{},
		loyalties:    map[int64]entity.LoyaltyProgram{},
		taxRules:     map[int64]entity.TaxRule{},
		limits:       map[int64]entity.PurchaseLimit{},
		orders:       map[int64]entity.Order{},
		items:        map[int64]entity.OrderItem{},
		discounts:    map[int64]entity.DiscountHistory{},
		loyalty:      map[int64]entity.LoyaltyHistory{},
		taxes:        map[int64]entity.TaxHistory{},
		packages:     map[int64]entity.Package{},
		adjustments:  map[int64]entity.AdjustPackage{},
		syncs:        map[int64]entity.SyncHistory{},
	}
}

// clone copies every table. Records are stored by value so a shallow map
// copy is enough, except for pointer fields which are never mutated in place.
func (s state) clone() state {
	return state{
		seq:          s.seq,
		products:     maps.Clone(s.products),
		categories:   maps.Clone(s.categories),
		customers:    maps.Clone(s.customers),
		dispensaries: maps.Clone(s.dispensaries),
		drawers:      maps.Clone(s.drawers),
		loyalties:    maps.Clone(s.loyalties),
		taxRules:     maps.Clone(s.taxRules),
		limits:       maps.Clone(s.limits),
		orders:       maps.Clone(s.orders),
		items:        maps.Clone(s.items),
		discounts:    maps.Clone(s.discounts),
		loyalty:      maps.Clone(s.loyalty),
		taxes:        maps.Clone(s.taxes),
		packages:     maps.Clone(s.packages),
		adjustments:  maps.Clone(s.adjustments),
		syncs:        maps.Clone(s.syncs),
		audit:        append([]audit.Entry(nil), s.audit...),
		events:       append([]events.Event(nil), s.events...),
	}
}

// Store keeps every table in maps guarded by one lock.
type Store struct {
	mu sync.RWMutex
	st state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) nextID() int64 {
	s.st.seq++
	return s.st.seq
}

// AuditEntries returns recorded audit entries in insertion order.
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry(nil), s.st.audit...)
}

// Events returns published events in insertion order.
func (s *Store) Events() []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event(nil), s.st.events...)
}

// Record implements audit.Recorder.
func (s *Store) Record(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.audit = append(s.st.audit, entry)
	return nil
}

// Publish implements events.Publisher.
func (s *Store) Publish(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.events = append(s.st.events, event)
	return nil
}

// TxManager serializes transactions and restores a snapshot on error.
type TxManager struct {
	store *Store
	mu    sync.Mutex
}

// NewTxManager creates a transaction manager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

type txKey struct{}

// RunInTransaction implements tx.Manager. Nested calls join the outer
// transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.mu.RLock()
	snapshot := m.store.st.clone()
	m.store.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.mu.Lock()
		m.store.st = snapshot
		m.store.mu.Unlock()
		return err
	}
	return nil
}
