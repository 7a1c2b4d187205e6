package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// MemoryStore is an in-memory port.Store with copy-on-write transactions:
// RunInTx runs against a clone of the state and swaps it in on commit, so a
// failed transition rolls back with no partial mutation, same as the MySQL
// adapter. A single mutex serializes transactions, which stands in for
// row-level locking.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	products     map[int64]domain.Product
	rawMaterials map[int64]domain.RawMaterial
	suppliers    map[int64]domain.Supplier
	inventory    map[domain.OwnerRef]domain.InventoryRecord
	orders       map[int64]domain.ProductionOrder
	shipments    map[int64]domain.Shipment
	alerts       map[int64]domain.Alert
	nextID       int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		products:     make(map[int64]domain.Product),
		rawMaterials: make(map[int64]domain.RawMaterial),
		suppliers:    make(map[int64]domain.Supplier),
		inventory:    make(map[domain.OwnerRef]domain.InventoryRecord),
		orders:       make(map[int64]domain.ProductionOrder),
		shipments:    make(map[int64]domain.Shipment),
		alerts:       make(map[int64]domain.Alert),
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		products:     make(map[int64]domain.Product, len(s.products)),
		rawMaterials: make(map[int64]domain.RawMaterial, len(s.rawMaterials)),
		suppliers:    make(map[int64]domain.Supplier, len(s.suppliers)),
		inventory:    make(map[domain.OwnerRef]domain.InventoryRecord, len(s.inventory)),
		orders:       make(map[int64]domain.ProductionOrder, len(s.orders)),
		shipments:    make(map[int64]domain.Shipment, len(s.shipments)),
		alerts:       make(map[int64]domain.Alert, len(s.alerts)),
		nextID:       s.nextID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.rawMaterials {
		c.rawMaterials[k] = v
	}
	for k, v := range s.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.shipments {
		c.shipments[k] = v
	}
	for k, v := range s.alerts {
		c.alerts[k] = v
	}
	return c
}

func copyOrder(o domain.ProductionOrder) domain.ProductionOrder {
	o.Materials = append([]domain.MaterialLine(nil), o.Materials...)
	return o
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx port.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&memTx{state: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *MemoryStore) GetProductionOrder(ctx context.Context, id int64) (*domain.ProductionOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: production order %d", domain.ErrNotFound, id)
	}
	o = copyOrder(o)
	return &o, nil
}

func (s *MemoryStore) GetShipment(ctx context.Context, id int64) (*domain.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.state.shipments[id]
	if !ok {
		return nil, fmt.Errorf("%w: shipment %d", domain.ErrNotFound, id)
	}
	return &sh, nil
}

func (s *MemoryStore) GetInventoryByOwner(ctx context.Context, owner domain.OwnerRef) (*domain.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.inventory[owner]
	if !ok {
		return nil, fmt.Errorf("%w: inventory for %s %d", domain.ErrNotFound, owner.Type, owner.ID)
	}
	return &rec, nil
}

func (s *MemoryStore) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Alert, 0, len(s.state.alerts))
	for _, a := range s.state.alerts {
		out = append(out, a)
	}
	return out, nil
}

func (s *MemoryStore) ListOrdersDueToStart(ctx context.Context, day time.Time) ([]domain.ProductionOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProductionOrder
	for _, o := range s.state.orders {
		if o.Status == domain.OrderPlanned && o.StartDate != nil && domain.SameDay(*o.StartDate, day) {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListOrdersDueToComplete(ctx context.Context, day time.Time) ([]domain.ProductionOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProductionOrder
	for _, o := range s.state.orders {
		if o.Status == domain.OrderInProgress && o.PlannedCompletionDate != nil && domain.SameDay(*o.PlannedCompletionDate, day) {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListShipmentsDueToDepart(ctx context.Context, day time.Time) ([]domain.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Shipment
	for _, sh := range s.state.shipments {
		if sh.Status == domain.ShipmentPlanned && domain.SameDay(sh.DepartureDate, day) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListShipmentsOverdue(ctx context.Context, day time.Time) ([]domain.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Shipment
	for _, sh := range s.state.shipments {
		if sh.Status == domain.ShipmentInTransit && sh.EstimateArrivalDate != nil && domain.SameDay(*sh.EstimateArrivalDate, day) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.state.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.state.products[p.ID] = *p
	s.createInventoryRow(domain.ProductRef(p.ID))
	return nil
}

func (s *MemoryStore) CreateRawMaterial(ctx context.Context, rm *domain.RawMaterial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm.ID = s.state.id()
	rm.CreatedAt = time.Now()
	rm.UpdatedAt = rm.CreatedAt
	s.state.rawMaterials[rm.ID] = *rm
	s.createInventoryRow(domain.RawMaterialRef(rm.ID))
	return nil
}

func (s *MemoryStore) CreateSupplier(ctx context.Context, sup *domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup.ID = s.state.id()
	s.state.suppliers[sup.ID] = *sup
	return nil
}

// createInventoryRow enforces exactly one inventory row per owner, created
// with the owning item. Caller holds the store mutex.
func (s *MemoryStore) createInventoryRow(owner domain.OwnerRef) {
	s.state.inventory[owner] = domain.InventoryRecord{
		ID:          s.state.id(),
		Owner:       owner,
		LastUpdated: time.Now(),
	}
}

// memTx operates on the transaction's cloned state; the store mutex is held
// for the whole transaction, so no further locking is needed.
type memTx struct {
	state *memState
}

func (t *memTx) LockInventory(ctx context.Context, owner domain.OwnerRef) (*domain.InventoryRecord, error) {
	rec, ok := t.state.inventory[owner]
	if !ok {
		return nil, fmt.Errorf("%w: inventory for %s %d", domain.ErrNotFound, owner.Type, owner.ID)
	}
	return &rec, nil
}

func (t *memTx) SaveInventory(ctx context.Context, rec *domain.InventoryRecord) error {
	if _, ok := t.state.inventory[rec.Owner]; !ok {
		return fmt.Errorf("%w: inventory for %s %d", domain.ErrNotFound, rec.Owner.Type, rec.Owner.ID)
	}
	t.state.inventory[rec.Owner] = *rec
	return nil
}

func (t *memTx) LockProductionOrder(ctx context.Context, id int64) (*domain.ProductionOrder, error) {
	o, ok := t.state.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: production order %d", domain.ErrNotFound, id)
	}
	o = copyOrder(o)
	return &o, nil
}

func (t *memTx) InsertProductionOrder(ctx context.Context, o *domain.ProductionOrder) error {
	o.ID = t.state.id()
	t.state.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *memTx) UpdateProductionOrder(ctx context.Context, o *domain.ProductionOrder) error {
	if _, ok := t.state.orders[o.ID]; !ok {
		return fmt.Errorf("%w: production order %d", domain.ErrNotFound, o.ID)
	}
	t.state.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *memTx) LockShipment(ctx context.Context, id int64) (*domain.Shipment, error) {
	sh, ok := t.state.shipments[id]
	if !ok {
		return nil, fmt.Errorf("%w: shipment %d", domain.ErrNotFound, id)
	}
	return &sh, nil
}

func (t *memTx) InsertShipment(ctx context.Context, sh *domain.Shipment) error {
	sh.ID = t.state.id()
	t.state.shipments[sh.ID] = *sh
	return nil
}

func (t *memTx) UpdateShipment(ctx context.Context, sh *domain.Shipment) error {
	if _, ok := t.state.shipments[sh.ID]; !ok {
		return fmt.Errorf("%w: shipment %d", domain.ErrNotFound, sh.ID)
	}
	t.state.shipments[sh.ID] = *sh
	return nil
}

func (t *memTx) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	return &p, nil
}

func (t *memTx) GetRawMaterial(ctx context.Context, id int64) (*domain.RawMaterial, error) {
	rm, ok := t.state.rawMaterials[id]
	if !ok {
		return nil, fmt.Errorf("%w: raw material %d", domain.ErrNotFound, id)
	}
	return &rm, nil
}

func (t *memTx) GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	sup, ok := t.state.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("%w: supplier %d", domain.ErrNotFound, id)
	}
	return &sup, nil
}

func (t *memTx) InsertAlertIfAbsent(ctx context.Context, a *domain.Alert) (bool, error) {
	for _, existing := range t.state.alerts {
		if existing.Type == a.Type && existing.SubjectType == a.SubjectType && existing.SubjectID == a.SubjectID {
			*a = existing
			return false, nil
		}
	}
	a.ID = t.state.id()
	t.state.alerts[a.ID] = *a
	return true, nil
}

func (t *memTx) DeleteAlert(ctx context.Context, typ domain.AlertType, st domain.SubjectType, subjectID int64) (int64, error) {
	for id, a := range t.state.alerts {
		if a.Type == typ && a.SubjectType == st && a.SubjectID == subjectID {
			delete(t.state.alerts, id)
			return 1, nil
		}
	}
	return 0, nil
}

func (t *memTx) PurgeAlerts(ctx context.Context, typ domain.AlertType, before time.Time) (int64, error) {
	var n int64
	for id, a := range t.state.alerts {
		if a.Type == typ && a.CreatedAt.Before(before) {
			delete(t.state.alerts, id)
			n++
		}
	}
	return n, nil
}

// MemorySequence is an in-process port.ReferenceSequence for tests and the
// stress driver. Production deployments use the Redis-backed sequence.
type MemorySequence struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemorySequence() *MemorySequence {
	return &MemorySequence{counts: make(map[string]int64)}
}

func (s *MemorySequence) Next(ctx context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day.Format("20060102")
	s.counts[key]++
	return s.counts[key], nil
}
