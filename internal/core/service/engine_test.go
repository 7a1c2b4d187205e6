package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ynprojects/logistics/internal/adapter/storage"
	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// engineEnv wires the full engine against the in-memory store.
type engineEnv struct {
	store     *storage.MemoryStore
	alerts    *AlertRegister
	orders    *OrderService
	shipments *ShipmentService
	scheduler *Scheduler
}

func newEngine(t *testing.T) *engineEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	alerts := NewAlertRegister(store)
	logger := zap.NewNop()
	orders := NewOrderService(store, alerts, logger)
	shipments := NewShipmentService(store, storage.NewMemorySequence(), alerts, logger)
	scheduler := NewScheduler(store, orders, shipments, alerts, logger, time.Hour)
	return &engineEnv{
		store:     store,
		alerts:    alerts,
		orders:    orders,
		shipments: shipments,
		scheduler: scheduler,
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (e *engineEnv) addProduct(t *testing.T, name string, durationMinutes int64, stock, threshold string) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: name, SKU: name + "-sku", Unit: "pcs", ProductionDurationMinutes: durationMinutes}
	if err := e.store.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	e.setStock(t, domain.ProductRef(p.ID), stock, threshold)
	return p
}

func (e *engineEnv) addRawMaterial(t *testing.T, name string, stock, threshold string) *domain.RawMaterial {
	t.Helper()
	rm := &domain.RawMaterial{Name: name, Unit: "kg"}
	if err := e.store.CreateRawMaterial(context.Background(), rm); err != nil {
		t.Fatalf("create raw material: %v", err)
	}
	e.setStock(t, domain.RawMaterialRef(rm.ID), stock, threshold)
	return rm
}

func (e *engineEnv) addSupplier(t *testing.T, name string) *domain.Supplier {
	t.Helper()
	sup := &domain.Supplier{Name: name}
	if err := e.store.CreateSupplier(context.Background(), sup); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	return sup
}

func (e *engineEnv) setStock(t *testing.T, owner domain.OwnerRef, quantity, threshold string) {
	t.Helper()
	err := e.store.RunInTx(context.Background(), func(tx port.Tx) error {
		rec, err := tx.LockInventory(context.Background(), owner)
		if err != nil {
			return err
		}
		rec.Quantity = dec(quantity)
		rec.ReorderThreshold = dec(threshold)
		rec.LastUpdated = time.Now()
		return tx.SaveInventory(context.Background(), rec)
	})
	if err != nil {
		t.Fatalf("set stock for %s %d: %v", owner.Type, owner.ID, err)
	}
}

func (e *engineEnv) stock(t *testing.T, owner domain.OwnerRef) decimal.Decimal {
	t.Helper()
	rec, err := e.store.GetInventoryByOwner(context.Background(), owner)
	if err != nil {
		t.Fatalf("read inventory for %s %d: %v", owner.Type, owner.ID, err)
	}
	return rec.Quantity
}

func (e *engineEnv) requireStock(t *testing.T, owner domain.OwnerRef, want string) {
	t.Helper()
	got := e.stock(t, owner)
	if !got.Equal(dec(want)) {
		t.Errorf("expected %s %d stock %s, got %s", owner.Type, owner.ID, want, got)
	}
}

func (e *engineEnv) findAlert(t *testing.T, typ domain.AlertType, st domain.SubjectType, subjectID int64) *domain.Alert {
	t.Helper()
	alerts, err := e.store.ListAlerts(context.Background())
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	for i := range alerts {
		a := alerts[i]
		if a.Type == typ && a.SubjectType == st && a.SubjectID == subjectID {
			return &a
		}
	}
	return nil
}

func (e *engineEnv) insertAlert(t *testing.T, a domain.Alert) {
	t.Helper()
	err := e.store.RunInTx(context.Background(), func(tx port.Tx) error {
		_, err := tx.InsertAlertIfAbsent(context.Background(), &a)
		return err
	})
	if err != nil {
		t.Fatalf("insert alert: %v", err)
	}
}

func datePtr(t time.Time) *time.Time {
	d := domain.Day(t)
	return &d
}
