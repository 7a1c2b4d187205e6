package port

import (
	"context"
	"time"

	"github.com/ynprojects/logistics/internal/core/domain"
)

// Store is the persistence contract of the fulfillment engine. One status
// transition runs inside exactly one transaction: all row locks it takes are
// held until commit, and an error rolls everything back with no partial
// mutation.
type Store interface {
	// RunInTx executes fn inside a transaction, committing on nil and
	// rolling back on error.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	// Plain reads for the API surface.
	GetProductionOrder(ctx context.Context, id int64) (*domain.ProductionOrder, error)
	GetShipment(ctx context.Context, id int64) (*domain.Shipment, error)
	GetInventoryByOwner(ctx context.Context, owner domain.OwnerRef) (*domain.InventoryRecord, error)
	ListAlerts(ctx context.Context) ([]domain.Alert, error)

	// Scheduler sweep queries, all keyed on a calendar date.
	ListOrdersDueToStart(ctx context.Context, day time.Time) ([]domain.ProductionOrder, error)
	ListOrdersDueToComplete(ctx context.Context, day time.Time) ([]domain.ProductionOrder, error)
	ListShipmentsDueToDepart(ctx context.Context, day time.Time) ([]domain.Shipment, error)
	ListShipmentsOverdue(ctx context.Context, day time.Time) ([]domain.Shipment, error)

	// Master data creation. Each call also creates the owner's inventory
	// row (zero quantity, zero threshold) in the same transaction.
	CreateProduct(ctx context.Context, p *domain.Product) error
	CreateRawMaterial(ctx context.Context, rm *domain.RawMaterial) error
	CreateSupplier(ctx context.Context, s *domain.Supplier) error
}

// Tx exposes the operations available inside one transaction. Lock methods
// take an exclusive row lock held until the transaction ends; callers must
// lock every row they will mutate before mutating any of them, in ascending
// owner-id order whenever more than one row is involved.
type Tx interface {
	// Inventory ledger.
	LockInventory(ctx context.Context, owner domain.OwnerRef) (*domain.InventoryRecord, error)
	SaveInventory(ctx context.Context, rec *domain.InventoryRecord) error

	// Aggregates. Lock* guards the aggregate's own row so two concurrent
	// transitions on the same order or shipment cannot both succeed.
	LockProductionOrder(ctx context.Context, id int64) (*domain.ProductionOrder, error)
	InsertProductionOrder(ctx context.Context, o *domain.ProductionOrder) error
	UpdateProductionOrder(ctx context.Context, o *domain.ProductionOrder) error

	LockShipment(ctx context.Context, id int64) (*domain.Shipment, error)
	InsertShipment(ctx context.Context, s *domain.Shipment) error
	UpdateShipment(ctx context.Context, s *domain.Shipment) error

	// Master data lookups.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetRawMaterial(ctx context.Context, id int64) (*domain.RawMaterial, error)
	GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error)

	// Alert register primitives. InsertAlertIfAbsent is compare-and-insert
	// safe: under concurrent attempts with the same key at most one row
	// survives, and it reports whether this call created it.
	InsertAlertIfAbsent(ctx context.Context, a *domain.Alert) (bool, error)
	DeleteAlert(ctx context.Context, t domain.AlertType, st domain.SubjectType, subjectID int64) (int64, error)
	PurgeAlerts(ctx context.Context, t domain.AlertType, before time.Time) (int64, error)
}
