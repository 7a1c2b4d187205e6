package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// getTestDB connects to the MySQL named by MYSQL_TEST_DSN, which must point
// at a database with schema.sql loaded. Unset, the integration tests skip.
func getTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set, skipping MySQL integration test")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("MySQL not reachable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, table := range []string{
		"alerts", "production_order_materials", "production_orders",
		"shipments", "inventory", "products", "raw_materials", "suppliers",
	} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean table %s: %v", table, err)
		}
	}
	return db
}

func TestMySQLStore_CreateProductCreatesInventoryRow(t *testing.T) {
	store := NewMySQLStore(getTestDB(t))
	ctx := context.Background()

	p := &domain.Product{Name: "frame", SKU: "frame-sku", Unit: "pcs", ProductionDurationMinutes: 60}
	if err := store.CreateProduct(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	rec, err := store.GetInventoryByOwner(ctx, domain.ProductRef(p.ID))
	if err != nil {
		t.Fatalf("expected an inventory row for the new product: %v", err)
	}
	if !rec.Quantity.IsZero() {
		t.Errorf("new inventory row must start at zero, got %s", rec.Quantity)
	}
}

func TestMySQLStore_RunInTxRollsBackOnError(t *testing.T) {
	store := NewMySQLStore(getTestDB(t))
	ctx := context.Background()

	rm := &domain.RawMaterial{Name: "steel", Unit: "kg"}
	if err := store.CreateRawMaterial(ctx, rm); err != nil {
		t.Fatalf("create raw material: %v", err)
	}

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(tx port.Tx) error {
		rec, err := tx.LockInventory(ctx, domain.RawMaterialRef(rm.ID))
		if err != nil {
			return err
		}
		rec.Quantity = decimal.NewFromInt(99)
		rec.LastUpdated = time.Now()
		if err := tx.SaveInventory(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the injected error, got %v", err)
	}

	rec, err := store.GetInventoryByOwner(ctx, domain.RawMaterialRef(rm.ID))
	if err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	if !rec.Quantity.IsZero() {
		t.Errorf("rolled back transaction must leave quantity zero, got %s", rec.Quantity)
	}
}

func TestMySQLStore_OrderRoundTrip(t *testing.T) {
	store := NewMySQLStore(getTestDB(t))
	ctx := context.Background()

	rm := &domain.RawMaterial{Name: "steel", Unit: "kg"}
	if err := store.CreateRawMaterial(ctx, rm); err != nil {
		t.Fatalf("create raw material: %v", err)
	}
	p := &domain.Product{Name: "frame", SKU: "frame-sku", Unit: "pcs"}
	if err := store.CreateProduct(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	order := &domain.ProductionOrder{
		Reference:    "PO-ABCD1234",
		Status:       domain.OrderPlanned,
		CreationDate: start,
		StartDate:    &start,
		Materials: []domain.MaterialLine{
			{RawMaterialID: rm.ID, Quantity: decimal.NewFromInt(5)},
		},
		Output: domain.ProductOutput{ProductID: p.ID, Quantity: decimal.NewFromInt(2)},
	}
	err := store.RunInTx(ctx, func(tx port.Tx) error {
		return tx.InsertProductionOrder(ctx, order)
	})
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}

	got, err := store.GetProductionOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("read order: %v", err)
	}
	if got.Reference != order.Reference || got.Status != domain.OrderPlanned {
		t.Errorf("unexpected order %q %s", got.Reference, got.Status)
	}
	if len(got.Materials) != 1 || got.Materials[0].RawMaterialID != rm.ID || !got.Materials[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("unexpected material lines %+v", got.Materials)
	}

	due, err := store.ListOrdersDueToStart(ctx, start)
	if err != nil {
		t.Fatalf("list due orders: %v", err)
	}
	if len(due) != 1 || due[0].ID != order.ID {
		t.Errorf("expected the order in the due list, got %+v", due)
	}
}

func TestMySQLStore_InsertAlertIfAbsent(t *testing.T) {
	store := NewMySQLStore(getTestDB(t))
	ctx := context.Background()

	a := domain.Alert{
		Type:        domain.AlertLowStock,
		Severity:    domain.SeverityWarning,
		SubjectType: domain.SubjectProductInventory,
		SubjectID:   11,
		Message:     "first",
		CreatedAt:   time.Now(),
	}
	err := store.RunInTx(ctx, func(tx port.Tx) error {
		inserted, err := tx.InsertAlertIfAbsent(ctx, &a)
		if err != nil {
			return err
		}
		if !inserted {
			t.Error("expected the first insert to win")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	dup := a
	dup.ID = 0
	dup.Message = "second"
	err = store.RunInTx(ctx, func(tx port.Tx) error {
		inserted, err := tx.InsertAlertIfAbsent(ctx, &dup)
		if err != nil {
			return err
		}
		if inserted {
			t.Error("expected the duplicate to be rejected")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("duplicate insert failed: %v", err)
	}
	if dup.ID != a.ID || dup.Message != "first" {
		t.Errorf("expected the surviving alert back, got id=%d message=%q", dup.ID, dup.Message)
	}
}
