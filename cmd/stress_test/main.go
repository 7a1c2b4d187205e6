// Concurrency smoke driver: fires more outbound shipments at one product
// than its inventory can satisfy and verifies the reservation path never
// oversells.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ynprojects/logistics/internal/adapter/storage"
	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/core/service"
	"github.com/ynprojects/logistics/internal/port"
)

const (
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	store := storage.NewMemoryStore()
	seq := storage.NewMemorySequence()
	alerts := service.NewAlertRegister(store)
	shipments := service.NewShipmentService(store, seq, alerts, logger)

	product := &domain.Product{Name: "widget", SKU: "WID-1", Unit: "pcs"}
	if err := store.CreateProduct(ctx, product); err != nil {
		log.Fatalf("create product: %v", err)
	}

	// Stock the shelf.
	err = store.RunInTx(ctx, func(tx port.Tx) error {
		rec, err := tx.LockInventory(ctx, domain.ProductRef(product.ID))
		if err != nil {
			return err
		}
		if err := rec.ApplyDelta(decimal.NewFromInt(initialStock)); err != nil {
			return err
		}
		return tx.SaveInventory(ctx, rec)
	})
	if err != nil {
		log.Fatalf("seed stock: %v", err)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := shipments.Create(ctx, service.CreateShipmentInput{
				Direction:     domain.Outbound,
				TransportMode: domain.TransportTruck,
				Quantity:      decimal.NewFromInt(1),
				ProductID:     &product.ID,
				CustomerName:  fmt.Sprintf("customer-%d", n),
				DepartureDate: time.Now(),
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	rec, err := store.GetInventoryByOwner(ctx, domain.ProductRef(product.ID))
	if err != nil {
		log.Fatalf("read inventory: %v", err)
	}

	fmt.Printf("requests:  %d\n", totalRequests)
	fmt.Printf("succeeded: %d\n", successCount.Load())
	fmt.Printf("rejected:  %d\n", failCount.Load())
	fmt.Printf("remaining: %s\n", rec.Quantity)
	fmt.Printf("elapsed:   %s\n", elapsed)

	if successCount.Load() != initialStock || !rec.Quantity.IsZero() {
		log.Fatalf("oversell detected: %d successes, %s remaining", successCount.Load(), rec.Quantity)
	}
	fmt.Println("no oversell: reservation held under contention")
}
