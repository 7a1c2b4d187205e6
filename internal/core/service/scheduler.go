package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// alertRetention is how long notice alerts are kept before the sweep
// purges them.
const alertRetention = 3 * 24 * time.Hour

// Scheduler periodically advances orders and shipments whose trigger dates
// have passed and purges stale notice alerts. It drives the same service
// entry points as the API surface, so every sweep item runs with full
// locking and failure semantics.
type Scheduler struct {
	store     port.Store
	orders    *OrderService
	shipments *ShipmentService
	alerts    *AlertRegister
	log       *zap.Logger
	interval  time.Duration
	now       func() time.Time
}

func NewScheduler(store port.Store, orders *OrderService, shipments *ShipmentService, alerts *AlertRegister, logger *zap.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:     store,
		orders:    orders,
		shipments: shipments,
		alerts:    alerts,
		log:       logger,
		interval:  interval,
		now:       time.Now,
	}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs the four advances and the alert purge. A single item's failure
// is logged and never aborts the rest of the sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	today := domain.Day(s.now())

	s.startDueOrders(ctx, today)
	s.completeDueOrders(ctx, today)
	s.departDueShipments(ctx, today)
	s.delayOverdueShipments(ctx, today)

	cutoff := s.now().Add(-alertRetention)
	purged, err := s.alerts.Purge(ctx, cutoff)
	if err != nil {
		s.log.Error("alert purge failed", zap.Error(err))
	} else if purged > 0 {
		s.log.Info("purged stale alerts", zap.Int64("count", purged))
	}
}

// startDueOrders advances PLANNED orders whose start date is today. An
// order that cannot start (insufficient materials) is cancelled instead so
// one bad order never blocks the sweep.
func (s *Scheduler) startDueOrders(ctx context.Context, today time.Time) {
	orders, err := s.store.ListOrdersDueToStart(ctx, today)
	if err != nil {
		s.log.Error("list orders due to start failed", zap.Error(err))
		return
	}
	for _, o := range orders {
		if _, err := s.orders.ChangeStatus(ctx, o.ID, domain.OrderInProgress); err != nil {
			s.log.Warn("auto start failed, cancelling order",
				zap.Int64("order_id", o.ID),
				zap.String("reference", o.Reference),
				zap.Error(err))
			if _, cErr := s.orders.ChangeStatus(ctx, o.ID, domain.OrderCancelled); cErr != nil {
				s.log.Error("forced cancel failed", zap.Int64("order_id", o.ID), zap.Error(cErr))
			}
		}
	}
}

func (s *Scheduler) completeDueOrders(ctx context.Context, today time.Time) {
	orders, err := s.store.ListOrdersDueToComplete(ctx, today)
	if err != nil {
		s.log.Error("list orders due to complete failed", zap.Error(err))
		return
	}
	for _, o := range orders {
		if _, err := s.orders.ChangeStatus(ctx, o.ID, domain.OrderCompleted); err != nil {
			s.log.Error("auto complete failed", zap.Int64("order_id", o.ID), zap.Error(err))
		}
	}
}

func (s *Scheduler) departDueShipments(ctx context.Context, today time.Time) {
	shipments, err := s.store.ListShipmentsDueToDepart(ctx, today)
	if err != nil {
		s.log.Error("list shipments due to depart failed", zap.Error(err))
		return
	}
	for _, sh := range shipments {
		if _, err := s.shipments.ChangeStatus(ctx, sh.ID, domain.ShipmentInTransit); err != nil {
			s.log.Error("auto depart failed", zap.Int64("shipment_id", sh.ID), zap.Error(err))
		}
	}
}

func (s *Scheduler) delayOverdueShipments(ctx context.Context, today time.Time) {
	shipments, err := s.store.ListShipmentsOverdue(ctx, today)
	if err != nil {
		s.log.Error("list overdue shipments failed", zap.Error(err))
		return
	}
	for _, sh := range shipments {
		if _, err := s.shipments.ChangeStatus(ctx, sh.ID, domain.ShipmentDelayed); err != nil {
			s.log.Error("auto delay failed", zap.Int64("shipment_id", sh.ID), zap.Error(err))
		}
	}
}
