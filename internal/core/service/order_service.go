package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// OrderService owns the production order state machine. Every transition
// runs inside one transaction, locks the order row plus every inventory row
// it will touch, and runs all checks before the first mutation.
type OrderService struct {
	store  port.Store
	alerts *AlertRegister
	log    *zap.Logger
	now    func() time.Time
}

func NewOrderService(store port.Store, alerts *AlertRegister, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:  store,
		alerts: alerts,
		log:    logger,
		now:    time.Now,
	}
}

type MaterialLineInput struct {
	RawMaterialID int64
	Quantity      decimal.Decimal
}

type ProductOutputInput struct {
	ProductID int64
	Quantity  decimal.Decimal
}

type CreateOrderInput struct {
	StartDate *time.Time
	Materials []MaterialLineInput
	Output    ProductOutputInput
}

// Create validates the input, resolves references, forces the initial status
// to PLANNED and derives the planned completion date when both the start
// date and the product's production duration are known.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*domain.ProductionOrder, error) {
	if len(in.Materials) == 0 {
		return nil, fmt.Errorf("%w: order must include at least one material line", domain.ErrInvalidInput)
	}
	for _, m := range in.Materials {
		if m.RawMaterialID == 0 {
			return nil, fmt.Errorf("%w: material line missing raw material id", domain.ErrInvalidInput)
		}
		if !m.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: material quantity must be > 0", domain.ErrInvalidInput)
		}
	}
	if in.Output.ProductID == 0 {
		return nil, fmt.Errorf("%w: order must include a produced product", domain.ErrInvalidInput)
	}
	if !in.Output.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: produced quantity must be > 0", domain.ErrInvalidInput)
	}

	order := &domain.ProductionOrder{
		Reference:    generateOrderReference(),
		Status:       domain.OrderPlanned,
		CreationDate: domain.Day(s.now()),
		StartDate:    in.StartDate,
		Output:       domain.ProductOutput{ProductID: in.Output.ProductID, Quantity: in.Output.Quantity},
	}
	for _, m := range in.Materials {
		order.Materials = append(order.Materials, domain.MaterialLine{
			RawMaterialID: m.RawMaterialID,
			Quantity:      m.Quantity,
		})
	}

	err := s.store.RunInTx(ctx, func(tx port.Tx) error {
		for _, m := range order.Materials {
			if _, err := tx.GetRawMaterial(ctx, m.RawMaterialID); err != nil {
				return err
			}
		}
		product, err := tx.GetProduct(ctx, order.Output.ProductID)
		if err != nil {
			return err
		}
		if order.StartDate != nil && product.ProductionDurationMinutes > 0 {
			done := domain.PlannedCompletion(*order.StartDate, order.Output.Quantity, product.ProductionDurationMinutes)
			order.PlannedCompletionDate = &done
		}
		return tx.InsertProductionOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("production order created",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference))
	return order, nil
}

// ChangeStatus moves the order to target, applying the inventory side effect
// of the specific transition. Calling with the current status is a no-op.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID int64, target domain.ProductionOrderStatus) (*domain.ProductionOrder, error) {
	var out *domain.ProductionOrder
	err := s.store.RunInTx(ctx, func(tx port.Tx) error {
		order, err := tx.LockProductionOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: order %s is %s", domain.ErrIllegalTransition, order.Reference, order.Status)
		}
		if order.Status == target {
			out = order
			return nil
		}
		if !domain.AllowedOrderTransition(order.Status, target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, order.Status, target)
		}

		switch {
		case order.Status == domain.OrderPlanned && target == domain.OrderInProgress:
			err = s.startProduction(ctx, tx, order)
		case order.Status == domain.OrderPlanned && target == domain.OrderCancelled:
			err = s.cancelOrder(ctx, tx, order, false)
		case order.Status == domain.OrderInProgress && target == domain.OrderCompleted:
			err = s.completeProduction(ctx, tx, order)
		case order.Status == domain.OrderInProgress && target == domain.OrderCancelled:
			err = s.cancelOrder(ctx, tx, order, true)
		}
		if err != nil {
			return err
		}

		if err := tx.UpdateProductionOrder(ctx, order); err != nil {
			return err
		}
		out = order
		return nil
	})
	return out, err
}

// startProduction reserves raw materials: every aggregated line is locked
// and checked for sufficiency before any deduction happens, in ascending
// raw-material id order.
func (s *OrderService) startProduction(ctx context.Context, tx port.Tx, order *domain.ProductionOrder) error {
	if len(order.Materials) == 0 {
		return fmt.Errorf("%w: order %s has no material lines", domain.ErrInvalidInput, order.Reference)
	}
	required := aggregateMaterials(order.Materials)

	for _, line := range required {
		rec, err := tx.LockInventory(ctx, domain.RawMaterialRef(line.RawMaterialID))
		if err != nil {
			return err
		}
		if rec.Quantity.LessThan(line.Quantity) {
			return fmt.Errorf("%w: raw material %d requires %s, available %s",
				domain.ErrInsufficientStock, line.RawMaterialID, line.Quantity, rec.Quantity)
		}
	}
	for _, line := range required {
		if _, err := applyInventoryDelta(ctx, tx, s.alerts, domain.RawMaterialRef(line.RawMaterialID), line.Quantity.Neg()); err != nil {
			return err
		}
	}

	today := domain.Day(s.now())
	order.Status = domain.OrderInProgress
	order.StartDate = &today
	return nil
}

// completeProduction books the produced quantity into finished goods.
func (s *OrderService) completeProduction(ctx context.Context, tx port.Tx, order *domain.ProductionOrder) error {
	if _, err := applyInventoryDelta(ctx, tx, s.alerts, domain.ProductRef(order.Output.ProductID), order.Output.Quantity); err != nil {
		return err
	}
	today := domain.Day(s.now())
	order.Status = domain.OrderCompleted
	order.CompletedDate = &today
	return nil
}

// cancelOrder cancels a PLANNED or IN_PROGRESS order. Only an in-progress
// order has reserved materials to return.
func (s *OrderService) cancelOrder(ctx context.Context, tx port.Tx, order *domain.ProductionOrder, returnMaterials bool) error {
	if returnMaterials {
		for _, line := range aggregateMaterials(order.Materials) {
			if _, err := applyInventoryDelta(ctx, tx, s.alerts, domain.RawMaterialRef(line.RawMaterialID), line.Quantity); err != nil {
				return err
			}
		}
	}
	order.Status = domain.OrderCancelled
	order.PlannedCompletionDate = nil

	msg := fmt.Sprintf("production order %s cancelled", order.Reference)
	return s.alerts.RaiseInTx(ctx, tx, domain.AlertProductionCancelled, domain.SeverityInfo,
		domain.SubjectProductionOrder, order.ID, msg)
}

// Reverse undoes a COMPLETED order: it removes the produced quantity from
// finished goods and returns every material line to stock. Legal only while
// the produced quantity is still fully in stock.
func (s *OrderService) Reverse(ctx context.Context, orderID int64) (*domain.ProductionOrder, error) {
	var out *domain.ProductionOrder
	err := s.store.RunInTx(ctx, func(tx port.Tx) error {
		order, err := tx.LockProductionOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderCompleted {
			return fmt.Errorf("%w: only COMPLETED orders can be reversed, order %s is %s",
				domain.ErrIllegalTransition, order.Reference, order.Status)
		}
		if order.Output.ProductID == 0 || !order.Output.Quantity.IsPositive() {
			return fmt.Errorf("%w: order %s has no valid produced output", domain.ErrInvalidInput, order.Reference)
		}

		// Lock finished goods first, then raw materials in ascending id
		// order; all sufficiency checks run before the first mutation.
		finished, err := tx.LockInventory(ctx, domain.ProductRef(order.Output.ProductID))
		if err != nil {
			return err
		}
		if finished.Quantity.LessThan(order.Output.Quantity) {
			return fmt.Errorf("%w: cannot reverse %s, finished goods %s below produced %s",
				domain.ErrInsufficientStock, order.Reference, finished.Quantity, order.Output.Quantity)
		}
		returns := aggregateMaterials(order.Materials)
		for _, line := range returns {
			if _, err := tx.LockInventory(ctx, domain.RawMaterialRef(line.RawMaterialID)); err != nil {
				return err
			}
		}

		if _, err := applyInventoryDelta(ctx, tx, s.alerts, domain.ProductRef(order.Output.ProductID), order.Output.Quantity.Neg()); err != nil {
			return err
		}
		for _, line := range returns {
			if _, err := applyInventoryDelta(ctx, tx, s.alerts, domain.RawMaterialRef(line.RawMaterialID), line.Quantity); err != nil {
				return err
			}
		}

		order.Status = domain.OrderReversed
		msg := fmt.Sprintf("production order %s reversed", order.Reference)
		if err := s.alerts.RaiseInTx(ctx, tx, domain.AlertProductionReversed, domain.SeverityInfo,
			domain.SubjectProductionOrder, order.ID, msg); err != nil {
			return err
		}

		if err := tx.UpdateProductionOrder(ctx, order); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("production order reversed", zap.Int64("order_id", out.ID), zap.String("reference", out.Reference))
	return out, nil
}

// aggregateMaterials collapses duplicate lines per raw material and returns
// the totals sorted by ascending raw-material id, which doubles as the
// deterministic lock order for multi-row transitions.
func aggregateMaterials(lines []domain.MaterialLine) []domain.MaterialLine {
	totals := make(map[int64]decimal.Decimal, len(lines))
	for _, l := range lines {
		totals[l.RawMaterialID] = totals[l.RawMaterialID].Add(l.Quantity)
	}
	out := make([]domain.MaterialLine, 0, len(totals))
	for id, qty := range totals {
		out = append(out, domain.MaterialLine{RawMaterialID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RawMaterialID < out[j].RawMaterialID })
	return out
}

func generateOrderReference() string {
	return "PO-" + strings.ToUpper(uuid.NewString()[:8])
}
