package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// ShipmentService owns the shipment state machine. Outbound stock is
// reserved at creation; inbound stock enters the ledger only on delivery.
type ShipmentService struct {
	store  port.Store
	seq    port.ReferenceSequence
	alerts *AlertRegister
	log    *zap.Logger
	now    func() time.Time
}

func NewShipmentService(store port.Store, seq port.ReferenceSequence, alerts *AlertRegister, logger *zap.Logger) *ShipmentService {
	return &ShipmentService{
		store:  store,
		seq:    seq,
		alerts: alerts,
		log:    logger,
		now:    time.Now,
	}
}

type CreateShipmentInput struct {
	Direction     domain.ShipmentDirection
	TransportMode domain.TransportMode
	Quantity      decimal.Decimal

	ProductID     *int64
	RawMaterialID *int64
	SupplierID    *int64

	CustomerName   string
	TrackingNumber string

	DepartureDate       time.Time
	EstimateArrivalDate *time.Time
}

// Create validates the input, derives the estimated arrival and the initial
// status from the dates, and for OUTBOUND reserves the product stock
// immediately: the quantity is committed to the shipment before it leaves.
func (s *ShipmentService) Create(ctx context.Context, in CreateShipmentInput) (*domain.Shipment, error) {
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be > 0", domain.ErrInvalidInput)
	}
	switch in.Direction {
	case domain.Outbound:
		if in.ProductID == nil {
			return nil, fmt.Errorf("%w: outbound shipment requires a product id", domain.ErrInvalidInput)
		}
	case domain.Inbound:
		if in.RawMaterialID == nil {
			return nil, fmt.Errorf("%w: inbound shipment requires a raw material id", domain.ErrInvalidInput)
		}
		if in.SupplierID == nil {
			return nil, fmt.Errorf("%w: inbound shipment requires a supplier id", domain.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: unknown shipment direction %q", domain.ErrInvalidInput, in.Direction)
	}
	if in.TransportMode == "" {
		return nil, fmt.Errorf("%w: transport mode is required", domain.ErrInvalidInput)
	}
	if in.DepartureDate.IsZero() {
		return nil, fmt.Errorf("%w: departure date is required", domain.ErrInvalidInput)
	}

	now := s.now()
	estimate := in.EstimateArrivalDate
	if estimate == nil {
		e := domain.Day(in.DepartureDate).AddDate(0, 0, in.TransportMode.LeadTimeDays())
		estimate = &e
	}

	ref, err := s.generateReference(ctx, now)
	if err != nil {
		return nil, err
	}

	shipment := &domain.Shipment{
		ReferenceCode:       ref,
		Direction:           in.Direction,
		Status:              domain.InitialShipmentStatus(in.DepartureDate, estimate, now),
		TransportMode:       in.TransportMode,
		Quantity:            in.Quantity,
		ProductID:           in.ProductID,
		RawMaterialID:       in.RawMaterialID,
		SupplierID:          in.SupplierID,
		CustomerName:        in.CustomerName,
		TrackingNumber:      in.TrackingNumber,
		DepartureDate:       domain.Day(in.DepartureDate),
		EstimateArrivalDate: estimate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.store.RunInTx(ctx, func(tx port.Tx) error {
		if shipment.Direction == domain.Outbound {
			if _, err := tx.GetProduct(ctx, *shipment.ProductID); err != nil {
				return err
			}
			// Reservation: deduct at creation, not at departure.
			if _, err := applyInventoryDelta(ctx, tx, s.alerts, domain.ProductRef(*shipment.ProductID), shipment.Quantity.Neg()); err != nil {
				return err
			}
		} else {
			if _, err := tx.GetRawMaterial(ctx, *shipment.RawMaterialID); err != nil {
				return err
			}
			if _, err := tx.GetSupplier(ctx, *shipment.SupplierID); err != nil {
				return err
			}
		}
		return tx.InsertShipment(ctx, shipment)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("shipment created",
		zap.Int64("shipment_id", shipment.ID),
		zap.String("reference", shipment.ReferenceCode),
		zap.String("direction", string(shipment.Direction)),
		zap.String("status", string(shipment.Status)))
	return shipment, nil
}

// ChangeStatus moves the shipment to target with the same no-op, terminal
// and allowed-pair discipline as the production order machine.
func (s *ShipmentService) ChangeStatus(ctx context.Context, shipmentID int64, target domain.ShipmentStatus) (*domain.Shipment, error) {
	var out *domain.Shipment
	err := s.store.RunInTx(ctx, func(tx port.Tx) error {
		shipment, err := tx.LockShipment(ctx, shipmentID)
		if err != nil {
			return err
		}
		if shipment.Status.Terminal() {
			return fmt.Errorf("%w: shipment %s is %s", domain.ErrIllegalTransition, shipment.ReferenceCode, shipment.Status)
		}
		if shipment.Status == target {
			out = shipment
			return nil
		}
		if !domain.AllowedShipmentTransition(shipment.Status, target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, shipment.Status, target)
		}

		today := domain.Day(s.now())
		current := shipment.Status

		switch {
		case current == domain.ShipmentPlanned && target == domain.ShipmentInTransit:
			if shipment.DepartureDate.IsZero() {
				shipment.DepartureDate = today
			}
			shipment.Status = domain.ShipmentInTransit

		case target == domain.ShipmentCancelled:
			if err := s.cancelShipment(ctx, tx, shipment); err != nil {
				return err
			}

		case current == domain.ShipmentInTransit && target == domain.ShipmentDelivered:
			if shipment.Direction == domain.Inbound {
				// Inbound stock enters the ledger only now.
				if _, err := applyInventoryDelta(ctx, tx, s.alerts, domain.RawMaterialRef(*shipment.RawMaterialID), shipment.Quantity); err != nil {
					return err
				}
			}
			if shipment.ActualArrivalDate == nil {
				shipment.ActualArrivalDate = &today
			}
			shipment.Status = domain.ShipmentDelivered

		case current == domain.ShipmentInTransit && target == domain.ShipmentDelayed:
			msg := fmt.Sprintf("shipment %s delayed beyond estimated arrival", shipment.ReferenceCode)
			if err := s.alerts.RaiseInTx(ctx, tx, domain.AlertShipmentDelayed, domain.SeverityWarning,
				domain.SubjectShipment, shipment.ID, msg); err != nil {
				return err
			}
			shipment.Status = domain.ShipmentDelayed

		case current == domain.ShipmentDelayed && target == domain.ShipmentInTransit:
			if err := s.alerts.ResolveInTx(ctx, tx, domain.AlertShipmentDelayed, domain.SubjectShipment, shipment.ID); err != nil {
				return err
			}
			if shipment.DepartureDate.IsZero() {
				shipment.DepartureDate = today
			}
			shipment.Status = domain.ShipmentInTransit
		}

		shipment.UpdatedAt = s.now()
		if err := tx.UpdateShipment(ctx, shipment); err != nil {
			return err
		}
		out = shipment
		return nil
	})
	return out, err
}

// cancelShipment returns the reserved quantity for outbound shipments;
// inbound shipments reserved nothing. Reachable from PLANNED, IN_TRANSIT
// and DELAYED.
func (s *ShipmentService) cancelShipment(ctx context.Context, tx port.Tx, shipment *domain.Shipment) error {
	if shipment.Direction == domain.Outbound {
		if shipment.ProductID == nil {
			return fmt.Errorf("%w: outbound shipment %s missing product reference", domain.ErrInvalidInput, shipment.ReferenceCode)
		}
		if _, err := applyInventoryDelta(ctx, tx, s.alerts, domain.ProductRef(*shipment.ProductID), shipment.Quantity); err != nil {
			return err
		}
	}
	shipment.Status = domain.ShipmentCancelled

	msg := fmt.Sprintf("shipment %s cancelled", shipment.ReferenceCode)
	return s.alerts.RaiseInTx(ctx, tx, domain.AlertShipmentCancelled, domain.SeverityInfo,
		domain.SubjectShipment, shipment.ID, msg)
}

func (s *ShipmentService) generateReference(ctx context.Context, now time.Time) (string, error) {
	n, err := s.seq.Next(ctx, now)
	if err != nil {
		return "", fmt.Errorf("shipment reference sequence: %w", err)
	}
	return fmt.Sprintf("SHIP-%s-%03d", now.Format("20060102"), n), nil
}
