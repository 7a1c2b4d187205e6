package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShipmentDirection string

const (
	Inbound  ShipmentDirection = "INBOUND"
	Outbound ShipmentDirection = "OUTBOUND"
)

type ShipmentStatus string

const (
	ShipmentPlanned   ShipmentStatus = "PLANNED"
	ShipmentInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentDelayed   ShipmentStatus = "DELAYED"
	ShipmentCancelled ShipmentStatus = "CANCELLED"
)

func (s ShipmentStatus) Terminal() bool {
	return s == ShipmentDelivered || s == ShipmentCancelled
}

// AllowedShipmentTransition is the transition table for ChangeStatus.
func AllowedShipmentTransition(from, to ShipmentStatus) bool {
	switch from {
	case ShipmentPlanned:
		return to == ShipmentInTransit || to == ShipmentCancelled
	case ShipmentInTransit:
		return to == ShipmentDelivered || to == ShipmentDelayed || to == ShipmentCancelled
	case ShipmentDelayed:
		return to == ShipmentInTransit || to == ShipmentCancelled
	}
	return false
}

type TransportMode string

const (
	TransportAir   TransportMode = "AIR"
	TransportTruck TransportMode = "TRUCK"
	TransportSea   TransportMode = "SEA"
	TransportRail  TransportMode = "RAIL"
)

// LeadTimeDays is the default transit time used when no estimated arrival
// date is supplied at creation.
func (m TransportMode) LeadTimeDays() int {
	switch m {
	case TransportAir:
		return 1
	case TransportTruck:
		return 2
	case TransportSea:
		return 21
	default:
		return 3
	}
}

type Shipment struct {
	ID            int64
	ReferenceCode string
	Direction     ShipmentDirection
	Status        ShipmentStatus
	TransportMode TransportMode
	Quantity      decimal.Decimal

	// ProductID is set for OUTBOUND, RawMaterialID and SupplierID for INBOUND.
	ProductID     *int64
	RawMaterialID *int64
	SupplierID    *int64

	CustomerName   string
	TrackingNumber string

	DepartureDate       time.Time
	EstimateArrivalDate *time.Time
	ActualArrivalDate   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InitialShipmentStatus derives the creation status from the shipment dates:
// a future departure is PLANNED, a departed shipment whose estimate has not
// passed is IN_TRANSIT, anything else is already DELAYED.
func InitialShipmentStatus(departure time.Time, estimate *time.Time, today time.Time) ShipmentStatus {
	if Day(departure).After(Day(today)) {
		return ShipmentPlanned
	}
	if estimate != nil && !Day(*estimate).Before(Day(today)) {
		return ShipmentInTransit
	}
	return ShipmentDelayed
}
