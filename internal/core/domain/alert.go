package domain

import "time"

type AlertType string

const (
	AlertLowStock            AlertType = "LOW_STOCK"
	AlertRawMaterialShortage AlertType = "RAW_MATERIAL_SHORTAGE"
	AlertShipmentDelayed     AlertType = "SHIPMENT_DELAYED"
	AlertShipmentCancelled   AlertType = "SHIPMENT_CANCELLED"
	AlertProductionCancelled AlertType = "PRODUCTION_CANCELLED"
	AlertProductionReversed  AlertType = "PRODUCTION_REVERSED"
)

// Actionable alerts track a live condition and are resolved when it clears.
// Everything else is a notice that is only purged by retention.
func (t AlertType) Actionable() bool {
	return t == AlertLowStock || t == AlertRawMaterialShortage
}

// NoticeAlertTypes are subject to time-based purging.
var NoticeAlertTypes = []AlertType{
	AlertShipmentDelayed,
	AlertShipmentCancelled,
	AlertProductionCancelled,
	AlertProductionReversed,
}

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

type SubjectType string

const (
	SubjectProductInventory     SubjectType = "PRODUCT_INVENTORY"
	SubjectRawMaterialInventory SubjectType = "RAW_MATERIAL_INVENTORY"
	SubjectShipment             SubjectType = "SHIPMENT"
	SubjectProductionOrder      SubjectType = "PRODUCTION_ORDER"
)

// Alert is keyed by (Type, SubjectType, SubjectID): at most one live alert
// exists per key, enforced by the store's compare-and-insert.
type Alert struct {
	ID          int64
	Type        AlertType
	Severity    AlertSeverity
	SubjectType SubjectType
	SubjectID   int64
	Message     string
	CreatedAt   time.Time
}
