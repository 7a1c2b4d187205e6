package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductionOrderStatus string

const (
	OrderPlanned    ProductionOrderStatus = "PLANNED"
	OrderInProgress ProductionOrderStatus = "IN_PROGRESS"
	OrderCompleted  ProductionOrderStatus = "COMPLETED"
	OrderCancelled  ProductionOrderStatus = "CANCELLED"
	OrderReversed   ProductionOrderStatus = "REVERSED"
)

// Terminal reports whether no ordinary transition may leave the status.
// COMPLETED is terminal for ChangeStatus; only Reverse may leave it.
func (s ProductionOrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled || s == OrderReversed
}

// AllowedOrderTransition is the transition table for ChangeStatus.
func AllowedOrderTransition(from, to ProductionOrderStatus) bool {
	switch from {
	case OrderPlanned:
		return to == OrderInProgress || to == OrderCancelled
	case OrderInProgress:
		return to == OrderCompleted || to == OrderCancelled
	}
	return false
}

// MaterialLine is immutable once the order leaves PLANNED.
type MaterialLine struct {
	RawMaterialID int64
	Quantity      decimal.Decimal
}

type ProductOutput struct {
	ProductID int64
	Quantity  decimal.Decimal
}

type ProductionOrder struct {
	ID                    int64
	Reference             string
	Status                ProductionOrderStatus
	CreationDate          time.Time
	StartDate             *time.Time
	PlannedCompletionDate *time.Time
	CompletedDate         *time.Time
	Materials             []MaterialLine
	Output                ProductOutput
}

// PlannedCompletion derives the completion date from the output quantity
// and the product's per-unit production duration, rounding partial days up.
func PlannedCompletion(start time.Time, quantity decimal.Decimal, durationMinutes int64) time.Time {
	total := quantity.Mul(decimal.NewFromInt(durationMinutes))
	days := total.Div(decimal.NewFromInt(24 * 60)).Ceil().IntPart()
	return Day(start).AddDate(0, 0, int(days))
}

// Day truncates a timestamp to its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
