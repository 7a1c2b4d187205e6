package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OwnerType string

const (
	OwnerProduct     OwnerType = "PRODUCT"
	OwnerRawMaterial OwnerType = "RAW_MATERIAL"
)

// OwnerRef identifies the item an inventory row tracks. There is exactly
// one inventory row per owner.
type OwnerRef struct {
	Type OwnerType
	ID   int64
}

func ProductRef(id int64) OwnerRef     { return OwnerRef{Type: OwnerProduct, ID: id} }
func RawMaterialRef(id int64) OwnerRef { return OwnerRef{Type: OwnerRawMaterial, ID: id} }

type InventoryRecord struct {
	ID               int64
	Owner            OwnerRef
	Quantity         decimal.Decimal
	ReorderThreshold decimal.Decimal
	LastUpdated      time.Time
}

// ApplyDelta adds delta (positive or negative) to the quantity. The caller
// must hold the row lock for the enclosing transaction; the check and the
// write are only atomic under that lock.
func (r *InventoryRecord) ApplyDelta(delta decimal.Decimal) error {
	next := r.Quantity.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: %s %d has %s, delta %s",
			ErrInsufficientStock, r.Owner.Type, r.Owner.ID, r.Quantity, delta)
	}
	r.Quantity = next
	r.LastUpdated = time.Now()
	return nil
}

func (r *InventoryRecord) BelowThreshold() bool {
	return r.Quantity.Cmp(r.ReorderThreshold) <= 0
}
