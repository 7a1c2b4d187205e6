package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// applyInventoryDelta is the single write path into the inventory ledger:
// lock the row, check-and-apply the delta, persist, then reconcile the
// stock-threshold alert for that row. Callers that touch several rows must
// have locked and checked all of them before applying the first delta.
func applyInventoryDelta(ctx context.Context, tx port.Tx, alerts *AlertRegister, owner domain.OwnerRef, delta decimal.Decimal) (*domain.InventoryRecord, error) {
	rec, err := tx.LockInventory(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := rec.ApplyDelta(delta); err != nil {
		return nil, err
	}
	if err := tx.SaveInventory(ctx, rec); err != nil {
		return nil, fmt.Errorf("save inventory %s %d: %w", owner.Type, owner.ID, err)
	}
	if err := reconcileStockAlert(ctx, tx, alerts, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// reconcileStockAlert keeps the actionable threshold alert in sync with the
// row it guards: raise while at or below the reorder threshold, resolve once
// the quantity climbs back above it.
func reconcileStockAlert(ctx context.Context, tx port.Tx, alerts *AlertRegister, rec *domain.InventoryRecord) error {
	var (
		alertType domain.AlertType
		subject   domain.SubjectType
	)
	switch rec.Owner.Type {
	case domain.OwnerProduct:
		alertType, subject = domain.AlertLowStock, domain.SubjectProductInventory
	case domain.OwnerRawMaterial:
		alertType, subject = domain.AlertRawMaterialShortage, domain.SubjectRawMaterialInventory
	default:
		return fmt.Errorf("%w: unknown inventory owner type %q", domain.ErrInvalidInput, rec.Owner.Type)
	}

	if rec.BelowThreshold() {
		msg := fmt.Sprintf("%s %d stock %s at or below reorder threshold %s",
			rec.Owner.Type, rec.Owner.ID, rec.Quantity, rec.ReorderThreshold)
		return alerts.RaiseInTx(ctx, tx, alertType, domain.SeverityWarning, subject, rec.ID, msg)
	}
	return alerts.ResolveInTx(ctx, tx, alertType, subject, rec.ID)
}
