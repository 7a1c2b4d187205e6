package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ynprojects/logistics/internal/core/domain"
	"github.com/ynprojects/logistics/internal/port"
)

// AlertRegister owns the alert side-effects of the two state machines.
// Actionable alerts (stock thresholds) are raised when the condition appears
// and resolved when it clears; notices (delay, cancellation, reversal) are
// raised once and removed only by retention.
type AlertRegister struct {
	store port.Store
}

func NewAlertRegister(store port.Store) *AlertRegister {
	return &AlertRegister{store: store}
}

// RaiseInTx creates the alert unless a live one already exists for the same
// (type, subject type, subject id) key.
func (r *AlertRegister) RaiseInTx(ctx context.Context, tx port.Tx, t domain.AlertType, sev domain.AlertSeverity, st domain.SubjectType, subjectID int64, message string) error {
	a := &domain.Alert{
		Type:        t,
		Severity:    sev,
		SubjectType: st,
		SubjectID:   subjectID,
		Message:     message,
		CreatedAt:   time.Now(),
	}
	if _, err := tx.InsertAlertIfAbsent(ctx, a); err != nil {
		return fmt.Errorf("raise alert %s: %w", t, err)
	}
	return nil
}

// ResolveInTx removes the live alert for the key if present. Resolving an
// absent alert is a no-op.
func (r *AlertRegister) ResolveInTx(ctx context.Context, tx port.Tx, t domain.AlertType, st domain.SubjectType, subjectID int64) error {
	if _, err := tx.DeleteAlert(ctx, t, st, subjectID); err != nil {
		return fmt.Errorf("resolve alert %s: %w", t, err)
	}
	return nil
}

// Purge removes notice alerts created before the cutoff. Actionable alert
// types are never purged here; they are resolved when the condition clears.
func (r *AlertRegister) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := r.store.RunInTx(ctx, func(tx port.Tx) error {
		for _, t := range domain.NoticeAlertTypes {
			n, err := tx.PurgeAlerts(ctx, t, cutoff)
			if err != nil {
				return fmt.Errorf("purge %s: %w", t, err)
			}
			total += n
		}
		return nil
	})
	return total, err
}
