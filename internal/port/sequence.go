package port

import (
	"context"
	"time"
)

// ReferenceSequence hands out the per-day shipment reference numbers. The
// counter restarts at 1 every calendar day and must stay atomic across
// concurrent callers and service instances.
type ReferenceSequence interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}
