package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Bulkhead caps how many calls of an expensive operation run at once.
// Password hashing goes through one so a burst of logins queues instead of
// saturating every CPU.
type Bulkhead struct {
	sem *semaphore.Weighted
}

// NewBulkhead creates a Bulkhead admitting at most limit concurrent calls.
// A limit below one returns nil, which admits everything.
func NewBulkhead(limit int) *Bulkhead {
	if limit < 1 {
		return nil
	}
	return &Bulkhead{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot.
// Blocks if all slots are busy. Returns ctx.Err() if the context
// is cancelled while waiting for a slot.
func (b *Bulkhead) Run(ctx context.Context, fn func() error) error {
	if b == nil {
		return fn()
	}
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer b.sem.Release(1)
	return fn()
}
