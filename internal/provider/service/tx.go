package service

import (
	"context"
	"sync"
	"time"

	dErrors "provdir/pkg/domain-errors"
)

// defaultTxTimeout bounds one chunked write transaction.
const defaultTxTimeout = 5 * time.Second

// memoryTx serializes chunk writes against an in-memory store with a coarse
// lock. The postgres adapter in cmd/server is the production implementation.
type memoryTx struct {
	mu      sync.Mutex
	store   Store
	timeout time.Duration
}

// NewMemoryTx wraps an in-memory store in a StoreTx for tests and single-node
// development.
func NewMemoryTx(store Store) StoreTx {
	return &memoryTx{store: store}
}

func (t *memoryTx) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(t.store)
}
