package audit

import (
	"context"
	"log/slog"
	"time"
)

// AsyncPublisher buffers events in a channel and forwards them to the inner
// sink from a background goroutine, keeping broker latency out of the
// request path. A full buffer drops the event rather than blocking a sync.
type AsyncPublisher struct {
	inner  Publisher
	inbox  chan Event
	logger *slog.Logger
}

func NewAsyncPublisher(inner Publisher, buffer int, logger *slog.Logger) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &AsyncPublisher{
		inner:  inner,
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

func (p *AsyncPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, event dropped",
				"action", event.Action, "npi", event.NPI)
		}
		return nil
	}
}

// Run drains the inbox until the context is cancelled, then flushes whatever
// is still buffered.
func (p *AsyncPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return ctx.Err()
		case event := <-p.inbox:
			p.forward(ctx, event)
		}
	}
}

func (p *AsyncPublisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-p.inbox:
			p.forward(ctx, event)
		default:
			return
		}
	}
}

func (p *AsyncPublisher) forward(ctx context.Context, event Event) {
	if err := p.inner.Emit(ctx, event); err != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action, "error", err)
	}
}
