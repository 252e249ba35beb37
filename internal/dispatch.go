package internal

import (
	"context"
	"log/slog"
)

// Broadcaster delivers an event to every connected subscriber.
type Broadcaster interface {
	Broadcast(event string, payload any) error
}

type notification struct {
	event   string
	payload any
}

// Dispatcher decouples producers from delivery: Notify only enqueues, Run
// drains the queue in FIFO order on its own goroutine.
type Dispatcher struct {
	queue  chan notification
	out    Broadcaster
	logger *slog.Logger
}

func NewDispatcher(out Broadcaster, size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{
		queue:  make(chan notification, size),
		out:    out,
		logger: resolveLogger(logger),
	}
}

// Notify never blocks. On a full queue the oldest pending notification is
// evicted so the latest state is always delivered.
func (d *Dispatcher) Notify(event string, payload any) {
	n := notification{event: event, payload: payload}
	for {
		select {
		case d.queue <- n:
			return
		default:
		}
		select {
		case old := <-d.queue:
			d.logger.Warn("dropping stale notification for full queue", "event", old.event)
		default:
		}
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			if err := d.out.Broadcast(n.event, n.payload); err != nil {
				d.logger.Warn("broadcast failed", "event", n.event, "error", err)
			}
		}
	}
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
