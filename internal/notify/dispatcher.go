package notify

import (
	"context"
	"log/slog"
	"time"
)

const sendTimeout = 5 * time.Second

// Dispatcher decouples notification delivery from the mutation that
// triggered it. Sends are best effort: a full queue drops the message and
// a failed delivery is only logged, never surfaced to the caller.
type Dispatcher struct {
	notifier Notifier
	log      *slog.Logger
	queue    chan Message
	done     chan struct{}
}

func NewDispatcher(notifier Notifier, log *slog.Logger, buffer int) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 100
	}

	d := &Dispatcher{
		notifier: notifier,
		log:      log.With(slog.String("component", "notify.dispatcher")),
		queue:    make(chan Message, buffer),
		done:     make(chan struct{}),
	}
	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.notifier.Send(ctx, msg)
		cancel()
		if err != nil {
			d.log.Warn("notification delivery failed",
				slog.Int64("user_id", msg.UserID),
				slog.Any("err", err),
			)
		}
	}
}

// Dispatch enqueues a message without blocking the caller.
func (d *Dispatcher) Dispatch(msg Message) {
	select {
	case d.queue <- msg:
	default:
		d.log.Warn("notification queue full, dropping message", slog.Int64("user_id", msg.UserID))
	}
}

// Close stops the worker after draining the queue.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}
