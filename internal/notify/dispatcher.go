package notify

import (
	"context"
	"sync"
	"time"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/pkg/utils"
)

// Dispatcher hands notifications to a Notifier on a background goroutine so
// a slow broker never holds up a request. When the buffer is full the
// notification is dropped and logged.
type Dispatcher struct {
	next    Notifier
	queue   chan models.Notification
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
}

// NewDispatcher starts the delivery goroutine.
func NewDispatcher(next Notifier, buffer int, timeout time.Duration) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &Dispatcher{next: next, queue: make(chan models.Notification, buffer), timeout: timeout}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.next.Notify(ctx, n); err != nil {
			utils.LogWarn(err, "Notification delivery failed", map[string]interface{}{
				"type": string(n.Type), "entity_id": n.EntityID,
			})
		}
		cancel()
	}
}

// Notify enqueues n. It never blocks and never returns an error.
func (d *Dispatcher) Notify(_ context.Context, n models.Notification) error {
	select {
	case d.queue <- n:
	default:
		utils.LogWarn(nil, "Notification queue full, dropping", map[string]interface{}{
			"type": string(n.Type), "entity_id": n.EntityID,
		})
	}
	return nil
}

// Close drains pending notifications and stops the goroutine.
// Notify must not be called after Close.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}
