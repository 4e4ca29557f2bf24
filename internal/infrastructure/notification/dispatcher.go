package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"paymenow.backend/internal/domain/entities"
	"paymenow.backend/internal/infrastructure/metrics"
	"paymenow.backend/pkg/logger"
)

const defaultQueueSize = 1024

// Dispatcher delivers notifications asynchronously through a Sink with a
// bounded number of attempts. Notify never blocks the caller.
type Dispatcher struct {
	sink        Sink
	queue       chan entities.Notification
	workers     int
	maxAttempts int
	backoff     time.Duration

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewDispatcher creates a dispatcher. Call Start before Notify.
func NewDispatcher(sink Sink, workers, maxAttempts int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Dispatcher{
		sink:        sink,
		queue:       make(chan entities.Notification, defaultQueueSize),
		workers:     workers,
		maxAttempts: maxAttempts,
		backoff:     200 * time.Millisecond,
	}
}

// Start launches the worker pool
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run(ctx)
		}
	})
}

// Notify enqueues n. A full queue or a stopped dispatcher drops it with a warning.
func (d *Dispatcher) Notify(ctx context.Context, n entities.Notification) {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.RecordNotification("dropped")
		logger.Warn(ctx, "Notifier stopped, dropping notification", zap.String("transaction_id", n.TransactionID.String()))
		return
	}

	select {
	case d.queue <- n:
	default:
		metrics.RecordNotification("dropped")
		logger.Warn(ctx, "Notification queue full, dropping notification",
			zap.String("transaction_id", n.TransactionID.String()),
			zap.String("outcome", string(n.Outcome)),
		)
	}
}

// Stop closes the queue and waits for queued notifications to drain
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(ctx, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n entities.Notification) {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.sink.Deliver(ctx, n); err == nil {
			metrics.RecordNotification("delivered")
			return
		}
		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				attempt = d.maxAttempts
			case <-time.After(d.backoff * time.Duration(attempt)):
			}
		}
	}

	metrics.RecordNotification("failed")
	logger.Error(ctx, "Failed to deliver notification",
		zap.String("transaction_id", n.TransactionID.String()),
		zap.String("account_id", n.AccountID.String()),
		zap.Int("attempts", d.maxAttempts),
		zap.Error(err),
	)
}
