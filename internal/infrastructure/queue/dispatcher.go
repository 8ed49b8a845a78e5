package queue

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/api/metrics"
	"github.com/deskforce/identity-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
)

// Dispatcher is an async ports.Notifier: Send enqueues and returns
// immediately, a fixed set of workers performs the actual delivery.
// Messages shard by recipient so emails to one address keep their order.
type Dispatcher struct {
	workers []chan ports.EmailMessage
	sender  ports.Notifier
	log     zerolog.Logger
}

// NewDispatcher wraps sender with numWorkers sharded delivery workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.EmailMessage, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.EmailMessage, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Send enqueues the message for async delivery. It only fails when the
// responsible worker's buffer is full; the flows log that and move on.
func (d *Dispatcher) Send(_ context.Context, msg ports.EmailMessage) error {
	i := d.shardIndex(msg.Recipient)
	select {
	case d.workers[i] <- msg:
		metrics.EmailQueueDepth.WithLabelValues(fmt.Sprint(i)).Set(float64(len(d.workers[i])))
		return nil
	default:
		return fmt.Errorf("email queue full (worker %d)", i)
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.EmailMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.EmailQueueDepth.WithLabelValues(fmt.Sprint(id)).Set(float64(len(ch)))
			if err := d.sender.Send(ctx, msg); err != nil {
				metrics.EmailsSentTotal.WithLabelValues("error").Inc()
				d.log.Error().Err(err).
					Str("recipient", msg.Recipient).
					Int("worker_id", id).
					Msg("email delivery failed")
				continue
			}
			metrics.EmailsSentTotal.WithLabelValues("ok").Inc()
		}
	}
}
