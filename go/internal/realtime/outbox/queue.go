package outbox

import (
	"fmt"
	"time"

	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
)

// SendFunc delivers a single intent. A non-nil error stops the flush.
type SendFunc func(protocol.Intent) error

// Stats counts what the queue has seen since it was created
type Stats struct {
	Enqueued  int `json:"enqueued"`
	Delivered int `json:"delivered"`
	Requeued  int `json:"requeued"`
	Pending   int `json:"pending"`
}

// Queue is a FIFO of intents waiting for a live connection.
//
// Delivery is at-least-once: an intent whose send failed is kept and sent
// again on the next flush, so the server may see it twice. Queue is not safe
// for concurrent use; the client's event loop owns it.
type Queue struct {
	pending []protocol.Intent
	stats   Stats
	metrics MetricsCollector
}

// NewQueue creates an empty queue. A nil collector disables metrics.
func NewQueue(metrics MetricsCollector) *Queue {
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	return &Queue{metrics: metrics}
}

// Enqueue appends an intent to the back of the queue
func (q *Queue) Enqueue(intent protocol.Intent) {
	q.pending = append(q.pending, intent)
	q.stats.Enqueued++
	q.metrics.RecordEnqueued(string(intent.Kind), len(q.pending))
}

// Len returns the number of intents waiting
func (q *Queue) Len() int {
	return len(q.pending)
}

// Pending returns a copy of the waiting intents in delivery order
func (q *Queue) Pending() []protocol.Intent {
	return append([]protocol.Intent(nil), q.pending...)
}

// Stats returns the delivery counters
func (q *Queue) Stats() Stats {
	s := q.stats
	s.Pending = len(q.pending)
	return s
}

// Flush sends waiting intents in order. If send fails, the failing intent and
// everything behind it stay at the front of the queue in their original
// order, ahead of anything enqueued while the flush ran.
func (q *Queue) Flush(send SendFunc) (int, error) {
	if len(q.pending) == 0 {
		return 0, nil
	}

	start := time.Now()
	batch := q.pending
	q.pending = nil

	for i, intent := range batch {
		if err := send(intent); err != nil {
			remaining := len(batch) - i
			q.pending = append(batch[i:len(batch):len(batch)], q.pending...)
			q.stats.Requeued += remaining
			q.metrics.RecordFlush(i, remaining, time.Since(start))
			return i, fmt.Errorf("flush %s intent %s: %w", intent.Kind, intent.ID, err)
		}
		q.stats.Delivered++
	}

	q.metrics.RecordFlush(len(batch), 0, time.Since(start))
	return len(batch), nil
}
