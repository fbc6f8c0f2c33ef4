package outbox

import (
	"time"

	"github.com/rs/zerolog/log"
)

// MetricsCollector defines the interface for collecting outbound queue metrics
type MetricsCollector interface {
	RecordEnqueued(kind string, depth int)
	RecordFlush(delivered, requeued int, duration time.Duration)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordEnqueued(kind string, depth int)                        {}
func (n *NoOpMetricsCollector) RecordFlush(delivered, requeued int, duration time.Duration) {}

// LogMetricsCollector reports queue activity as debug log lines
type LogMetricsCollector struct{}

func (l *LogMetricsCollector) RecordEnqueued(kind string, depth int) {
	log.Debug().
		Str("kind", kind).
		Int("depth", depth).
		Msg("intent queued")
}

func (l *LogMetricsCollector) RecordFlush(delivered, requeued int, duration time.Duration) {
	event := log.Debug()
	if requeued > 0 {
		event = log.Warn()
	}
	event.
		Int("delivered", delivered).
		Int("requeued", requeued).
		Dur("duration", duration).
		Msg("outbound queue flushed")
}
