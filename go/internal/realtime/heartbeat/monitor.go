package heartbeat

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Config holds heartbeat timing
type Config struct {
	// Interval between probes while connected
	Interval time.Duration
	// StaleAfter is how long the connection may stay silent before it is
	// considered dead
	StaleAfter time.Duration
}

// DefaultConfig returns the default heartbeat timing
func DefaultConfig() Config {
	return Config{
		Interval:   30 * time.Second,
		StaleAfter: 60 * time.Second,
	}
}

// Monitor tracks the last time any inbound traffic was seen and ticks while
// a connection is up. It only decides; the owner sends the probe and forces
// the reconnect. Monitor is driven from a single goroutine.
type Monitor struct {
	clock    clockwork.Clock
	config   Config
	lastSeen time.Time
	ticker   clockwork.Ticker
}

// NewMonitor creates a stopped monitor
func NewMonitor(clock clockwork.Clock, config Config) *Monitor {
	return &Monitor{
		clock:  clock,
		config: config,
	}
}

// Start seeds the last-seen timestamp and starts ticking. Calling Start on a
// running monitor restarts the ticker.
func (m *Monitor) Start() {
	m.Stop()
	m.lastSeen = m.clock.Now()
	m.ticker = m.clock.NewTicker(m.config.Interval)
}

// Stop halts the ticker
func (m *Monitor) Stop() {
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
	}
}

// Running reports whether the ticker is active
func (m *Monitor) Running() bool {
	return m.ticker != nil
}

// C returns the tick channel, or nil when stopped so a select on it blocks
func (m *Monitor) C() <-chan time.Time {
	if m.ticker == nil {
		return nil
	}
	return m.ticker.Chan()
}

// Touch records inbound traffic
func (m *Monitor) Touch() {
	m.lastSeen = m.clock.Now()
}

// LastSeen returns the time of the last recorded traffic
func (m *Monitor) LastSeen() time.Time {
	return m.lastSeen
}

// Silence returns how long the connection has been quiet
func (m *Monitor) Silence() time.Duration {
	return m.clock.Since(m.lastSeen)
}

// Stale reports whether the silence exceeds the threshold
func (m *Monitor) Stale() bool {
	return m.Silence() > m.config.StaleAfter
}
