package supervisor

import (
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

var (
	// ErrConnectTimeout is reported when a dial does not complete in time
	ErrConnectTimeout = errors.New("connection attempt timed out")
	// ErrUnreachable is reported once the attempt ceiling is reached
	ErrUnreachable = errors.New("server unreachable: reconnect attempts exhausted")
)

// Config holds the reconnection policy
type Config struct {
	// BaseDelay is the wait before the first retry
	BaseDelay time.Duration
	// Multiplier grows the delay after every failed attempt
	Multiplier float64
	// MaxDelay caps the delay; zero leaves it uncapped
	MaxDelay time.Duration
	// MaxAttempts is the attempt ceiling; zero or less retries forever
	MaxAttempts int
	// ConnectTimeout bounds a single connection attempt
	ConnectTimeout time.Duration
}

// DefaultConfig returns the default reconnection policy
func DefaultConfig() Config {
	return Config{
		BaseDelay:      3 * time.Second,
		Multiplier:     1.5,
		MaxAttempts:    10,
		ConnectTimeout: 10 * time.Second,
	}
}

// Decision tells the caller whether and when to try again after a failure
type Decision struct {
	Retry   bool
	Delay   time.Duration
	Attempt int
}

// Supervisor owns the connection state machine and the backoff policy. It
// never touches the network or timers itself: the caller reports what
// happened and acts on the returned decisions. Supervisor is not safe for
// concurrent use.
type Supervisor struct {
	config  Config
	emit    func(Event)
	backoff *backoff.ExponentialBackOff

	state     ConnectionState
	attempts  int
	closed    bool
	exhausted bool
}

// New creates a disconnected supervisor. emit receives every lifecycle event
// synchronously and may be nil.
func New(config Config, emit func(Event)) *Supervisor {
	if emit == nil {
		emit = func(Event) {}
	}

	maxDelay := config.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     config.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          config.Multiplier,
		MaxInterval:         maxDelay,
	}
	b.Reset()

	return &Supervisor{
		config:  config,
		emit:    emit,
		backoff: b,
		state:   Disconnected,
	}
}

// State returns the current connection state
func (s *Supervisor) State() ConnectionState {
	return s.state
}

// Attempts returns the number of failed attempts since the last connect
func (s *Supervisor) Attempts() int {
	return s.attempts
}

// Exhausted reports whether the attempt ceiling has been reached
func (s *Supervisor) Exhausted() bool {
	return s.exhausted
}

// Closed reports whether the connection was closed on purpose
func (s *Supervisor) Closed() bool {
	return s.closed
}

// Config returns the policy the supervisor was built with
func (s *Supervisor) Config() Config {
	return s.config
}

// Open starts a connection attempt. It also revives a supervisor that was
// closed or gave up. It returns false when an attempt is already running or
// the connection is up.
func (s *Supervisor) Open() bool {
	if s.state != Disconnected {
		return false
	}
	if s.closed || s.exhausted {
		s.resetAttempts()
	}
	s.closed = false
	s.exhausted = false
	s.transition(Connecting, Event{Name: EventConnecting})
	return true
}

// BackoffElapsed starts the scheduled retry. It returns false when the retry
// no longer applies because the connection was closed or reopened meanwhile.
func (s *Supervisor) BackoffElapsed() bool {
	if s.closed || s.exhausted || s.state != Disconnected {
		return false
	}
	s.transition(Connecting, Event{Name: EventConnecting, Attempt: s.attempts})
	return true
}

// Connected records a completed handshake and resets the backoff
func (s *Supervisor) Connected() {
	if s.state != Connecting {
		log.Warn().Str("state", s.state.String()).Msg("connected reported outside of an attempt")
	}
	s.resetAttempts()
	s.transition(Connected, Event{Name: EventConnect})
}

// Failed records the loss of the connection or a failed attempt and decides
// whether to retry. A nil err means the server closed the connection cleanly.
func (s *Supervisor) Failed(err error) Decision {
	if s.state == Disconnected {
		return Decision{}
	}

	from := s.state
	s.state = Disconnected
	if err != nil {
		s.emit(Event{Name: EventError, From: from, To: Disconnected, Err: err})
	}
	s.emit(Event{Name: EventDisconnect, From: from, To: Disconnected, Err: err})

	if s.closed {
		return Decision{}
	}

	if s.config.MaxAttempts > 0 && s.attempts >= s.config.MaxAttempts {
		s.exhausted = true
		log.Error().
			Int("attempts", s.attempts).
			Msg("reconnect attempts exhausted")
		s.emit(Event{Name: EventUnreachable, From: Disconnected, To: Disconnected, Attempt: s.attempts, Err: ErrUnreachable})
		return Decision{}
	}

	delay := s.backoff.NextBackOff()
	s.attempts++
	s.emit(Event{
		Name:    EventReconnecting,
		From:    Disconnected,
		To:      Disconnected,
		Attempt: s.attempts,
		Delay:   delay,
		Err:     err,
	})
	return Decision{Retry: true, Delay: delay, Attempt: s.attempts}
}

// RequestReconnect drops the current connection, if any, and restarts at
// attempt zero with no delay. It revives a closed or exhausted supervisor.
func (s *Supervisor) RequestReconnect() {
	s.closed = false
	s.exhausted = false
	s.resetAttempts()

	if s.state != Disconnected {
		from := s.state
		s.state = Disconnected
		s.emit(Event{Name: EventDisconnect, From: from, To: Disconnected})
	}
	s.transition(Connecting, Event{Name: EventConnecting})
}

// Close stops the connection for good; no retry follows until Open or
// RequestReconnect is called.
func (s *Supervisor) Close() {
	s.closed = true
	if s.state == Disconnected {
		return
	}
	s.state = Closing
	s.transition(Disconnected, Event{Name: EventDisconnect})
}

func (s *Supervisor) resetAttempts() {
	s.attempts = 0
	s.backoff.Reset()
}

func (s *Supervisor) transition(to ConnectionState, ev Event) {
	ev.From = s.state
	ev.To = to
	s.state = to

	log.Debug().
		Str("from", ev.From.String()).
		Str("to", ev.To.String()).
		Str("event", string(ev.Name)).
		Msg("connection state changed")

	s.emit(ev)
}
