package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/bingo/gamestate"
	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/realtime/dispatch"
	"github.com/mcdev12/bingo/go/internal/realtime/effects"
	"github.com/mcdev12/bingo/go/internal/realtime/heartbeat"
	"github.com/mcdev12/bingo/go/internal/realtime/outbox"
	"github.com/mcdev12/bingo/go/internal/realtime/supervisor"
	"github.com/mcdev12/bingo/go/internal/realtime/transport"
)

var (
	// ErrStopped is returned by calls made after Run has returned
	ErrStopped = errors.New("client stopped")
	// ErrAlreadyRunning is returned by a second concurrent Run
	ErrAlreadyRunning = errors.New("client already running")
)

// Identity is who the client connects as
type Identity struct {
	PlayerID  string
	SessionID string
	IsAdmin   bool
}

// Config holds everything the client needs to reach the game server
type Config struct {
	URL       string
	Identity  Identity
	Transport transport.Config
	Reconnect supervisor.Config
	Heartbeat heartbeat.Config
	InboxSize int
}

// DefaultConfig returns a configuration for url with default timings
func DefaultConfig(url string) Config {
	return Config{
		URL:       url,
		Transport: transport.DefaultConfig(),
		Reconnect: supervisor.DefaultConfig(),
		Heartbeat: heartbeat.DefaultConfig(),
		InboxSize: 256,
	}
}

// Delivery reports what Send did with an intent
type Delivery int

const (
	// Sent means the intent was written to the live connection
	Sent Delivery = iota
	// Queued means the intent waits in the outbound queue
	Queued
)

func (d Delivery) String() string {
	if d == Sent {
		return "sent"
	}
	return "queued"
}

// Client keeps a local game projection in sync with the server over an
// unreliable websocket. All of its state is owned by a single event loop
// started with Run; every public method hands work to that loop.
type Client struct {
	config    Config
	clock     clockwork.Clock
	collab    effects.Collaborators
	listeners *registry

	inbox   chan func()
	done    chan struct{}
	running atomic.Bool

	// Owned by the event loop
	state      *gamestate.State
	dispatcher *dispatch.Dispatcher
	supervisor *supervisor.Supervisor
	queue      *outbox.Queue
	heartbeat  *heartbeat.Monitor
	transport  *transport.Transport

	// gen tags connection attempts; anything carrying an older gen is stale
	gen          uint64
	handleGen    uint64
	dialCancel   context.CancelFunc
	connectTimer clockwork.Timer
	retryTimer   clockwork.Timer
	// flushTimer resumes a flush paused by the outbound rate limit
	flushTimer   clockwork.Timer

	deferred   map[deferredKind]deferredTimers
	deferredID uint64
}

// New creates a client. A nil clock uses the real clock; missing
// collaborators are replaced with log-only ones.
func New(cfg Config, collab effects.Collaborators, clock clockwork.Clock) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	if cfg.Identity.SessionID == "" {
		cfg.Identity.SessionID = uuid.New().String()
	}

	c := &Client{
		config:    cfg,
		clock:     clock,
		collab:    collab.WithFallbacks(),
		listeners: newRegistry(),
		inbox:     make(chan func(), cfg.InboxSize),
		done:      make(chan struct{}),
		deferred:  make(map[deferredKind]deferredTimers),
	}

	c.state = gamestate.New(cfg.Identity.PlayerID, cfg.Identity.SessionID, cfg.Identity.IsAdmin)
	c.heartbeat = heartbeat.NewMonitor(clock, cfg.Heartbeat)
	c.dispatcher = dispatch.New(c.state, c.heartbeat)
	c.supervisor = supervisor.New(cfg.Reconnect, c.onLifecycle)
	c.queue = outbox.NewQueue(&outbox.LogMetricsCollector{})
	c.transport = transport.New(cfg.Transport, transport.Callbacks{
		OnFrame: c.onFrame,
		OnClose: c.onClose,
	})
	return c
}

// Run processes events until ctx is cancelled. It does not connect by
// itself; call Open.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	log.Info().
		Str("url", c.config.URL).
		Str("player_id", c.state.PlayerID).
		Str("session_id", c.state.SessionID).
		Msg("realtime client started")

	for {
		select {
		case <-ctx.Done():
			c.invalidate()
			c.supervisor.Close()
			c.cancelDeferred(deferStartGame, deferWinCheck, deferNavigate)
			log.Info().Msg("realtime client shutting down")
			return nil
		case fn := <-c.inbox:
			fn()
		case <-c.heartbeat.C():
			c.onHeartbeatTick()
		}
	}
}

// Done is closed once Run has returned
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// post hands fn to the event loop without waiting for it to run
func (c *Client) post(ctx context.Context, fn func()) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}

	select {
	case c.inbox <- fn:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the event loop and waits for it to finish
func (c *Client) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := c.post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue is post for internal goroutines that have no context of their own
func (c *Client) enqueue(fn func()) bool {
	return c.post(context.Background(), fn) == nil
}

// Open starts connecting. It also resumes a client that was closed, kicked
// or gave up after too many attempts.
func (c *Client) Open(ctx context.Context) error {
	return c.call(ctx, c.open)
}

// Close drops the connection with no automatic reconnect
func (c *Client) Close(ctx context.Context) error {
	return c.call(ctx, c.close)
}

// RequestReconnect drops the current connection and reconnects immediately
// with the backoff reset
func (c *Client) RequestReconnect(ctx context.Context) error {
	return c.call(ctx, c.requestReconnect)
}

// Send delivers intent now if the connection is up and nothing is waiting,
// and queues it otherwise. Queued intents go out in order once connected.
func (c *Client) Send(ctx context.Context, intent protocol.Intent) (Delivery, error) {
	if intent.Kind == "" {
		return Queued, protocol.ErrMissingKind
	}
	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}
	if _, err := json.Marshal(intent); err != nil {
		return Queued, fmt.Errorf("encode %s intent: %w", intent.Kind, err)
	}

	var delivery Delivery
	err := c.call(ctx, func() {
		delivery = c.send(intent)
	})
	return delivery, err
}

// Snapshot returns a copy of the current game state
func (c *Client) Snapshot(ctx context.Context) (gamestate.View, error) {
	var view gamestate.View
	err := c.call(ctx, func() {
		view = c.state.Snapshot()
	})
	return view, err
}

// Status describes the connection
type Status struct {
	URL        string                     `json:"url"`
	State      supervisor.ConnectionState `json:"state"`
	Attempts   int                        `json:"attempts"`
	Exhausted  bool                       `json:"exhausted"`
	Closed     bool                       `json:"closed"`
	Generation uint64                     `json:"generation"`
	LastSeen   *time.Time                 `json:"last_seen,omitempty"`
	Queue      outbox.Stats               `json:"queue"`
}

// Status returns the current connection status
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.call(ctx, func() {
		st = Status{
			URL:        c.config.URL,
			State:      c.supervisor.State(),
			Attempts:   c.supervisor.Attempts(),
			Exhausted:  c.supervisor.Exhausted(),
			Closed:     c.supervisor.Closed(),
			Generation: c.handleGen,
			Queue:      c.queue.Stats(),
		}
		if c.heartbeat.Running() {
			seen := c.heartbeat.LastSeen()
			st.LastSeen = &seen
		}
	})
	return st, err
}
