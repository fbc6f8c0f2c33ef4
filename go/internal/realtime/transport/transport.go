package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	// ErrOffline is returned by Send when no live connection exists
	ErrOffline = errors.New("transport offline")
	// ErrClosed is reported for writes on a handle that has been closed
	ErrClosed = errors.New("transport handle closed")
	// ErrThrottled matches a ThrottledError
	ErrThrottled = errors.New("transport throttled")
)

// ThrottledError is returned by Send when the outbound rate limit has no
// token left. Nothing was written; the frame may be retried after Wait.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("transport throttled: retry in %v", e.Wait)
}

// Is lets errors.Is match ErrThrottled
func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

// Config holds configuration for the websocket transport
type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
	// MessagesPerSecond limits outbound frames; zero disables the limit
	MessagesPerSecond rate.Limit
	Burst             int
	Header            http.Header
}

// DefaultConfig returns default websocket configuration
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxMessageSize:    64 * 1024,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		MessagesPerSecond: 20,
		Burst:             20,
	}
}

// Callbacks receive traffic from the read side of a handle. Both run on the
// handle's reader goroutine and carry the generation of the handle that
// produced them so the owner can ignore stale handles.
type Callbacks struct {
	OnFrame func(gen uint64, data []byte)
	// OnClose is called once when the peer or the network ends the
	// connection. err is nil for a normal close. It is not called after a
	// local Close.
	OnClose func(gen uint64, err error)
}

// Transport owns at most one live websocket handle at a time
type Transport struct {
	config    Config
	dialer    *websocket.Dialer
	callbacks Callbacks

	nextGen atomic.Uint64

	mu      sync.Mutex
	current *Handle
}

// New creates a transport with no live handle
func New(config Config, callbacks Callbacks) *Transport {
	if callbacks.OnFrame == nil {
		callbacks.OnFrame = func(uint64, []byte) {}
	}
	if callbacks.OnClose == nil {
		callbacks.OnClose = func(uint64, error) {}
	}

	return &Transport{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
		callbacks: callbacks,
	}
}

// Dial performs the websocket handshake and returns an unattached handle.
// Dial has no effect on the current handle and may run on any goroutine.
func (t *Transport) Dial(ctx context.Context, url string) (*Handle, error) {
	conn, resp, err := t.dialer.DialContext(ctx, url, t.config.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return newHandle(t.nextGen.Add(1), conn, t.config), nil
}

// Attach makes h the live handle, closing any previous one, and starts
// reading from it.
func (t *Transport) Attach(h *Handle) {
	t.mu.Lock()
	previous := t.current
	t.current = h
	t.mu.Unlock()

	if previous != nil && previous != h {
		previous.Close()
	}

	go h.readPump(t.callbacks, func() { t.detach(h) })

	log.Info().
		Uint64("generation", h.gen).
		Str("remote", h.conn.RemoteAddr().String()).
		Msg("websocket connection established")
}

// Open closes the current handle, dials url and attaches the result
func (t *Transport) Open(ctx context.Context, url string) (*Handle, error) {
	t.Close()

	h, err := t.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	t.Attach(h)
	return h, nil
}

// Send writes one text frame on the live handle. The frame has been handed
// to the network when Send returns nil. Send never waits for the rate
// limiter; it returns a *ThrottledError instead.
func (t *Transport) Send(data []byte) error {
	t.mu.Lock()
	h := t.current
	t.mu.Unlock()

	if h == nil {
		return ErrOffline
	}
	return h.write(data)
}

// Close closes the live handle, if any. It is safe to call repeatedly.
func (t *Transport) Close() {
	t.mu.Lock()
	h := t.current
	t.current = nil
	t.mu.Unlock()

	if h != nil {
		h.Close()
	}
}

// Connected reports whether a live handle exists
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil && !t.current.closed.Load()
}

// Generation returns the generation of the live handle, or zero
func (t *Transport) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return 0
	}
	return t.current.gen
}

// detach clears h as the live handle if it still is
func (t *Transport) detach(h *Handle) {
	t.mu.Lock()
	if t.current == h {
		t.current = nil
	}
	t.mu.Unlock()
}
