package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Handle is one websocket connection. A handle is never reused: a reconnect
// produces a new handle with a higher generation.
type Handle struct {
	gen     uint64
	conn    *websocket.Conn
	config  Config
	limiter *rate.Limiter

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
	// local is set when Close was called by the owner
	local atomic.Bool

	ConnectedAt time.Time
}

func newHandle(gen uint64, conn *websocket.Conn, config Config) *Handle {
	var limiter *rate.Limiter
	if config.MessagesPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(config.MessagesPerSecond, burst)
	}

	return &Handle{
		gen:         gen,
		conn:        conn,
		config:      config,
		limiter:     limiter,
		ConnectedAt: time.Now(),
	}
}

// Generation identifies the handle
func (h *Handle) Generation() uint64 {
	return h.gen
}

// Close sends a normal close frame and releases the connection. The read
// side will not report the close back to the owner.
func (h *Handle) Close() {
	h.local.Store(true)
	h.shutdown(func() {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := h.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Debug().Err(err).Uint64("generation", h.gen).Msg("failed to send close frame")
		}
	})
}

func (h *Handle) shutdown(beforeClose func()) bool {
	first := false
	h.closeOnce.Do(func() {
		first = true
		h.closed.Store(true)
		if beforeClose != nil {
			beforeClose()
		}
		h.conn.Close()
	})
	return first
}

func (h *Handle) write(data []byte) error {
	if h.closed.Load() {
		return ErrOffline
	}

	// Never wait for a token here: the caller is an event loop
	if h.limiter != nil {
		r := h.limiter.Reserve()
		if !r.OK() {
			return ErrOffline
		}
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			return &ThrottledError{Wait: delay}
		}
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if h.closed.Load() {
		return ErrClosed
	}
	if h.config.WriteTimeout > 0 {
		h.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
	}
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readPump delivers inbound frames until the connection ends
func (h *Handle) readPump(callbacks Callbacks, done func()) {
	if h.config.MaxMessageSize > 0 {
		h.conn.SetReadLimit(h.config.MaxMessageSize)
	}

	for {
		messageType, data, err := h.conn.ReadMessage()
		if err != nil {
			h.finish(callbacks, done, err)
			return
		}
		if messageType != websocket.TextMessage {
			log.Debug().
				Uint64("generation", h.gen).
				Int("message_type", messageType).
				Msg("ignoring non-text frame")
			continue
		}
		callbacks.OnFrame(h.gen, data)
	}
}

func (h *Handle) finish(callbacks Callbacks, done func(), err error) {
	h.shutdown(nil)
	done()

	if h.local.Load() {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info().Uint64("generation", h.gen).Msg("server closed the connection")
		err = nil
	} else {
		log.Warn().Err(err).Uint64("generation", h.gen).Msg("websocket connection lost")
		err = fmt.Errorf("read frame: %w", err)
	}
	callbacks.OnClose(h.gen, err)
}
