package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/realtime/effects"
	"github.com/mcdev12/bingo/go/internal/realtime/supervisor"
	"github.com/mcdev12/bingo/go/internal/realtime/transport"
)

func (c *Client) open() {
	if !c.supervisor.Open() {
		log.Debug().Str("state", c.supervisor.State().String()).Msg("open ignored")
		return
	}
	c.invalidate()
	c.startAttempt()
}

func (c *Client) close() {
	c.invalidate()
	c.supervisor.Close()
	c.cancelDeferred(deferStartGame, deferWinCheck)
}

func (c *Client) requestReconnect() {
	log.Info().Msg("reconnect requested")
	c.invalidate()
	c.supervisor.RequestReconnect()
	c.startAttempt()
}

// invalidate cancels everything belonging to the current attempt: the
// pending retry, the connect timeout, an in-flight dial and the live handle.
// Callbacks still on their way carry the old generation and are ignored.
func (c *Client) invalidate() {
	c.gen++
	stopTimer(c.retryTimer)
	c.retryTimer = nil
	stopTimer(c.connectTimer)
	c.connectTimer = nil
	stopTimer(c.flushTimer)
	c.flushTimer = nil
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.transport.Close()
	c.handleGen = 0
	c.heartbeat.Stop()
}

func (c *Client) startAttempt() {
	c.gen++
	gen := c.gen

	ctx, cancel := context.WithCancel(context.Background())
	c.dialCancel = cancel
	c.connectTimer = c.clock.AfterFunc(c.config.Reconnect.ConnectTimeout, func() {
		c.enqueue(func() { c.onConnectTimeout(gen) })
	})

	log.Info().
		Str("url", c.config.URL).
		Int("attempt", c.supervisor.Attempts()+1).
		Msg("connecting to game server")

	url := c.config.URL
	go func() {
		h, err := c.transport.Dial(ctx, url)
		if !c.enqueue(func() { c.onDialResult(gen, h, err) }) && h != nil {
			h.Close()
		}
	}()
}

func (c *Client) onDialResult(gen uint64, h *transport.Handle, err error) {
	if gen != c.gen || c.supervisor.State() != supervisor.Connecting {
		if h != nil {
			log.Debug().Uint64("generation", h.Generation()).Msg("discarding stale connection")
			h.Close()
		}
		return
	}

	stopTimer(c.connectTimer)
	c.connectTimer = nil
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}

	if err != nil {
		log.Warn().Err(err).Msg("connection attempt failed")
		c.fail(err)
		return
	}

	c.transport.Attach(h)
	c.handleGen = h.Generation()
	c.supervisor.Connected()
	c.heartbeat.Start()

	id := c.config.Identity
	handshake := protocol.Connect(c.state.PlayerID, c.state.SessionID, c.state.IsAdmin || id.IsAdmin)
	if err := c.writeIntent(handshake); err != nil {
		log.Error().Err(err).Msg("failed to send connect handshake")
		c.fail(fmt.Errorf("handshake: %w", err))
		return
	}

	c.flush()
}

func (c *Client) onConnectTimeout(gen uint64) {
	if gen != c.gen || c.supervisor.State() != supervisor.Connecting {
		return
	}
	log.Warn().
		Dur("timeout", c.config.Reconnect.ConnectTimeout).
		Msg("connection attempt timed out")
	c.fail(supervisor.ErrConnectTimeout)
}

// fail tears the attempt down and lets the supervisor decide what's next
func (c *Client) fail(err error) {
	c.invalidate()
	decision := c.supervisor.Failed(err)
	if !decision.Retry {
		return
	}

	gen := c.gen
	c.retryTimer = c.clock.AfterFunc(decision.Delay, func() {
		c.enqueue(func() { c.onRetry(gen) })
	})
	log.Info().
		Int("attempt", decision.Attempt).
		Dur("delay", decision.Delay).
		Msg("reconnect scheduled")
}

func (c *Client) onRetry(gen uint64) {
	if gen != c.gen {
		return
	}
	c.retryTimer = nil
	if c.supervisor.BackoffElapsed() {
		c.startAttempt()
	}
}

// onFrame runs on the transport's reader goroutine
func (c *Client) onFrame(gen uint64, data []byte) {
	c.enqueue(func() {
		if gen != c.handleGen {
			return
		}
		c.handleFrame(data)
	})
}

// onClose runs on the transport's reader goroutine
func (c *Client) onClose(gen uint64, err error) {
	c.enqueue(func() {
		if gen != c.handleGen {
			return
		}
		if err == nil {
			log.Info().Msg("server closed the connection")
		}
		c.fail(err)
	})
}

func (c *Client) handleFrame(data []byte) {
	result := c.dispatcher.Dispatch(data)
	if result.Parsed {
		env := result.Envelope
		c.listeners.emit(Event{
			Name:    EventMessage,
			State:   c.supervisor.State(),
			Message: &env,
		})
	}
	c.perform(result.Requests)
}

func (c *Client) onHeartbeatTick() {
	if c.supervisor.State() != supervisor.Connected {
		return
	}

	if c.heartbeat.Stale() {
		log.Warn().
			Dur("silence", c.heartbeat.Silence()).
			Msg("connection appears stale, reconnecting")
		c.requestReconnect()
		return
	}

	err := c.writeIntent(protocol.Ping(c.clock.Now()))
	switch {
	case errors.Is(err, transport.ErrThrottled):
		log.Debug().Msg("heartbeat probe skipped, outbound rate limit reached")
	case err != nil:
		log.Warn().Err(err).Msg("failed to send heartbeat probe")
	}
}

func (c *Client) writeIntent(intent protocol.Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encode %s intent: %w", intent.Kind, err)
	}
	return c.transport.Send(data)
}

func (c *Client) send(intent protocol.Intent) Delivery {
	connected := c.supervisor.State() == supervisor.Connected

	if connected && c.queue.Len() == 0 {
		err := c.writeIntent(intent)
		if err == nil {
			return Sent
		}
		c.queue.Enqueue(intent)
		var throttled *transport.ThrottledError
		if errors.As(err, &throttled) {
			c.scheduleFlush(throttled.Wait)
			return Queued
		}
		log.Warn().Err(err).Str("kind", string(intent.Kind)).Msg("send failed, queueing intent")
		c.notifyRequeued()
		return Queued
	}

	c.queue.Enqueue(intent)
	if connected && c.flushTimer == nil {
		c.flush()
		if c.queue.Len() == 0 {
			return Sent
		}
	}
	return Queued
}

// flush writes queued intents until the queue is empty, the rate limit is
// reached or a write fails. A rate-limited flush resumes on a timer so the
// event loop never waits for tokens.
func (c *Client) flush() {
	if c.queue.Len() == 0 {
		return
	}
	sent, err := c.queue.Flush(c.writeIntent)

	var throttled *transport.ThrottledError
	switch {
	case errors.As(err, &throttled):
		log.Debug().
			Int("sent", sent).
			Int("pending", c.queue.Len()).
			Dur("wait", throttled.Wait).
			Msg("flush paused by rate limit")
		c.scheduleFlush(throttled.Wait)
	case err != nil:
		log.Warn().
			Err(err).
			Int("sent", sent).
			Int("pending", c.queue.Len()).
			Msg("flush interrupted")
		c.notifyRequeued()
	default:
		log.Info().Int("sent", sent).Msg("outbound queue flushed")
	}
}

func (c *Client) scheduleFlush(wait time.Duration) {
	if c.flushTimer != nil {
		return
	}
	gen := c.gen
	c.flushTimer = c.clock.AfterFunc(wait, func() {
		c.enqueue(func() {
			if gen != c.gen {
				return
			}
			c.flushTimer = nil
			if c.supervisor.State() == supervisor.Connected {
				c.flush()
			}
		})
	})
}

func (c *Client) notifyRequeued() {
	c.collab.Notifier.Notify(effects.Notify{
		Level:   effects.LevelWarning,
		Message: "Connection problem, your last action will be resent",
	})
}
