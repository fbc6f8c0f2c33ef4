package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/realtime/effects"
	"github.com/mcdev12/bingo/go/internal/realtime/supervisor"
)

// perform hands handler requests to the collaborators in order. Delayed
// requests come back through the event loop when their timer fires.
func (c *Client) perform(requests []effects.Request) {
	for _, req := range requests {
		switch r := req.(type) {
		case effects.Notify:
			c.collab.Notifier.Notify(r)
		case effects.PlaySound:
			c.collab.Sound.Play(r.Sound)
		case effects.Render:
			c.collab.Renderer.Render(r)
		case effects.CheckWin:
			c.later(deferWinCheck, r.After, c.collab.WinChecker.CheckWin)
		case effects.StartGame:
			// A new round supersedes whatever the previous one left pending
			c.cancelDeferred(deferStartGame, deferWinCheck)
			c.later(deferStartGame, r.After, c.collab.Game.StartGame)
		case effects.StopGame:
			c.cancelDeferred(deferStartGame, deferWinCheck)
			c.collab.Game.StopGame()
		case effects.Navigate:
			page := r.Page
			c.later(deferNavigate, r.After, func() { c.collab.Navigator.Navigate(page) })
		case effects.Disconnect:
			log.Warn().
				Bool("permanent", r.Permanent).
				Str("reason", r.Reason).
				Msg("disconnect requested by server")
			if r.Permanent {
				c.close()
			} else {
				c.requestReconnect()
			}
		default:
			log.Warn().Str("type", fmt.Sprintf("%T", req)).Msg("unhandled effect request")
		}
	}
}

type deferredKind int

const (
	deferStartGame deferredKind = iota
	deferWinCheck
	deferNavigate
)

type deferredTimers map[uint64]clockwork.Timer

// later runs fn on the event loop once after has passed. Pending calls are
// tracked by kind so cancelDeferred can drop them before they fire.
func (c *Client) later(kind deferredKind, after time.Duration, fn func()) {
	if after <= 0 {
		fn()
		return
	}

	c.deferredID++
	id := c.deferredID
	pending := c.deferred[kind]
	if pending == nil {
		pending = make(deferredTimers)
		c.deferred[kind] = pending
	}
	pending[id] = c.clock.AfterFunc(after, func() {
		c.enqueue(func() {
			if _, ok := c.deferred[kind][id]; !ok {
				return
			}
			delete(c.deferred[kind], id)
			fn()
		})
	})
}

func (c *Client) cancelDeferred(kinds ...deferredKind) {
	for _, kind := range kinds {
		pending := c.deferred[kind]
		if len(pending) > 0 {
			log.Debug().Int("kind", int(kind)).Int("count", len(pending)).Msg("cancelling deferred effects")
		}
		for _, t := range pending {
			t.Stop()
		}
		delete(c.deferred, kind)
	}
}

// onLifecycle receives supervisor transitions. It runs on the event loop
// because the supervisor is only driven from there.
func (c *Client) onLifecycle(ev supervisor.Event) {
	switch ev.Name {
	case supervisor.EventError:
		if errors.Is(ev.Err, supervisor.ErrConnectTimeout) {
			c.collab.Notifier.Notify(effects.Notify{
				Level:   effects.LevelWarning,
				Message: "Connection timed out",
			})
		}
	case supervisor.EventReconnecting:
		msg := fmt.Sprintf("Reconnecting... (%d)", ev.Attempt)
		if limit := c.config.Reconnect.MaxAttempts; limit > 0 {
			msg = fmt.Sprintf("Reconnecting... (%d/%d)", ev.Attempt, limit)
		}
		c.collab.Notifier.Notify(effects.Notify{
			Level:   effects.LevelWarning,
			Message: msg,
		})
	case supervisor.EventUnreachable:
		c.collab.Notifier.Notify(effects.Notify{
			Level:      effects.LevelError,
			Message:    "Unable to reach the game server. Please refresh to try again.",
			Persistent: true,
		})
	}

	c.listeners.emit(Event{
		Name:    ev.Name,
		State:   ev.To,
		Attempt: ev.Attempt,
		Delay:   ev.Delay,
		Err:     ev.Err,
	})
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}
