package dispatch

import (
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/bingo/gamestate"
	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/realtime/effects"
)

// Toucher records that inbound traffic was seen
type Toucher interface {
	Touch()
}

type handlerFunc func(env protocol.Envelope) ([]effects.Request, error)

// Result describes what a dispatch did
type Result struct {
	Envelope protocol.Envelope
	// Parsed is false when the record was not valid JSON with a kind
	Parsed bool
	// Handled is false for unknown kinds and payloads that failed to decode
	Handled  bool
	Requests []effects.Request
}

// Dispatcher routes inbound records to handlers. It is the only writer of
// the game state and must be driven from a single goroutine.
type Dispatcher struct {
	state    *gamestate.State
	touch    Toucher
	handlers map[protocol.Kind]handlerFunc
}

// New creates a dispatcher that writes to state and reports traffic to touch
func New(state *gamestate.State, touch Toucher) *Dispatcher {
	d := &Dispatcher{
		state: state,
		touch: touch,
	}
	d.handlers = map[protocol.Kind]handlerFunc{
		protocol.KindConnected:            d.handleConnected,
		protocol.KindRegistered:           d.handleRegistered,
		protocol.KindGameState:            d.handleGameState,
		protocol.KindPlayerJoined:         d.handlePlayerJoined,
		protocol.KindPlayerLeft:           d.handlePlayerLeft,
		protocol.KindPlayerReconnected:    d.handlePlayerReconnected,
		protocol.KindNumberCalled:         d.handleNumberCalled,
		protocol.KindPlayerMarked:         d.handlePlayerMarked,
		protocol.KindPlayerWon:            d.handlePlayerWon,
		protocol.KindGameStarted:          d.handleGameStarted,
		protocol.KindGameStopped:          d.handleGameStopped,
		protocol.KindGameReset:            d.handleGameReset,
		protocol.KindAnnouncement:         d.handleAnnouncement,
		protocol.KindAdminAuthenticated:   d.handleAdminAuthenticated,
		protocol.KindAdminStats:           d.handleAdminStats,
		protocol.KindAdminCommandResponse: d.handleAdminCommandResponse,
		protocol.KindKicked:               d.handleKicked,
		protocol.KindError:                d.handleError,
		protocol.KindPong:                 d.handlePong,
	}
	return d
}

// Handles reports whether kind has a handler
func (d *Dispatcher) Handles(kind protocol.Kind) bool {
	_, ok := d.handlers[kind]
	return ok
}

// Dispatch processes one raw inbound record. Malformed records are logged
// and dropped without touching the heartbeat; any parsed record counts as
// traffic, whatever its kind.
func (d *Dispatcher) Dispatch(raw []byte) Result {
	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		log.Warn().
			Err(err).
			Bytes("raw", truncate(raw, 256)).
			Msg("discarding malformed inbound record")
		return Result{}
	}

	if d.touch != nil {
		d.touch.Touch()
	}
	result := Result{Envelope: env, Parsed: true}

	handler, ok := d.handlers[env.Kind]
	if !ok {
		log.Warn().Str("kind", string(env.Kind)).Msg("ignoring unknown message kind")
		return result
	}

	requests, err := handler(env)
	if err != nil {
		log.Error().
			Err(err).
			Str("kind", string(env.Kind)).
			Msg("failed to handle inbound record")
		return result
	}

	result.Handled = true
	result.Requests = requests
	return result
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
