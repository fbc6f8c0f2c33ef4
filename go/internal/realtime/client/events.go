package client

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/realtime/supervisor"
)

// EventName identifies a client event
type EventName = supervisor.EventName

// Events listeners can subscribe to
const (
	EventConnecting   = supervisor.EventConnecting
	EventConnect      = supervisor.EventConnect
	EventDisconnect   = supervisor.EventDisconnect
	EventError        = supervisor.EventError
	EventReconnecting = supervisor.EventReconnecting
	EventUnreachable  = supervisor.EventUnreachable
	EventMessage      EventName = "message"
)

// Event is delivered to listeners
type Event struct {
	Name    EventName
	State   supervisor.ConnectionState
	Attempt int
	Delay   time.Duration
	Err     error
	// Message is set for EventMessage
	Message *protocol.Envelope
}

// Listener receives client events
type Listener func(Event)

// ListenerID identifies a registered listener for Off
type ListenerID uint64

type registry struct {
	mu        sync.Mutex
	next      ListenerID
	listeners map[EventName]map[ListenerID]Listener
}

func newRegistry() *registry {
	return &registry{listeners: make(map[EventName]map[ListenerID]Listener)}
}

func (r *registry) add(name EventName, fn Listener) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	if r.listeners[name] == nil {
		r.listeners[name] = make(map[ListenerID]Listener)
	}
	r.listeners[name][r.next] = fn
	return r.next
}

func (r *registry) remove(name EventName, id ListenerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.listeners[name], id)
	if len(r.listeners[name]) == 0 {
		delete(r.listeners, name)
	}
}

func (r *registry) snapshot(name EventName) []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Listener, 0, len(r.listeners[name]))
	for _, fn := range r.listeners[name] {
		out = append(out, fn)
	}
	return out
}

func (r *registry) emit(ev Event) {
	for _, fn := range r.snapshot(ev.Name) {
		invoke(fn, ev)
	}
}

func invoke(fn Listener, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Interface("panic", p).
				Str("event", string(ev.Name)).
				Msg("listener panicked")
		}
	}()
	fn(ev)
}

// On registers fn for events named name. Listeners run on the client's event
// loop: they must return quickly and must not wait on client methods such
// as Snapshot, which are served by the same loop.
func (c *Client) On(name EventName, fn Listener) ListenerID {
	return c.listeners.add(name, fn)
}

// Off removes a listener registered with On
func (c *Client) Off(name EventName, id ListenerID) {
	c.listeners.remove(name, id)
}
