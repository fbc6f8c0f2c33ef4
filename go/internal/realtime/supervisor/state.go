package supervisor

import (
	"time"
)

// ConnectionState represents where the connection is in its lifecycle
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Closing
)

// String returns the string representation of a ConnectionState
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// MarshalText lets states appear by name in JSON and log output
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventName identifies a lifecycle event
type EventName string

const (
	EventConnecting   EventName = "connecting"
	EventConnect      EventName = "connect"
	EventDisconnect   EventName = "disconnect"
	EventError        EventName = "error"
	EventReconnecting EventName = "reconnecting"
	EventUnreachable  EventName = "unreachable"
)

// Event describes a lifecycle transition
type Event struct {
	Name    EventName
	From    ConnectionState
	To      ConnectionState
	Attempt int
	Delay   time.Duration
	Err     error
}
