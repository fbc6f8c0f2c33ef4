package effects

import (
	"time"
)

// Request is a side effect asked for by a message handler. Handlers only
// describe effects; the client performs them after the state change is done.
type Request interface {
	isRequest()
}

// Level is a notification severity
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notify asks for a user-visible notification. Persistent notifications stay
// until the user acts on them.
type Notify struct {
	Level      Level  `json:"level"`
	Message    string `json:"message"`
	Persistent bool   `json:"persistent,omitempty"`
}

// Sound names
const (
	SoundCall = "call"
	SoundWin  = "win"
)

// PlaySound asks for a sound cue
type PlaySound struct {
	Sound string `json:"sound"`
}

// Render reasons
const (
	RenderGameState  = "game_state"
	RenderRoster     = "roster"
	RenderBoardMark  = "board_mark"
	RenderAdminStats = "admin_stats"
)

// BoardMark is a cell toggle on another player's board
type BoardMark struct {
	PlayerID string `json:"player_id"`
	Number   int    `json:"number"`
	Marked   bool   `json:"marked"`
}

// Render asks the display layer to redraw
type Render struct {
	Reason string     `json:"reason"`
	Mark   *BoardMark `json:"mark,omitempty"`
}

// CheckWin asks the win checker to evaluate the local board after a delay
type CheckWin struct {
	After time.Duration `json:"after"`
}

// StartGame asks the game controller to begin a fresh round after a delay
type StartGame struct {
	After time.Duration `json:"after"`
}

// StopGame asks the game controller to stop the current round
type StopGame struct{}

// Navigate asks for a page change after a delay
type Navigate struct {
	Page  int           `json:"page"`
	After time.Duration `json:"after"`
}

// Disconnect asks the client to drop the connection. A permanent disconnect
// is not followed by a reconnect.
type Disconnect struct {
	Permanent bool   `json:"permanent"`
	Reason    string `json:"reason"`
}

func (Notify) isRequest()     {}
func (PlaySound) isRequest()  {}
func (Render) isRequest()     {}
func (CheckWin) isRequest()   {}
func (StartGame) isRequest()  {}
func (StopGame) isRequest()   {}
func (Navigate) isRequest()   {}
func (Disconnect) isRequest() {}
