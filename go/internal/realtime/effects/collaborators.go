package effects

import (
	"github.com/rs/zerolog/log"
)

// Renderer redraws the display
type Renderer interface {
	Render(req Render)
}

// SoundPlayer plays sound cues
type SoundPlayer interface {
	Play(sound string)
}

// WinChecker evaluates the local board for a win
type WinChecker interface {
	CheckWin()
}

// Navigator switches pages
type Navigator interface {
	Navigate(page int)
}

// Notifier shows notifications
type Notifier interface {
	Notify(n Notify)
}

// GameController starts and stops rounds on the local board
type GameController interface {
	StartGame()
	StopGame()
}

// Collaborators are the outside components effects are handed to. Any of
// them may be nil.
type Collaborators struct {
	Renderer   Renderer
	Sound      SoundPlayer
	WinChecker WinChecker
	Navigator  Navigator
	Notifier   Notifier
	Game       GameController
}

// WithFallbacks returns a copy where every missing collaborator is replaced
// by one that logs the request
func (c Collaborators) WithFallbacks() Collaborators {
	sink := LogSink{}
	if c.Renderer == nil {
		c.Renderer = sink
	}
	if c.Sound == nil {
		c.Sound = sink
	}
	if c.WinChecker == nil {
		c.WinChecker = sink
	}
	if c.Navigator == nil {
		c.Navigator = sink
	}
	if c.Notifier == nil {
		c.Notifier = sink
	}
	if c.Game == nil {
		c.Game = sink
	}
	return c
}

// LogSink implements every collaborator by logging
type LogSink struct{}

func (LogSink) Render(req Render) {
	log.Debug().Str("reason", req.Reason).Msg("render requested")
}

func (LogSink) Play(sound string) {
	log.Debug().Str("sound", sound).Msg("sound requested")
}

func (LogSink) CheckWin() {
	log.Debug().Msg("win check requested")
}

func (LogSink) Navigate(page int) {
	log.Info().Int("page", page).Msg("navigation requested")
}

func (LogSink) Notify(n Notify) {
	event := log.Info()
	switch n.Level {
	case LevelWarning:
		event = log.Warn()
	case LevelError:
		event = log.Error()
	}
	event.
		Str("level", string(n.Level)).
		Bool("persistent", n.Persistent).
		Msg(n.Message)
}

func (LogSink) StartGame() {
	log.Info().Msg("start game requested")
}

func (LogSink) StopGame() {
	log.Info().Msg("stop game requested")
}
