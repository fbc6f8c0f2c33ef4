package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/bingo/gamestate"
	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/realtime/effects"
)

// Delays for deferred work requested by handlers
const (
	WinCheckDelay  = 100 * time.Millisecond
	StartGameDelay = 500 * time.Millisecond
	KickedNavDelay = 3 * time.Second
)

var errInvalidNumber = errors.New("number_called without a positive number")

// HomePage is the page shown after the player is removed from the game
const HomePage = 0

func info(format string, args ...interface{}) effects.Notify {
	return effects.Notify{Level: effects.LevelInfo, Message: fmt.Sprintf(format, args...)}
}

func success(format string, args ...interface{}) effects.Notify {
	return effects.Notify{Level: effects.LevelSuccess, Message: fmt.Sprintf(format, args...)}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func by(who string) string {
	if who == "" {
		return ""
	}
	return " by " + who
}

func (d *Dispatcher) handleConnected(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.ConnectedPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	if p.PlayerID != "" {
		d.state.PlayerID = p.PlayerID
	}
	if p.SessionID != "" {
		d.state.SessionID = p.SessionID
	}
	d.state.Terminated = false

	return []effects.Request{
		success("%s", orDefault(p.Message, "Connected to game server")),
	}, nil
}

func (d *Dispatcher) handleRegistered(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.RegisteredPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	if p.PlayerID != "" {
		d.state.PlayerID = p.PlayerID
	}
	d.state.PlayerName = p.Name

	return []effects.Request{
		success("Registered as %s", orDefault(p.Name, "player")),
	}, nil
}

func (d *Dispatcher) handleGameState(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.GameStatePayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	changed := false
	if p.GameType != nil && *p.GameType != d.state.GameType {
		d.state.GameType = *p.GameType
		changed = true
	}
	if p.CalledNumbers != nil && d.state.ReplaceCalled(p.CalledNumbers) {
		changed = true
	}
	if p.CurrentNumber != nil && d.state.SetCurrent(*p.CurrentNumber) {
		changed = true
	}
	if p.GameActive != nil && *p.GameActive != d.state.GameActive {
		d.state.GameActive = *p.GameActive
		changed = true
	}
	if p.Players != nil && d.state.ReplaceRoster(p.Players) {
		changed = true
	}

	if !changed {
		log.Debug().Msg("game state snapshot unchanged")
		return nil, nil
	}
	return []effects.Request{effects.Render{Reason: effects.RenderGameState}}, nil
}

// applyRoster handles the optional full player list carried by roster events
func (d *Dispatcher) applyRoster(players []protocol.PlayerInfo) bool {
	if players == nil {
		return false
	}
	return d.state.ReplaceRoster(players)
}

func (d *Dispatcher) handlePlayerJoined(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.PlayerEventPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	changed := d.state.UpsertPlayer(p.PlayerInfo)
	if d.applyRoster(p.Players) {
		changed = true
	}

	requests := []effects.Request{info("%s joined the game", orDefault(p.Name, "A player"))}
	if changed {
		requests = append(requests, effects.Render{Reason: effects.RenderRoster})
	}
	return requests, nil
}

func (d *Dispatcher) handlePlayerLeft(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.PlayerEventPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	changed := d.state.RemovePlayer(p.Key())
	if d.applyRoster(p.Players) {
		changed = true
	}

	requests := []effects.Request{info("%s left the game", orDefault(p.Name, "A player"))}
	if changed {
		requests = append(requests, effects.Render{Reason: effects.RenderRoster})
	}
	return requests, nil
}

func (d *Dispatcher) handlePlayerReconnected(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.PlayerEventPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	changed := d.state.UpsertPlayer(p.PlayerInfo)
	if d.applyRoster(p.Players) {
		changed = true
	}

	requests := []effects.Request{info("%s reconnected", orDefault(p.Name, "A player"))}
	if changed {
		requests = append(requests, effects.Render{Reason: effects.RenderRoster})
	}
	return requests, nil
}

func (d *Dispatcher) handleNumberCalled(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.NumberCalledPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	if p.Number == nil || *p.Number <= 0 {
		return nil, errInvalidNumber
	}

	if !d.state.CallNumber(*p.Number, p.Display) {
		log.Debug().Int("number", *p.Number).Msg("ignoring duplicate number call")
		return nil, nil
	}

	requests := []effects.Request{
		effects.Render{Reason: effects.RenderGameState},
		effects.PlaySound{Sound: effects.SoundCall},
		effects.CheckWin{After: WinCheckDelay},
	}
	if p.IsManual {
		requests = append(requests, info("%s called %s", orDefault(p.CalledBy, "Admin"), d.state.CurrentDisplay()))
	}
	return requests, nil
}

func (d *Dispatcher) handlePlayerMarked(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.PlayerMarkedPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	if p.PlayerID == "" || p.PlayerID == d.state.PlayerID {
		return nil, nil
	}
	return []effects.Request{effects.Render{
		Reason: effects.RenderBoardMark,
		Mark: &effects.BoardMark{
			PlayerID: p.PlayerID,
			Number:   p.Number,
			Marked:   p.Marked,
		},
	}}, nil
}

func (d *Dispatcher) handlePlayerWon(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.PlayerWonPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	key := p.PlayerID
	if key == "" {
		key = p.Name
	}
	d.state.MarkWinner(key)

	pattern := gamestate.PatternName(p.Pattern)
	var note effects.Notify
	if d.state.IsLocal(p.PlayerID, p.Name) {
		d.state.TotalWon += p.Amount
		note = success("You won %.2f with %s!", p.Amount, orDefault(pattern, "a bingo"))
	} else {
		note = info("%s won with %s", orDefault(p.Name, "A player"), orDefault(pattern, "a bingo"))
	}

	return []effects.Request{
		note,
		effects.PlaySound{Sound: effects.SoundWin},
		effects.Render{Reason: effects.RenderRoster},
	}, nil
}

func (d *Dispatcher) handleGameStarted(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.GameLifecyclePayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	d.state.GameActive = true
	return []effects.Request{
		info("Game started%s", by(p.StartedBy)),
		effects.StartGame{After: StartGameDelay},
	}, nil
}

func (d *Dispatcher) handleGameStopped(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.GameLifecyclePayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	d.state.GameActive = false
	return []effects.Request{
		info("Game stopped%s", by(p.StoppedBy)),
		effects.StopGame{},
	}, nil
}

func (d *Dispatcher) handleGameReset(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.GameLifecyclePayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	d.state.Reset()
	return []effects.Request{
		info("Game reset%s", by(p.ResetBy)),
		effects.Render{Reason: effects.RenderGameState},
		effects.StartGame{After: StartGameDelay},
	}, nil
}

func (d *Dispatcher) handleAnnouncement(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.AnnouncementPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	message := p.Message
	if p.From != "" {
		message = p.From + ": " + message
	}
	return []effects.Request{info("%s", message)}, nil
}

func (d *Dispatcher) handleAdminAuthenticated(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.MessagePayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	d.state.IsAdmin = true
	return []effects.Request{success("%s", orDefault(p.Message, "Admin login confirmed"))}, nil
}

func (d *Dispatcher) handleAdminStats(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.AdminStatsPayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	d.state.AdminStats = &p
	return []effects.Request{effects.Render{Reason: effects.RenderAdminStats}}, nil
}

func (d *Dispatcher) handleAdminCommandResponse(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.AdminCommandResponsePayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	message := orDefault(p.Message, "done")
	if p.Command != "" {
		message = p.Command + ": " + message
	}
	return []effects.Request{success("%s", message)}, nil
}

func (d *Dispatcher) handleKicked(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.MessagePayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	d.state.Terminated = true
	reason := orDefault(p.Message, "You were removed from the game")
	return []effects.Request{
		effects.Notify{Level: effects.LevelError, Message: reason, Persistent: true},
		effects.Disconnect{Permanent: true, Reason: reason},
		effects.Navigate{Page: HomePage, After: KickedNavDelay},
	}, nil
}

func (d *Dispatcher) handleError(env protocol.Envelope) ([]effects.Request, error) {
	var p protocol.MessagePayload
	if err := env.Decode(&p); err != nil {
		return nil, err
	}

	d.state.LastError = orDefault(p.Message, "unknown server error")
	return []effects.Request{
		effects.Notify{Level: effects.LevelError, Message: d.state.LastError},
	}, nil
}

func (d *Dispatcher) handlePong(protocol.Envelope) ([]effects.Request, error) {
	return nil, nil
}
