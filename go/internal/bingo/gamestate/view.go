package gamestate

import (
	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
)

// View is a read-only copy of the projection, safe to hand to other goroutines
type View struct {
	PlayerID       string                      `json:"player_id"`
	SessionID      string                      `json:"session_id"`
	IsAdmin        bool                        `json:"is_admin"`
	PlayerName     string                      `json:"player_name,omitempty"`
	GameType       string                      `json:"game_type,omitempty"`
	GameActive     bool                        `json:"game_active"`
	CalledNumbers  []int                       `json:"called_numbers"`
	CurrentNumber  *int                        `json:"current_number,omitempty"`
	CurrentDisplay string                      `json:"current_display,omitempty"`
	RecentCalls    []string                    `json:"recent_calls"`
	Players        []Player                    `json:"players"`
	TotalWon       float64                     `json:"total_won"`
	LastError      string                      `json:"last_error,omitempty"`
	Terminated     bool                        `json:"terminated"`
	AdminStats     *protocol.AdminStatsPayload `json:"admin_stats,omitempty"`
}

// Snapshot deep-copies the projection. Players are listed in roster order.
func (s *State) Snapshot() View {
	v := View{
		PlayerID:       s.PlayerID,
		SessionID:      s.SessionID,
		IsAdmin:        s.IsAdmin,
		PlayerName:     s.PlayerName,
		GameType:       s.GameType,
		GameActive:     s.GameActive,
		CalledNumbers:  append([]int{}, s.calledNumbers...),
		CurrentDisplay: s.currentDisplay,
		RecentCalls:    append([]string{}, s.recentCalls...),
		Players:        make([]Player, 0, len(s.order)),
		TotalWon:       s.TotalWon,
		LastError:      s.LastError,
		Terminated:     s.Terminated,
	}

	if s.hasCurrent {
		n := s.currentNumber
		v.CurrentNumber = &n
	}
	for _, key := range s.order {
		if p, ok := s.roster[key]; ok {
			v.Players = append(v.Players, *p)
		}
	}
	if s.AdminStats != nil {
		stats := *s.AdminStats
		v.AdminStats = &stats
	}
	return v
}
