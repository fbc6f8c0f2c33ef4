package gamestate

import (
	"slices"

	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
)

// MaxRecentCalls is how many previously called numbers the display history keeps
const MaxRecentCalls = 8

// Player is one roster entry. All fields are comparable so a merge can tell
// whether anything actually changed.
type Player struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone,omitempty"`
	BoardType string  `json:"board_type,omitempty"`
	Stake     float64 `json:"stake"`
	Payment   float64 `json:"payment"`
	Balance   float64 `json:"balance"`
	Withdrawn float64 `json:"withdrawn"`
	Paid      bool    `json:"paid"`
	Won       bool    `json:"won"`
	Connected bool    `json:"connected"`
}

// merge applies every field the server sent; absent fields keep their value
func (p *Player) merge(info protocol.PlayerInfo) {
	if info.PlayerID != "" {
		p.ID = info.PlayerID
	}
	if info.Name != "" {
		p.Name = info.Name
	}
	if info.Phone != nil {
		p.Phone = *info.Phone
	}
	if info.BoardType != nil {
		p.BoardType = *info.BoardType
	}
	if info.Stake != nil {
		p.Stake = *info.Stake
	}
	if info.Payment != nil {
		p.Payment = *info.Payment
	}
	if info.Balance != nil {
		p.Balance = *info.Balance
	}
	if info.Withdrawn != nil {
		p.Withdrawn = *info.Withdrawn
	}
	if info.Paid != nil {
		p.Paid = *info.Paid
	}
	if info.Won != nil {
		p.Won = *info.Won
	}
}

// State is the local projection of the remote game session.
//
// State has exactly one writer, the dispatcher, and is owned by the client's
// event loop. Everything else reads it through Snapshot.
type State struct {
	// Identity
	PlayerID   string
	SessionID  string
	IsAdmin    bool
	PlayerName string

	GameType   string
	GameActive bool
	TotalWon   float64
	LastError  string
	Terminated bool
	AdminStats *protocol.AdminStatsPayload

	// calledNumbers is append-only between resets and never holds a duplicate
	calledNumbers []int
	calledIndex   map[int]struct{}

	currentNumber  int
	hasCurrent     bool
	currentDisplay string
	recentCalls    []string

	roster map[string]*Player
	order  []string
}

// New creates an empty projection for the given identity
func New(playerID, sessionID string, isAdmin bool) *State {
	return &State{
		PlayerID:    playerID,
		SessionID:   sessionID,
		IsAdmin:     isAdmin,
		calledIndex: make(map[int]struct{}),
		roster:      make(map[string]*Player),
	}
}

// HasCalled reports whether n has already been accepted
func (s *State) HasCalled(n int) bool {
	_, ok := s.calledIndex[n]
	return ok
}

// Called returns a copy of the called numbers in call order
func (s *State) Called() []int {
	return append([]int(nil), s.calledNumbers...)
}

// CurrentNumber returns the most recently accepted number, if any
func (s *State) CurrentNumber() (int, bool) {
	return s.currentNumber, s.hasCurrent
}

// CurrentDisplay returns the formatted current number, e.g. "B-12"
func (s *State) CurrentDisplay() string {
	return s.currentDisplay
}

// CallNumber accepts a newly called number. Duplicates are rejected and
// leave the projection untouched. The previous current number moves into
// the recent-calls history.
func (s *State) CallNumber(n int, display string) bool {
	if s.HasCalled(n) {
		return false
	}

	s.calledNumbers = append(s.calledNumbers, n)
	s.calledIndex[n] = struct{}{}

	if display == "" {
		display = FormatNumber(n, s.GameType)
	}
	if s.hasCurrent {
		s.pushRecent(s.currentDisplay)
	}
	s.currentNumber = n
	s.hasCurrent = true
	s.currentDisplay = display
	return true
}

func (s *State) pushRecent(display string) {
	s.recentCalls = append([]string{display}, s.recentCalls...)
	if len(s.recentCalls) > MaxRecentCalls {
		s.recentCalls = s.recentCalls[:MaxRecentCalls]
	}
}

// ReplaceCalled installs the server's list of called numbers, dropping any
// duplicates it contains. It reports whether the list changed.
func (s *State) ReplaceCalled(numbers []int) bool {
	deduped := make([]int, 0, len(numbers))
	index := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		if _, dup := index[n]; dup {
			continue
		}
		index[n] = struct{}{}
		deduped = append(deduped, n)
	}

	if slices.Equal(deduped, s.calledNumbers) {
		return false
	}
	s.calledNumbers = deduped
	s.calledIndex = index
	return true
}

// SetCurrent sets the current number from a snapshot without touching the
// recent-calls history. It reports whether anything changed.
func (s *State) SetCurrent(n int) bool {
	if s.hasCurrent && s.currentNumber == n {
		return false
	}
	s.currentNumber = n
	s.hasCurrent = true
	s.currentDisplay = FormatNumber(n, s.GameType)
	return true
}

// ReplaceRoster merges the server's full player list into the roster.
// Entries the server no longer lists are removed; listed entries are merged
// field by field so locally known values survive partial records.
func (s *State) ReplaceRoster(players []protocol.PlayerInfo) bool {
	changed := false
	seen := make(map[string]struct{}, len(players))
	order := make([]string, 0, len(players))

	for _, info := range players {
		key := info.Key()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		order = append(order, key)

		if s.upsert(info, true) {
			changed = true
		}
	}

	for key := range s.roster {
		if _, ok := seen[key]; !ok {
			delete(s.roster, key)
			changed = true
		}
	}
	if !slices.Equal(order, s.order) {
		changed = true
	}
	s.order = order
	return changed
}

// UpsertPlayer merges one roster entry and marks it connected
func (s *State) UpsertPlayer(info protocol.PlayerInfo) bool {
	key := info.Key()
	if key == "" {
		return false
	}
	if _, exists := s.roster[key]; !exists {
		s.order = append(s.order, key)
	}
	return s.upsert(info, true)
}

func (s *State) upsert(info protocol.PlayerInfo, connected bool) bool {
	key := info.Key()
	existing, ok := s.roster[key]
	if !ok {
		p := &Player{ID: key, Connected: connected}
		p.merge(info)
		s.roster[key] = p
		return true
	}

	before := *existing
	existing.merge(info)
	existing.Connected = connected
	return before != *existing
}

// RemovePlayer drops a roster entry
func (s *State) RemovePlayer(key string) bool {
	if _, ok := s.roster[key]; !ok {
		return false
	}
	delete(s.roster, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// MarkWinner flags a roster entry as having won
func (s *State) MarkWinner(key string) {
	if p, ok := s.roster[key]; ok {
		p.Won = true
	}
}

// Player returns a copy of a roster entry
func (s *State) Player(key string) (Player, bool) {
	p, ok := s.roster[key]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// IsLocal reports whether a player id or name refers to the local player
func (s *State) IsLocal(playerID, name string) bool {
	if playerID != "" {
		return playerID == s.PlayerID
	}
	return name != "" && name == s.PlayerName
}

// Reset restores the round to its initial values. Identity, the roster
// membership and cumulative winnings carry over to the next round.
func (s *State) Reset() {
	s.calledNumbers = nil
	s.calledIndex = make(map[int]struct{})
	s.currentNumber = 0
	s.hasCurrent = false
	s.currentDisplay = ""
	s.recentCalls = nil
	s.GameActive = false
	s.LastError = ""
	for _, p := range s.roster {
		p.Won = false
	}
}
