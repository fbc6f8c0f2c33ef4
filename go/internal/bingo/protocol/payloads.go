package protocol

// Inbound payload types. Optional fields are pointers so handlers can tell
// "absent" from "zero" and only overwrite what the server actually sent.

// ConnectedPayload confirms the server accepted the socket
type ConnectedPayload struct {
	Message   string `json:"message"`
	PlayerID  string `json:"playerId"`
	SessionID string `json:"sessionId"`
}

// RegisteredPayload confirms the local player's registration
type RegisteredPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// PlayerInfo is one roster entry as sent by the server
type PlayerInfo struct {
	PlayerID  string   `json:"playerId,omitempty"`
	Name      string   `json:"name,omitempty"`
	Phone     *string  `json:"phone,omitempty"`
	BoardType *string  `json:"boardType,omitempty"`
	Stake     *float64 `json:"stake,omitempty"`
	Payment   *float64 `json:"payment,omitempty"`
	Balance   *float64 `json:"balance,omitempty"`
	Withdrawn *float64 `json:"withdrawn,omitempty"`
	Paid      *bool    `json:"paid,omitempty"`
	Won       *bool    `json:"won,omitempty"`
}

// Key is the stable roster identity: the player id, or the name for
// servers that do not send ids.
func (p PlayerInfo) Key() string {
	if p.PlayerID != "" {
		return p.PlayerID
	}
	return p.Name
}

// GameStatePayload is a full or partial snapshot of the game
type GameStatePayload struct {
	CalledNumbers []int        `json:"calledNumbers"`
	CurrentNumber *int         `json:"currentNumber"`
	GameActive    *bool        `json:"gameActive"`
	GameType      *string      `json:"gameType"`
	Players       []PlayerInfo `json:"players"`
}

// PlayerEventPayload is shared by player_joined, player_left and player_reconnected
type PlayerEventPayload struct {
	PlayerInfo
	Players []PlayerInfo `json:"players"`
}

// NumberCalledPayload announces a drawn number. Number is nil when the
// record omits it.
type NumberCalledPayload struct {
	Number   *int   `json:"number"`
	Display  string `json:"display"`
	IsManual bool   `json:"isManual"`
	CalledBy string `json:"calledBy"`
}

// PlayerMarkedPayload reports a cell toggle on some player's board
type PlayerMarkedPayload struct {
	PlayerID string `json:"playerId"`
	Number   int    `json:"number"`
	Marked   bool   `json:"marked"`
}

// PlayerWonPayload announces a winner
type PlayerWonPayload struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Pattern  string  `json:"pattern"`
	Amount   float64 `json:"amount"`
}

// GameLifecyclePayload is shared by game_started, game_stopped and game_reset
type GameLifecyclePayload struct {
	StartedBy string `json:"startedBy"`
	StoppedBy string `json:"stoppedBy"`
	ResetBy   string `json:"resetBy"`
}

// AnnouncementPayload is a free text broadcast
type AnnouncementPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// AdminStatsPayload carries the admin panel counters
type AdminStatsPayload struct {
	TotalPlayers  int     `json:"totalPlayers"`
	ActivePlayers int     `json:"activePlayers"`
	TotalCalled   int     `json:"totalCalled"`
	TotalWon      float64 `json:"totalWon"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// AdminCommandResponsePayload acknowledges an admin intent
type AdminCommandResponsePayload struct {
	Command string `json:"command"`
	Message string `json:"message"`
}

// MessagePayload is shared by kicked, error and admin_authenticated
type MessagePayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
