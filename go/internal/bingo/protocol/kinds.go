package protocol

// Kind is the discriminant carried by every record on the wire
type Kind string

// Inbound kinds pushed by the game server
const (
	KindConnected            Kind = "connected"
	KindRegistered           Kind = "registered"
	KindGameState            Kind = "game_state"
	KindPlayerJoined         Kind = "player_joined"
	KindPlayerLeft           Kind = "player_left"
	KindPlayerReconnected    Kind = "player_reconnected"
	KindNumberCalled         Kind = "number_called"
	KindPlayerMarked         Kind = "player_marked"
	KindPlayerWon            Kind = "player_won"
	KindGameStarted          Kind = "game_started"
	KindGameStopped          Kind = "game_stopped"
	KindGameReset            Kind = "game_reset"
	KindAnnouncement         Kind = "announcement"
	KindAdminAuthenticated   Kind = "admin_authenticated"
	KindAdminStats           Kind = "admin_stats"
	KindAdminCommandResponse Kind = "admin_command_response"
	KindKicked               Kind = "kicked"
	KindError                Kind = "error"
	KindPong                 Kind = "pong"
)

// Outbound kinds sent by the client
const (
	KindConnect  Kind = "connect"
	KindPing     Kind = "ping"
	KindAdmin    Kind = "admin"
	KindRegister Kind = "register"
	KindMark     Kind = "mark"
	KindClaimWin Kind = "claim_win"
)

// InboundKinds lists every server kind the client understands.
func InboundKinds() []Kind {
	return []Kind{
		KindConnected,
		KindRegistered,
		KindGameState,
		KindPlayerJoined,
		KindPlayerLeft,
		KindPlayerReconnected,
		KindNumberCalled,
		KindPlayerMarked,
		KindPlayerWon,
		KindGameStarted,
		KindGameStopped,
		KindGameReset,
		KindAnnouncement,
		KindAdminAuthenticated,
		KindAdminStats,
		KindAdminCommandResponse,
		KindKicked,
		KindError,
		KindPong,
	}
}
