package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Intent is a client-originated record awaiting or undergoing delivery.
// Every intent gets its own ID so the server can drop duplicates caused by
// at-least-once delivery; the client never deduplicates intents itself.
type Intent struct {
	ID     string
	Kind   Kind
	Fields map[string]interface{}
}

// NewIntent creates an intent with a fresh ID
func NewIntent(kind Kind, fields map[string]interface{}) Intent {
	return Intent{
		ID:     uuid.New().String(),
		Kind:   kind,
		Fields: fields,
	}
}

// MarshalJSON flattens the intent into a single {kind, id, ...fields} record
func (i Intent) MarshalJSON() ([]byte, error) {
	record := make(map[string]interface{}, len(i.Fields)+2)
	for k, v := range i.Fields {
		record[k] = v
	}
	record["kind"] = i.Kind
	if i.ID != "" {
		record["id"] = i.ID
	}
	return json.Marshal(record)
}

// UnmarshalJSON accepts the flattened form produced by MarshalJSON. Intents
// coming from local collaborators usually omit the id; one is generated.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var record map[string]interface{}
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("unmarshal intent: %w", err)
	}

	kind, _ := record["kind"].(string)
	if kind == "" {
		return ErrMissingKind
	}
	id, _ := record["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}
	delete(record, "kind")
	delete(record, "id")

	i.ID = id
	i.Kind = Kind(kind)
	i.Fields = record
	return nil
}

// Connect is the handshake sent first on every new connection
func Connect(playerID, sessionID string, isAdmin bool) Intent {
	return NewIntent(KindConnect, map[string]interface{}{
		"playerId":  playerID,
		"sessionId": sessionID,
		"isAdmin":   isAdmin,
	})
}

// Ping is the heartbeat probe
func Ping(at time.Time) Intent {
	return NewIntent(KindPing, map[string]interface{}{
		"timestamp": at.UnixMilli(),
	})
}

// Admin wraps an admin panel command such as startGame or nextNumber
func Admin(action string, payload map[string]interface{}) Intent {
	fields := map[string]interface{}{"action": action}
	if len(payload) > 0 {
		fields["payload"] = payload
	}
	return NewIntent(KindAdmin, fields)
}

// Register asks the server to register the local player under a display name
func Register(name, phone string) Intent {
	return NewIntent(KindRegister, map[string]interface{}{
		"name":  name,
		"phone": phone,
	})
}

// Mark reports a cell toggle on the local board
func Mark(number int, marked bool) Intent {
	return NewIntent(KindMark, map[string]interface{}{
		"number": number,
		"marked": marked,
	})
}

// ClaimWin reports a win detected by the local win checker
func ClaimWin(pattern string) Intent {
	return NewIntent(KindClaimWin, map[string]interface{}{
		"pattern": pattern,
	})
}
