package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingKind is returned when a record carries neither "kind" nor the legacy "type" field
var ErrMissingKind = errors.New("record has no kind")

// Envelope is an inbound record whose kind has been read but whose fields
// are still raw. Handlers decode the fields they need with Decode.
type Envelope struct {
	Kind Kind
	Raw  json.RawMessage
}

// ParseEnvelope reads the discriminant of a single inbound record.
// Older servers send "type" instead of "kind"; both are accepted.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var head struct {
		Kind string `json:"kind"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	kind := head.Kind
	if kind == "" {
		kind = head.Type
	}
	if kind == "" {
		return Envelope{}, ErrMissingKind
	}

	return Envelope{Kind: Kind(kind), Raw: append(json.RawMessage(nil), raw...)}, nil
}

// Decode unmarshals the record's fields into v
func (e Envelope) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}

// Fields returns the record as a generic map, used when forwarding a record
// to listeners that do not know its payload type.
func (e Envelope) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if err := json.Unmarshal(e.Raw, &fields); err != nil {
		return nil
	}
	return fields
}
