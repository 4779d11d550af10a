package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every event on the wire.
type Envelope struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Encode wraps payload in a new envelope and marshals it.
func Encode(payload any, now time.Time) ([]byte, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("encode event payload: %w", err)
	}
	env := Envelope{
		ID:        "evt_" + uuid.NewString(),
		Timestamp: now.UTC(),
		Data:      data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, "", fmt.Errorf("encode event envelope: %w", err)
	}
	return body, env.ID, nil
}

// Decode parses an envelope. Bodies without a data member are rejected.
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, errors.Join(ErrInvalidEnvelope, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return env, fmt.Errorf("%w: missing data", ErrInvalidEnvelope)
	}
	return env, nil
}

// Bind unmarshals the envelope data into v.
func (e Envelope) Bind(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return errors.Join(ErrInvalidEnvelope, err)
	}
	return nil
}
