// Package spectate streams published frames to websocket viewers.
package spectate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pthm-cable/flappy/game"
)

// Message types.
const (
	MsgWelcome = "welcome"
	MsgFrame   = "frame"
)

// Envelope wraps every message sent to a viewer.
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

// Welcome is sent once when a viewer connects.
type Welcome struct {
	Variant string `json:"variant"`
	Title   string `json:"title"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// FrameMessage carries one frame and its digest.
type FrameMessage struct {
	Frame  *game.Frame `json:"frame"`
	Digest uint64      `json:"digest"`
}

var errEmpty = errors.New("empty message")

// Encode wraps payload in an envelope of type t.
func Encode(t string, payload any) ([]byte, error) {
	if t == "" || payload == nil {
		return nil, fmt.Errorf("encoding %q envelope: %w", t, errEmpty)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %q payload: %w", t, err)
	}
	return json.Marshal(Envelope{T: t, P: pb})
}

// DecodeEnvelope parses the outer envelope.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", errEmpty)
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return e, nil
}

// DecodePayload parses an envelope's payload as T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("decoding %q payload: %w", env.T, errEmpty)
	}
	err := json.Unmarshal(env.P, &out)
	return out, err
}
