// Package protocol defines the WebSocket message types and envelope used for
// communication between the captcha client and server. All messages are
// serialized as JSON and share a single envelope: a type discriminator plus
// an optional string parameter.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client -> Server message types.
const (
	TypeGetChallenge = "captcha.get.challenge"
	TypeCheckResult  = "captcha.check.result"
)

// Server -> Client message types.
const (
	TypeChallenge   = "captcha.challenge"
	TypeExpired     = "captcha.expired"
	TypeVerified    = "captcha.verified"
	TypeNotVerified = "captcha.not.verified"
)

// Message is the wire envelope shared by both directions. Params carries the
// message payload when present: the rendered challenge document, the
// candidate solution, or the verification token, depending on Type.
type Message struct {
	Type   string `json:"type"`
	Params string `json:"params,omitempty"`
}

// clientTypes is the set of message types a client is allowed to send.
var clientTypes = map[string]bool{
	TypeGetChallenge: true,
	TypeCheckResult:  true,
}

// ParseClientMessage parses raw WebSocket bytes into a Message and validates
// that the type is one a client may send. Unknown and server-only types are
// rejected with an error so the caller can log and drop the frame without
// touching session state.
func ParseClientMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("protocol: failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	if !clientTypes[msg.Type] {
		return Message{}, fmt.Errorf("protocol: unknown client message type: %q", msg.Type)
	}
	return msg, nil
}

// NewServerMessage creates the JSON-encoded bytes for a server message with
// the given type and params. An empty params string is omitted from the
// output entirely, matching the optional-params envelope.
func NewServerMessage(msgType string, params string) ([]byte, error) {
	out, err := json.Marshal(Message{Type: msgType, Params: params})
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
