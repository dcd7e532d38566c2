// Package protocol defines the wire shapes exchanged between a requester and
// a wallet: the JSON-RPC request/response pair and the security envelope that
// carries an optional origin claim. Decoding is the trust boundary; anything
// that does not parse into a known shape is treated as carrying no claim.
package protocol

import (
	"encoding/json"
)

// MessageContext is the security metadata a sender may attach to a message.
// Origin is a pointer so that an absent claim and a present-but-empty claim
// remain distinguishable after decoding.
type MessageContext struct {
	Origin *string `json:"origin,omitempty"`
}

// Envelope is the outer shape of every inbound message. Relaying transports
// wrap the forwarded message one level deep under Message; direct transports
// attach the claim flat under Context. Both levels are optional.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Context *MessageContext `json:"_context,omitempty"`
	Message *Envelope       `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClaimedOrigin returns the flat origin claim and whether one is present.
func (e *Envelope) ClaimedOrigin() (string, bool) {
	if e == nil || e.Context == nil || e.Context.Origin == nil {
		return "", false
	}

	return *e.Context.Origin, true
}

// RelayedOrigin returns the origin claim of the wrapped sub-message and
// whether one is present.
func (e *Envelope) RelayedOrigin() (string, bool) {
	if e == nil {
		return "", false
	}

	return e.Message.ClaimedOrigin()
}

// WithOrigin attaches a flat origin claim to the envelope.
func (e *Envelope) WithOrigin(origin string) *Envelope {
	e.Context = &MessageContext{Origin: &origin}

	return e
}

// DecodeEnvelope parses raw bytes into an Envelope. Malformed input yields
// nil: a message that cannot be decoded never claims an origin, so decode
// failure is "no claim present" rather than a validation error.
func DecodeEnvelope(data []byte) *Envelope {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}

	return &env
}

// Encode serializes the envelope for transmission.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
