package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Version is the JSON-RPC protocol version carried on every message.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the structured error shape surfaced to callers. Code is the
// discriminator; Data is opaque diagnostic payload.
type ErrorObject struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// NewRequest builds a request with a fresh message ID.
func NewRequest(method string, params json.RawMessage) *Request {
	return &Request{
		JSONRPC: Version,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
}

// NewEnvelope wraps an encoded request in an envelope with a fresh ID.
func NewEnvelope(payload json.RawMessage) *Envelope {
	return &Envelope{
		ID:      uuid.NewString(),
		Payload: payload,
	}
}
