// Package transport implements the connection layer between a requester and
// a wallet. Every concrete transport shares one lifecycle state machine and
// one message-receipt path; they differ only in how bytes move and in which
// origin they trust for validation. Delivery-validated transports trust the
// origin observed from the delivery mechanism itself; self-reported
// transports fall back to a configured or self-resolved origin, which is
// defense-in-depth rather than a hard guarantee.
package transport

import (
	"context"
	"sync"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/logging"
	"github.com/conneroisu/walletgate/internal/origin"
	"github.com/conneroisu/walletgate/internal/protocol"
)

// State is the connection lifecycle state of a transport.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateConnected
	StateDisconnected
	StateError
)

// String returns the state name used in logs and errors.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Handler receives validated inbound envelopes.
type Handler func(*protocol.Envelope)

// ErrorHandler receives non-fatal transport errors. Transports are
// long-lived and never terminate on a bad message; rejections surface here
// instead of as exceptions.
type ErrorHandler func(error)

// Transport is the contract every wallet transport implements.
type Transport interface {
	// Connect establishes the transport. It may time out via ctx.
	Connect(ctx context.Context) error

	// Disconnect tears the transport down. Terminal: a disconnected
	// transport cannot reconnect.
	Disconnect() error

	// Send transmits an envelope to the counterparty.
	Send(ctx context.Context, env *protocol.Envelope) error

	// OnMessage registers the handler for validated inbound messages.
	OnMessage(Handler)

	// OnError registers the handler for non-fatal transport errors.
	OnError(ErrorHandler)

	// State returns the current lifecycle state.
	State() State

	// TransportType is a fixed identifier used purely for diagnostics.
	TransportType() string

	// BrowserValidatedOrigin reports whether the delivery mechanism
	// supplies a non-spoofable origin (the delivery-validated variant).
	BrowserValidatedOrigin() bool
}

// base carries the shared state machine and the message-receipt algorithm.
// Concrete transports embed it and configure the trust variant at
// construction.
type base struct {
	mu                sync.Mutex
	state             State
	transportType     string
	trustedOrigin     string
	capturedOrigin    string
	deliveryValidated bool
	relayed           bool
	strict            bool
	handler           Handler
	errHandler        ErrorHandler
	logger            logging.Logger
}

func newBase(transportType string, logger logging.Logger) base {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return base{
		state:         StateUninitialized,
		transportType: transportType,
		logger:        logger.WithComponent(transportType),
	}
}

// State returns the current lifecycle state.
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// TransportType returns the diagnostic identifier.
func (b *base) TransportType() string {
	return b.transportType
}

// BrowserValidatedOrigin reports the origin-trust variant.
func (b *base) BrowserValidatedOrigin() bool {
	return b.deliveryValidated
}

// OnMessage registers the inbound message handler.
func (b *base) OnMessage(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// OnError registers the error-event handler.
func (b *base) OnError(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errHandler = h
}

func (b *base) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

// transitionToConnecting moves uninitialized → initializing, rejecting
// connects on terminal or already-live transports.
func (b *base) transitionToConnecting() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateUninitialized, StateError:
		b.state = StateInitializing

		return nil
	default:
		return errors.NewTransportError(
			errors.ErrCodeTransportState,
			"cannot connect from state "+b.state.String(),
			nil,
		).WithComponent(b.transportType)
	}
}

// captureOrigin records the origin observed from a verified delivery. It
// overwrites on every delivery, never merges, and becomes the comparison
// authority for the delivery-validated variant.
func (b *base) captureOrigin(observed string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capturedOrigin = observed
}

// comparisonOrigin resolves which origin the next validation compares
// against, per the transport's trust variant.
func (b *base) comparisonOrigin() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.deliveryValidated {
		return b.capturedOrigin
	}

	return b.trustedOrigin
}

// receive runs the shared message-receipt algorithm: decode, validate
// against the resolved trusted origin, then either forward to the handler
// or drop with exactly one diagnostic log line and one error event.
// Acceptance emits no log.
func (b *base) receive(data []byte) {
	env := protocol.DecodeEnvelope(data)

	opts := origin.Options{
		TransportType:        b.transportType,
		StrictOriginRequired: b.strict,
	}

	var result origin.Result
	if b.relayed {
		result = origin.ValidateRelayedOrigin(env, b.comparisonOrigin(), opts)
	} else {
		result = origin.ValidateClaimedOrigin(env, b.comparisonOrigin(), opts)
	}

	if !result.Valid {
		logging.LogSecurityEvent(b.logger, context.Background(),
			"origin_validation_failed", result.Context)
		b.emitError(result.Err)

		return
	}

	b.mu.Lock()
	handler := b.handler
	b.mu.Unlock()

	if handler != nil && env != nil {
		handler(env)
	}
}

// emitError delivers a non-fatal error event without ever terminating the
// transport.
func (b *base) emitError(err error) {
	b.mu.Lock()
	handler := b.errHandler
	b.mu.Unlock()

	if handler != nil {
		handler(err)
	}
}
