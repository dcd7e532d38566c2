package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/logging"
	"github.com/conneroisu/walletgate/internal/origin"
	"github.com/conneroisu/walletgate/internal/protocol"
)

// TypePort identifies the port transport in diagnostics.
const TypePort = "port"

// PortConfig configures a PortTransport.
type PortConfig struct {
	// PortID keys the out-of-process channel. Assigned when empty.
	PortID string

	// TrustedOrigin overrides the self-resolved origin used for
	// validation. When empty the transport resolves its own origin at
	// connect time.
	TrustedOrigin string

	// Sender transmits outbound bytes through the port.
	Sender SendFunc
}

// PortTransport is the self-reported variant over an out-of-process channel
// keyed by an opaque port ID (a browser-extension background channel, for
// example). The channel does not supply a verified sender origin, so
// validation compares against the transport's own reported origin. This is
// defense-in-depth, not a hard guarantee.
type PortTransport struct {
	base
	portID string
	sender SendFunc
}

// NewPortTransport creates a port transport.
func NewPortTransport(config PortConfig, logger logging.Logger) *PortTransport {
	portID := config.PortID
	if portID == "" {
		portID = uuid.NewString()
	}

	t := &PortTransport{
		base:   newBase(TypePort, logger),
		portID: portID,
		sender: config.Sender,
	}
	t.trustedOrigin = config.TrustedOrigin

	return t
}

// PortID returns the opaque channel identifier.
func (t *PortTransport) PortID() string {
	return t.portID
}

// Connect resolves the comparison origin and marks the transport live.
func (t *PortTransport) Connect(ctx context.Context) error {
	if err := t.transitionToConnecting(); err != nil {
		return err
	}

	t.mu.Lock()
	if t.trustedOrigin == "" {
		t.trustedOrigin = origin.ResolveSelfOrigin()
	}
	t.mu.Unlock()

	t.setState(StateConnected)

	return nil
}

// Disconnect terminally closes the transport.
func (t *PortTransport) Disconnect() error {
	t.setState(StateDisconnected)

	return nil
}

// Deliver feeds one inbound message into the transport. The port supplies
// no verified origin, so nothing is captured.
func (t *PortTransport) Deliver(data []byte) {
	t.receive(data)
}

// Send transmits an envelope through the port.
func (t *PortTransport) Send(ctx context.Context, env *protocol.Envelope) error {
	if t.State() != StateConnected {
		return errors.NewTransportError(
			errors.ErrCodeTransportState,
			"send on "+t.State().String()+" transport",
			nil,
		).WithComponent(TypePort)
	}
	if t.sender == nil {
		return errors.NewTransportError(
			errors.ErrCodeTransportClosed,
			"no sender configured",
			nil,
		).WithComponent(TypePort)
	}

	data, err := env.Encode()
	if err != nil {
		return errors.NewTransportError(
			errors.ErrCodeInternalError, "encode envelope", err,
		).WithComponent(TypePort)
	}

	return t.sender(ctx, data)
}
