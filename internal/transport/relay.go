package transport

import (
	"context"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/logging"
	"github.com/conneroisu/walletgate/internal/protocol"
)

// TypeRelay identifies the relay transport in diagnostics.
const TypeRelay = "relay"

// SendFunc transmits encoded bytes to the counterparty. The host supplies
// it because the actual delivery mechanism (popup window, iframe bridge)
// lives outside the SDK.
type SendFunc func(ctx context.Context, data []byte) error

// RelayConfig configures a RelayTransport.
type RelayConfig struct {
	// TrustedOrigin is the counterparty origin this transport accepts.
	// Immutable for the transport's lifetime.
	TrustedOrigin string

	// Sender transmits outbound bytes through the host's delivery channel.
	Sender SendFunc
}

// RelayTransport is the delivery-validated variant: the delivery mechanism
// attaches a verified sender origin to every inbound delivery, and that
// captured origin is the validation authority. Because the relay forwards
// wrapped messages on behalf of a third party, the relayed origin claim is
// validated strictly; stripping the claim is the realistic attack here.
type RelayTransport struct {
	base
	sender SendFunc
}

// NewRelayTransport creates a relay transport for the given trusted origin.
func NewRelayTransport(config RelayConfig, logger logging.Logger) *RelayTransport {
	t := &RelayTransport{
		base:   newBase(TypeRelay, logger),
		sender: config.Sender,
	}
	t.trustedOrigin = config.TrustedOrigin
	t.deliveryValidated = true
	t.relayed = true
	t.strict = true

	return t
}

// Connect marks the transport live. The underlying channel is host-managed,
// so there is nothing to dial.
func (t *RelayTransport) Connect(ctx context.Context) error {
	if err := t.transitionToConnecting(); err != nil {
		return err
	}
	t.setState(StateConnected)

	return nil
}

// Disconnect terminally closes the transport.
func (t *RelayTransport) Disconnect() error {
	t.setState(StateDisconnected)

	return nil
}

// Deliver feeds one inbound delivery into the transport. observedOrigin is
// the origin the delivery mechanism itself verified; it is captured before
// the payload is validated, overwriting any previous capture.
func (t *RelayTransport) Deliver(observedOrigin string, data []byte) {
	t.captureOrigin(observedOrigin)
	t.receive(data)
}

// Send transmits an envelope through the host's delivery channel.
func (t *RelayTransport) Send(ctx context.Context, env *protocol.Envelope) error {
	if t.State() != StateConnected {
		return errors.NewTransportError(
			errors.ErrCodeTransportState,
			"send on "+t.State().String()+" transport",
			nil,
		).WithComponent(TypeRelay)
	}
	if t.sender == nil {
		return errors.NewTransportError(
			errors.ErrCodeTransportClosed,
			"no sender configured",
			nil,
		).WithComponent(TypeRelay)
	}

	data, err := env.Encode()
	if err != nil {
		return errors.NewTransportError(
			errors.ErrCodeInternalError, "encode envelope", err,
		).WithComponent(TypeRelay)
	}

	return t.sender(ctx, data)
}
