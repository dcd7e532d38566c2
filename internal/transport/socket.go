package transport

import (
	"context"

	"github.com/coder/websocket"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/logging"
	"github.com/conneroisu/walletgate/internal/origin"
	"github.com/conneroisu/walletgate/internal/protocol"
)

// TypeSocket identifies the socket transport in diagnostics.
const TypeSocket = "socket"

// SocketConfig configures a SocketTransport.
type SocketConfig struct {
	// URL is the websocket endpoint of the wallet relay.
	URL string

	// TrustedOrigin overrides the self-resolved origin used for
	// validation. When empty the transport resolves its own origin at
	// connect time.
	TrustedOrigin string
}

// SocketTransport is the self-reported variant over a websocket. A raw
// socket carries no browser-verified sender origin, so inbound claims are
// compared against the transport's own reported origin as defense-in-depth
// only.
type SocketTransport struct {
	base
	url    string
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSocketTransport creates a socket transport for the given endpoint.
func NewSocketTransport(config SocketConfig, logger logging.Logger) *SocketTransport {
	t := &SocketTransport{
		base: newBase(TypeSocket, logger),
		url:  config.URL,
	}
	t.trustedOrigin = config.TrustedOrigin

	return t
}

// Connect dials the endpoint and starts the read loop. The dial honours
// ctx for timeout and cancellation.
func (t *SocketTransport) Connect(ctx context.Context) error {
	if err := t.transitionToConnecting(); err != nil {
		return err
	}

	t.mu.Lock()
	if t.trustedOrigin == "" {
		t.trustedOrigin = origin.ResolveSelfOrigin()
	}
	t.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, t.url, nil)
	if err != nil {
		t.setState(StateError)

		return errors.NewTransportError(
			errors.ErrCodeDialFailed, "dial "+t.url, err,
		).WithComponent(TypeSocket)
	}

	readCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.conn = conn
	t.cancel = cancel
	t.done = make(chan struct{})
	t.state = StateConnected
	t.mu.Unlock()

	go t.readLoop(readCtx, conn)

	return nil
}

// readLoop pumps inbound frames through the shared receipt path until the
// connection drops or the transport disconnects.
func (t *SocketTransport) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(t.done)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if t.State() == StateDisconnected {
				return
			}

			t.setState(StateError)
			t.emitError(errors.NewTransportError(
				errors.ErrCodeTransportClosed, "socket read", err,
			).WithComponent(TypeSocket))

			return
		}

		t.receive(data)
	}
}

// Disconnect terminally closes the socket and stops the read loop.
func (t *SocketTransport) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	cancel := t.cancel
	done := t.done
	t.conn = nil
	t.cancel = nil
	t.state = StateDisconnected
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "disconnect")
	}
	if done != nil {
		<-done
	}

	return err
}

// Send transmits an envelope as a text frame.
func (t *SocketTransport) Send(ctx context.Context, env *protocol.Envelope) error {
	t.mu.Lock()
	conn := t.conn
	state := t.state
	t.mu.Unlock()

	if state != StateConnected || conn == nil {
		return errors.NewTransportError(
			errors.ErrCodeTransportState,
			"send on "+state.String()+" transport",
			nil,
		).WithComponent(TypeSocket)
	}

	data, err := env.Encode()
	if err != nil {
		return errors.NewTransportError(
			errors.ErrCodeInternalError, "encode envelope", err,
		).WithComponent(TypeSocket)
	}

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return errors.NewTransportError(
			errors.ErrCodeTransportClosed, "socket write", err,
		).WithComponent(TypeSocket)
	}

	return nil
}
