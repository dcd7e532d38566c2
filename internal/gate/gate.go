// Package gate composes a transport and an admission controller into the
// surface connection and signing flows actually consume: admit the
// operation first, then let the transport carry it.
package gate

import (
	"context"
	"fmt"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/logging"
	"github.com/conneroisu/walletgate/internal/protocol"
	"github.com/conneroisu/walletgate/internal/ratelimit"
	"github.com/conneroisu/walletgate/internal/transport"
)

// Gate guards a transport with per-origin admission control. Instances are
// explicit: one gate per trust boundary, injected wherever it is needed,
// with Destroy called exactly once at shutdown.
type Gate struct {
	transport transport.Transport
	limiter   *ratelimit.Limiter
	origin    string
	logger    logging.Logger
}

// New creates a gate for the given requester origin.
func New(t transport.Transport, limiter *ratelimit.Limiter, requesterOrigin string, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Gate{
		transport: t,
		limiter:   limiter,
		origin:    requesterOrigin,
		logger:    logger.WithComponent("gate"),
	}
}

// Admit consults the limiter before a sensitive operation proceeds. A
// denial is returned as a structured error telling the caller how long to
// wait; it is never fatal.
func (g *Gate) Admit(operation string) error {
	result := g.limiter.Check(g.origin, operation)
	if result.Allowed {
		return nil
	}

	return denialError(result, operation, g.origin)
}

// Connect admits and establishes the connection. A successful connect
// forgives the origin's prior connect violations.
func (g *Gate) Connect(ctx context.Context) error {
	if err := g.Admit(ratelimit.OpConnect); err != nil {
		return err
	}

	if err := g.transport.Connect(ctx); err != nil {
		return err
	}

	g.limiter.Reset(g.origin, ratelimit.OpConnect)
	g.logger.Info(ctx, "Connected",
		"transport", g.transport.TransportType(),
		"origin", g.origin)

	return nil
}

// Request admits the operation and sends the envelope.
func (g *Gate) Request(ctx context.Context, operation string, env *protocol.Envelope) error {
	if err := g.Admit(operation); err != nil {
		return err
	}

	return g.transport.Send(ctx, env)
}

// Disconnect tears down the transport. The limiter keeps its state; only
// Destroy releases it.
func (g *Gate) Disconnect() error {
	return g.transport.Disconnect()
}

// Destroy disconnects and releases the limiter. Call exactly once.
func (g *Gate) Destroy() error {
	err := g.transport.Disconnect()
	g.limiter.Destroy()

	return err
}

// denialError maps an admission denial to the structured error shape other
// subsystems consume. Code is the discriminator; data carries the wait
// guidance.
func denialError(result ratelimit.Result, operation, requesterOrigin string) *errors.GateError {
	code := errors.ErrCodeRateLimited
	switch result.Reason {
	case ratelimit.ReasonBlocked:
		code = errors.ErrCodeBlocked
	case ratelimit.ReasonBurstLimit:
		code = errors.ErrCodeBurstLimited
	}

	return errors.NewRateLimitError(
		code,
		fmt.Sprintf("operation %q denied for origin %q", operation, requesterOrigin),
	).WithComponent("gate").
		WithContext("operation", operation).
		WithContext("origin", requesterOrigin).
		WithContext("retryAfterMs", result.RetryAfter.Milliseconds()).
		WithContext("resetAfterMs", result.ResetAfter.Milliseconds())
}
