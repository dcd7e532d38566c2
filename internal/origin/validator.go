// Package origin implements claimed-origin validation for wallet transports.
//
// All validation functions are pure and synchronous: they compare an origin
// claim decoded from an inbound envelope against the origin a transport
// trusts and return a structured result. They never panic, never perform
// I/O, and hold no state, so a single set of functions is shared by every
// transport variant.
package origin

import (
	"net/url"
	"os"
	"strings"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/protocol"
)

// SelfOriginEnv is the environment variable a host sets to report the
// origin of the embedding context. Hosts that embed the SDK outside a
// browser-like context leave it unset.
const SelfOriginEnv = "WALLETGATE_SELF_ORIGIN"

// Options controls a single validation call.
type Options struct {
	// TransportType tags the result context for log correlation.
	TransportType string

	// AdditionalContext is merged into the result context verbatim.
	AdditionalContext map[string]interface{}

	// StrictOriginRequired makes a missing origin claim a failure. Used by
	// relaying transports, where stripping the claim is itself the attack.
	StrictOriginRequired bool
}

// Result is the outcome of a validation call. Valid results never carry an
// error; failed results always carry one, plus enough context to log the
// rejection without re-deriving anything at the call site.
type Result struct {
	Valid   bool
	Err     *errors.GateError
	Context map[string]interface{}
}

// ValidateClaimedOrigin checks the flat origin claim of an envelope against
// the trusted origin. A message that never claims an origin passes unless
// strict mode is on; such messages are validated by other means upstream.
func ValidateClaimedOrigin(env *protocol.Envelope, trustedOrigin string, opts Options) Result {
	claimed, present := env.ClaimedOrigin()

	return validate(claimed, present, trustedOrigin, opts)
}

// ValidateRelayedOrigin checks the origin claim of the wrapped sub-message
// instead of the top-level envelope. Used by transports that forward an
// inner message on behalf of a third party.
func ValidateRelayedOrigin(env *protocol.Envelope, trustedOrigin string, opts Options) Result {
	claimed, present := env.RelayedOrigin()

	return validate(claimed, present, trustedOrigin, opts)
}

func validate(claimed string, present bool, trustedOrigin string, opts Options) Result {
	ctx := baseContext(opts)
	if present {
		ctx["claimedOrigin"] = claimed
	}
	if trustedOrigin != "" {
		ctx["trustedOrigin"] = trustedOrigin
	}

	if !present {
		if opts.StrictOriginRequired {
			return failure(errors.ErrOriginRequired(), ctx)
		}

		return Result{Valid: true, Context: ctx}
	}

	if trustedOrigin == "" {
		// Nothing to compare against. Outside strict mode this is a
		// non-browser context and the claim is advisory only.
		if opts.StrictOriginRequired {
			return failure(errors.ErrOriginRequired(), ctx)
		}

		return Result{Valid: true, Context: ctx}
	}

	if !originsEqual(claimed, trustedOrigin) {
		return failure(errors.ErrOriginMismatch(claimed, trustedOrigin), ctx)
	}

	return Result{Valid: true, Context: ctx}
}

func failure(err *errors.GateError, ctx map[string]interface{}) Result {
	for k, v := range ctx {
		err.WithContext(k, v)
	}

	return Result{Valid: false, Err: err, Context: ctx}
}

func baseContext(opts Options) map[string]interface{} {
	ctx := make(map[string]interface{}, len(opts.AdditionalContext)+3)
	ctx["transportType"] = opts.TransportType
	for k, v := range opts.AdditionalContext {
		ctx[k] = v
	}

	return ctx
}

// originsEqual compares two origins. Scheme and host compare
// case-insensitively per RFC 3986; a trailing slash is ignored. Anything
// that does not parse falls back to exact string comparison.
func originsEqual(a, b string) bool {
	if a == b {
		return true
	}

	return normalizeOrigin(a) == normalizeOrigin(b)
}

func normalizeOrigin(origin string) string {
	trimmed := strings.TrimSuffix(origin, "/")

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return trimmed
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// ResolveSelfOrigin returns the caller's own reported origin when the host
// exposes one, otherwise the empty string. Never fails.
func ResolveSelfOrigin() string {
	self := os.Getenv(SelfOriginEnv)
	if self == "" {
		return ""
	}

	return normalizeOrigin(self)
}

// IsInteractiveContext reports whether a browser-like context is present,
// i.e. whether ResolveSelfOrigin returns anything meaningful.
func IsInteractiveContext() bool {
	return os.Getenv(SelfOriginEnv) != ""
}
