package ratelimit

import "time"

// Operation names used as rate-limit keys by the connection and signing
// flows.
const (
	OpDiscovery = "discovery"
	OpConnect   = "connect"
	OpSign      = "sign"
)

// Preset policies by operation sensitivity. Connection establishment is the
// most abusable operation and gets the tightest budget; routine API calls
// the loosest.

// DiscoveryPolicy limits wallet discovery to 10 requests per minute with a
// burst of 3.
func DiscoveryPolicy() *Config {
	return preset(10, 3)
}

// ConnectPolicy limits connection attempts to 5 requests per minute with a
// burst of 2.
func ConnectPolicy() *Config {
	return preset(5, 2)
}

// SigningPolicy limits signature requests to 20 requests per minute with a
// burst of 5.
func SigningPolicy() *Config {
	return preset(20, 5)
}

// GeneralPolicy limits remaining API traffic to 100 requests per minute
// with a burst of 20.
func GeneralPolicy() *Config {
	return preset(100, 20)
}

// PolicyFor maps an operation name to its preset, falling back to the
// general policy for anything unrecognized.
func PolicyFor(operation string) *Config {
	switch operation {
	case OpDiscovery:
		return DiscoveryPolicy()
	case OpConnect:
		return ConnectPolicy()
	case OpSign:
		return SigningPolicy()
	default:
		return GeneralPolicy()
	}
}

// Policies returns every preset keyed by operation name, for diagnostics.
func Policies() map[string]*Config {
	return map[string]*Config{
		OpDiscovery: DiscoveryPolicy(),
		OpConnect:   ConnectPolicy(),
		OpSign:      SigningPolicy(),
		"general":   GeneralPolicy(),
	}
}

func preset(maxRequests, burstSize int) *Config {
	return &Config{
		MaxRequests:           maxRequests,
		Window:                time.Minute,
		BurstSize:             burstSize,
		PenaltyMultiplier:     2,
		MaxPenalty:            5 * time.Minute,
		BlockDuration:         time.Hour,
		ViolationsBeforeBlock: 5,
		PerOrigin:             true,
	}
}
