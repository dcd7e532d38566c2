package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/protocol"
)

func envelopeWithOrigin(origin string) *protocol.Envelope {
	return (&protocol.Envelope{}).WithOrigin(origin)
}

func TestValidateClaimedOrigin_Match(t *testing.T) {
	env := envelopeWithOrigin("https://dapp.example")

	// Valid messages validate identically on every call, with no side effects.
	for range 3 {
		result := ValidateClaimedOrigin(env, "https://dapp.example", Options{TransportType: "relay"})
		assert.True(t, result.Valid)
		assert.Nil(t, result.Err)
	}
}

func TestValidateClaimedOrigin_Mismatch(t *testing.T) {
	env := envelopeWithOrigin("https://a.com")

	result := ValidateClaimedOrigin(env, "https://b.com", Options{TransportType: "relay"})

	require.False(t, result.Valid)
	require.NotNil(t, result.Err)
	assert.Equal(t, errors.ErrCodeOriginMismatch, result.Err.Code)
	assert.Equal(t, "https://a.com", result.Context["claimedOrigin"])
	assert.Equal(t, "https://b.com", result.Context["trustedOrigin"])
	assert.Equal(t, "relay", result.Context["transportType"])
}

func TestValidateClaimedOrigin_NoClaim(t *testing.T) {
	// Absence of a claim is not itself a violation outside strict mode,
	// for all trusted-origin values including none.
	for _, trusted := range []string{"", "https://dapp.example"} {
		result := ValidateClaimedOrigin(&protocol.Envelope{}, trusted, Options{})
		assert.True(t, result.Valid, "trusted=%q", trusted)
		assert.Nil(t, result.Err)
	}
}

func TestValidateClaimedOrigin_NoClaimStrict(t *testing.T) {
	for _, trusted := range []string{"", "https://dapp.example"} {
		result := ValidateClaimedOrigin(&protocol.Envelope{}, trusted, Options{StrictOriginRequired: true})
		require.False(t, result.Valid, "trusted=%q", trusted)
		assert.Equal(t, errors.ErrCodeOriginRequired, result.Err.Code)
	}
}

func TestValidateClaimedOrigin_ClaimWithoutTrusted(t *testing.T) {
	env := envelopeWithOrigin("https://dapp.example")

	result := ValidateClaimedOrigin(env, "", Options{})
	assert.True(t, result.Valid)

	result = ValidateClaimedOrigin(env, "", Options{StrictOriginRequired: true})
	require.False(t, result.Valid)
	assert.Equal(t, errors.ErrCodeOriginRequired, result.Err.Code)
}

func TestValidateClaimedOrigin_EmptyClaimIsAClaim(t *testing.T) {
	// A present-but-empty origin field is a claim, and it cannot match a
	// real trusted origin.
	env := envelopeWithOrigin("")

	result := ValidateClaimedOrigin(env, "https://dapp.example", Options{})
	require.False(t, result.Valid)
	assert.Equal(t, errors.ErrCodeOriginMismatch, result.Err.Code)
}

func TestValidateClaimedOrigin_NilEnvelope(t *testing.T) {
	result := ValidateClaimedOrigin(nil, "https://dapp.example", Options{})
	assert.True(t, result.Valid)
}

func TestValidateClaimedOrigin_AdditionalContext(t *testing.T) {
	env := envelopeWithOrigin("https://a.com")
	opts := Options{
		TransportType:     "socket",
		AdditionalContext: map[string]interface{}{"connection_id": "c1"},
	}

	result := ValidateClaimedOrigin(env, "https://b.com", opts)

	require.False(t, result.Valid)
	assert.Equal(t, "c1", result.Context["connection_id"])
	assert.Equal(t, "c1", result.Err.Context["connection_id"])
}

func TestValidateClaimedOrigin_Normalization(t *testing.T) {
	env := envelopeWithOrigin("HTTPS://Dapp.Example")

	result := ValidateClaimedOrigin(env, "https://dapp.example/", Options{})
	assert.True(t, result.Valid)
}

func TestValidateRelayedOrigin_WrappedClaim(t *testing.T) {
	inner := envelopeWithOrigin("https://a.com")
	wrapped := &protocol.Envelope{Message: inner}

	result := ValidateRelayedOrigin(wrapped, "https://a.com", Options{StrictOriginRequired: true})
	assert.True(t, result.Valid)

	result = ValidateRelayedOrigin(wrapped, "https://b.com", Options{StrictOriginRequired: true})
	require.False(t, result.Valid)
	assert.Equal(t, errors.ErrCodeOriginMismatch, result.Err.Code)
}

func TestValidateRelayedOrigin_MissingClaimStrict(t *testing.T) {
	// Relayed message with no origin claim fails strict validation:
	// stripping the claim is the attack being defended against.
	wrapped := &protocol.Envelope{Message: &protocol.Envelope{}}

	result := ValidateRelayedOrigin(wrapped, "https://a.com", Options{StrictOriginRequired: true})

	require.False(t, result.Valid)
	assert.Equal(t, errors.ErrCodeOriginRequired, result.Err.Code)
}

func TestValidateRelayedOrigin_TopLevelClaimIgnored(t *testing.T) {
	// The relay's own claim must not stand in for the wrapped message's.
	wrapped := envelopeWithOrigin("https://a.com")
	wrapped.Message = &protocol.Envelope{}

	result := ValidateRelayedOrigin(wrapped, "https://a.com", Options{StrictOriginRequired: true})

	require.False(t, result.Valid)
	assert.Equal(t, errors.ErrCodeOriginRequired, result.Err.Code)
}

func TestResolveSelfOrigin(t *testing.T) {
	t.Setenv(SelfOriginEnv, "")
	assert.Equal(t, "", ResolveSelfOrigin())
	assert.False(t, IsInteractiveContext())

	t.Setenv(SelfOriginEnv, "https://Wallet.Example/")
	assert.Equal(t, "https://wallet.example", ResolveSelfOrigin())
	assert.True(t, IsInteractiveContext())
}

func TestValidResultNeverCarriesError(t *testing.T) {
	envs := []*protocol.Envelope{
		nil,
		{},
		envelopeWithOrigin("https://dapp.example"),
	}

	for _, env := range envs {
		result := ValidateClaimedOrigin(env, "https://dapp.example", Options{})
		if result.Valid {
			assert.Nil(t, result.Err)
		}
	}
}
