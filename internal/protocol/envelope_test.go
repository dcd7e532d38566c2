package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope_FlatClaim(t *testing.T) {
	env := DecodeEnvelope([]byte(`{"_context":{"origin":"https://a.com"}}`))

	require.NotNil(t, env)
	claimed, present := env.ClaimedOrigin()
	assert.True(t, present)
	assert.Equal(t, "https://a.com", claimed)
}

func TestDecodeEnvelope_NoClaim(t *testing.T) {
	env := DecodeEnvelope([]byte(`{"payload":{"method":"wallet_discover"}}`))

	require.NotNil(t, env)
	_, present := env.ClaimedOrigin()
	assert.False(t, present)
}

func TestDecodeEnvelope_EmptyClaimIsPresent(t *testing.T) {
	env := DecodeEnvelope([]byte(`{"_context":{"origin":""}}`))

	require.NotNil(t, env)
	claimed, present := env.ClaimedOrigin()
	assert.True(t, present)
	assert.Equal(t, "", claimed)
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	// Parse failure is "no claim present", never an error.
	for _, raw := range []string{`{`, `[]`, `"origin"`, ``} {
		env := DecodeEnvelope([]byte(raw))
		if env != nil {
			_, present := env.ClaimedOrigin()
			assert.False(t, present, "input %q", raw)
		}
	}
}

func TestDecodeEnvelope_RelayedClaim(t *testing.T) {
	env := DecodeEnvelope([]byte(`{"message":{"_context":{"origin":"https://inner.example"}}}`))

	require.NotNil(t, env)
	claimed, present := env.RelayedOrigin()
	assert.True(t, present)
	assert.Equal(t, "https://inner.example", claimed)

	_, present = env.ClaimedOrigin()
	assert.False(t, present)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	env := NewEnvelope([]byte(`{"method":"wallet_connect"}`)).WithOrigin("https://a.com")

	data, err := env.Encode()
	require.NoError(t, err)

	decoded := DecodeEnvelope(data)
	require.NotNil(t, decoded)
	assert.Equal(t, env.ID, decoded.ID)

	claimed, present := decoded.ClaimedOrigin()
	assert.True(t, present)
	assert.Equal(t, "https://a.com", claimed)
}

func TestNewRequest_AssignsID(t *testing.T) {
	first := NewRequest("wallet_sign", nil)
	second := NewRequest("wallet_sign", nil)

	assert.Equal(t, Version, first.JSONRPC)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
}
