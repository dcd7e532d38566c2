package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/walletgate/internal/errors"
	"github.com/conneroisu/walletgate/internal/ratelimit"
)

func validConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:      "socket",
			SocketURL: "wss://relay.example/ws",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfig_ValidateUnknownKind(t *testing.T) {
	config := validConfig()
	config.Transport.Kind = "carrier-pigeon"

	err := config.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))
	assert.False(t, errors.IsRecoverable(err))
}

func TestConfig_ValidateSocketNeedsURL(t *testing.T) {
	config := validConfig()
	config.Transport.SocketURL = ""

	require.Error(t, config.Validate())
}

func TestConfig_ValidateRelayNeedsTrustedOrigin(t *testing.T) {
	config := &Config{Transport: TransportConfig{Kind: "relay"}}
	require.Error(t, config.Validate())

	config.Transport.TrustedOrigin = "https://wallet.example"
	require.NoError(t, config.Validate())
}

func TestConfig_ValidateRejectsNegativePolicy(t *testing.T) {
	config := validConfig()
	config.RateLimit.Policies = map[string]Policy{
		"sign": {MaxRequests: -1, WindowMs: 60000},
	}

	err := config.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))
}

func TestPolicy_ToLimiterConfig(t *testing.T) {
	perOrigin := false
	policy := Policy{
		MaxRequests:           7,
		WindowMs:              1500,
		BurstSize:             2,
		PenaltyMultiplier:     3,
		MaxPenaltyMs:          9000,
		BlockDurationMs:       60000,
		ViolationsBeforeBlock: 4,
		PerOrigin:             &perOrigin,
		PerOperation:          true,
	}

	config := policy.ToLimiterConfig()
	assert.Equal(t, 7, config.MaxRequests)
	assert.Equal(t, 1500*time.Millisecond, config.Window)
	assert.Equal(t, 2, config.BurstSize)
	assert.Equal(t, 3.0, config.PenaltyMultiplier)
	assert.Equal(t, 9*time.Second, config.MaxPenalty)
	assert.Equal(t, time.Minute, config.BlockDuration)
	assert.Equal(t, 4, config.ViolationsBeforeBlock)
	assert.False(t, config.PerOrigin)
	assert.True(t, config.PerOperation)
}

func TestPolicy_PerOriginDefaultsOn(t *testing.T) {
	config := Policy{MaxRequests: 1, WindowMs: 1000}.ToLimiterConfig()
	assert.True(t, config.PerOrigin)
}

func TestConfig_EffectivePolicy(t *testing.T) {
	config := validConfig()
	config.RateLimit.Policies = map[string]Policy{
		ratelimit.OpSign: {MaxRequests: 3, WindowMs: 10000},
	}

	// Configured operations win.
	signing := config.EffectivePolicy(ratelimit.OpSign)
	assert.Equal(t, 3, signing.MaxRequests)
	assert.Equal(t, 10*time.Second, signing.Window)

	// Everything else falls back to the presets.
	connect := config.EffectivePolicy(ratelimit.OpConnect)
	assert.Equal(t, ratelimit.ConnectPolicy().MaxRequests, connect.MaxRequests)
}

const policyYAML = `
discovery:
  max_requests: 10
  window_ms: 60000
  burst_size: 3
sign:
  max_requests: 20
  window_ms: 60000
  burst_size: 5
  per_operation: true
`

func writePolicyFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "policies.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadPolicyFile(t *testing.T) {
	path := writePolicyFile(t, t.TempDir(), policyYAML)

	policies, err := LoadPolicyFile(path)
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, 10, policies["discovery"].MaxRequests)
	assert.True(t, policies["sign"].PerOperation)
}

func TestLoadPolicyFile_Malformed(t *testing.T) {
	path := writePolicyFile(t, t.TempDir(), "{not yaml")

	_, err := LoadPolicyFile(path)
	require.Error(t, err)
}

func TestLoadPolicyFile_Missing(t *testing.T) {
	_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestPolicyWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writePolicyFile(t, dir, policyYAML)

	watcher, err := NewPolicyWatcher(path, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	reloads := make(chan map[string]Policy, 4)
	watcher.OnChange(func(policies map[string]Policy) { reloads <- policies })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)

	// Give the watch goroutine a beat before mutating the file.
	time.Sleep(100 * time.Millisecond)

	updated := `
sign:
  max_requests: 2
  window_ms: 30000
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case policies := <-reloads:
		require.Contains(t, policies, "sign")
		assert.Equal(t, 2, policies["sign"].MaxRequests)
	case <-time.After(5 * time.Second):
		t.Fatal("policy reload never fired")
	}
}

func TestPolicyWatcher_KeepsPoliciesOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := writePolicyFile(t, dir, policyYAML)

	watcher, err := NewPolicyWatcher(path, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	reloads := make(chan map[string]Policy, 4)
	watcher.OnChange(func(policies map[string]Policy) { reloads <- policies })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	// A broken write must not reach the handlers.
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	select {
	case <-reloads:
		t.Fatal("parse failure must not trigger a reload")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestPolicyWatcher_StopIdempotent(t *testing.T) {
	path := writePolicyFile(t, t.TempDir(), policyYAML)

	watcher, err := NewPolicyWatcher(path, nil)
	require.NoError(t, err)

	require.NoError(t, watcher.Stop())
	require.NoError(t, watcher.Stop())
}
