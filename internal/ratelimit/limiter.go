// Package ratelimit implements per-key admission control for sensitive
// wallet operations (connect, sign, discovery). A Limiter tracks fixed
// windows with a burst allowance per key, escalates repeat offenders
// through exponential penalties, and hard-blocks keys that keep violating.
// Denials are structured results, never errors: the caller learns exactly
// how long to wait and whether retrying sooner is pointless.
package ratelimit

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/walletgate/internal/logging"
)

// Deny reasons reported in Result.Reason.
const (
	ReasonRateLimit  = "rate_limit"
	ReasonBurstLimit = "burst_limit"
	ReasonBlocked    = "blocked"
)

// globalKey is used when neither per-origin nor per-operation tracking is
// enabled; all callers then share a single bucket.
const globalKey = "global"

// cleanupInterval is how often the idle-entry sweep runs. It is fixed and
// independent of any single key's window.
const cleanupInterval = time.Minute

// Config holds admission-control configuration for one limiter instance.
type Config struct {
	// MaxRequests is the number of requests allowed per window before a
	// check counts as a violation.
	MaxRequests int

	// Window is the fixed window length.
	Window time.Duration

	// BurstSize is the immediate-use allowance at the start of a fresh
	// window. Burst allows bypass steady-state counting.
	BurstSize int

	// PenaltyMultiplier is the exponential backoff base for escalating
	// penalties. Defaults to 2.
	PenaltyMultiplier float64

	// MaxPenalty caps a single penalty duration. Defaults to 5 minutes.
	MaxPenalty time.Duration

	// BlockDuration is how long a key stays hard-blocked once the
	// escalation threshold is hit. Defaults to 1 hour.
	BlockDuration time.Duration

	// ViolationsBeforeBlock is the violation count that triggers a hard
	// block. Defaults to 5.
	ViolationsBeforeBlock int

	// PerOrigin includes the origin in the rate-limit key.
	PerOrigin bool

	// PerOperation includes the operation in the rate-limit key.
	PerOperation bool
}

// DefaultConfig returns the general-API configuration: 100 requests per
// minute with a burst of 20, keyed per origin.
func DefaultConfig() *Config {
	return &Config{
		MaxRequests:           100,
		Window:                time.Minute,
		BurstSize:             20,
		PenaltyMultiplier:     2,
		MaxPenalty:            5 * time.Minute,
		BlockDuration:         time.Hour,
		ViolationsBeforeBlock: 5,
		PerOrigin:             true,
	}
}

// normalize fills unset escalation settings with their defaults. A zero
// BurstSize disables the burst fast path; a zero MaxRequests makes the
// policy burst-only, denying every steady-state request with burst_limit.
func (c *Config) normalize() {
	if c.MaxRequests < 0 {
		c.MaxRequests = 100
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.BurstSize < 0 {
		c.BurstSize = c.MaxRequests / 2
	}
	if c.PenaltyMultiplier < 1 {
		c.PenaltyMultiplier = 2
	}
	if c.MaxPenalty <= 0 {
		c.MaxPenalty = 5 * time.Minute
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = time.Hour
	}
	if c.ViolationsBeforeBlock <= 0 {
		c.ViolationsBeforeBlock = 5
	}
}

// Entry is the mutable per-key state. Entries are created lazily on first
// check and removed by Reset, Clear, or the idle sweep.
type Entry struct {
	Requests     int
	WindowStart  time.Time
	Violations   int
	BurstTokens  int
	PenaltyEnd   time.Time
	BlockedUntil time.Time
	LastRequest  time.Time
}

// Result represents the outcome of an admission check.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
	Reason     string
}

// Limiter is a stateful per-key admission controller. A single mutex covers
// the entry map and every entry, which keeps the check precedence atomic on
// multi-threaded hosts; on the event-driven hosts the SDK targets the lock
// is uncontended.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*Entry
	config  *Config
	logger  logging.Logger
	metrics *Metrics
	cleaner *time.Ticker
	stop    chan struct{}
}

// NewLimiter creates a limiter with the given configuration and starts the
// background idle-entry sweep. Call Destroy exactly once when done.
func NewLimiter(config *Config, logger logging.Logger) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	l := &Limiter{
		entries: make(map[string]*Entry),
		config:  config,
		logger:  logger.WithComponent("ratelimit"),
		stop:    make(chan struct{}),
	}

	l.cleaner = time.NewTicker(cleanupInterval)
	go l.sweepIdleEntries()

	return l
}

// WithMetrics attaches a metrics recorder. Must be called before the first
// Check; returns the limiter for chaining.
func (l *Limiter) WithMetrics(m *Metrics) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = m

	return l
}

// Check decides whether one more request for (origin, operation) may
// proceed right now. It is the only mutation path for entries besides
// Reset/Clear and the sweep.
func (l *Limiter) Check(origin, operation string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.deriveKey(origin, operation)
	now := time.Now()

	entry, exists := l.entries[key]
	if !exists {
		entry = &Entry{
			WindowStart: now,
			BurstTokens: l.config.BurstSize,
		}
		l.entries[key] = entry
		l.recordEntryCount()
	}
	entry.LastRequest = now

	// Hard block dominates everything, including window state.
	if !entry.BlockedUntil.IsZero() && now.Before(entry.BlockedUntil) {
		return l.deny(entry, now, ReasonBlocked, entry.BlockedUntil.Sub(now))
	}

	// A check during an active penalty is itself a violation: hammering
	// while penalized digs the key deeper.
	if !entry.PenaltyEnd.IsZero() && now.Before(entry.PenaltyEnd) {
		return l.recordViolation(key, entry, now, ReasonRateLimit)
	}

	// Window rollover refills burst tokens.
	if !now.Before(entry.WindowStart.Add(l.config.Window)) {
		entry.WindowStart = now
		entry.Requests = 0
		entry.BurstTokens = l.config.BurstSize
	}

	// Burst fast path: only before any steady-state request has been
	// counted in this window. Burst allows bypass steady-state counting.
	if entry.Requests == 0 && entry.BurstTokens > 0 {
		entry.BurstTokens--

		return l.allow(entry, now)
	}

	if entry.Requests >= l.config.MaxRequests {
		reason := ReasonRateLimit
		if entry.Requests == 0 {
			// Burst exhausted before any steady-state allowance exists.
			reason = ReasonBurstLimit
		}

		return l.recordViolation(key, entry, now, reason)
	}

	entry.Requests++

	return l.allow(entry, now)
}

func (l *Limiter) allow(entry *Entry, now time.Time) Result {
	return Result{
		Allowed:    true,
		Remaining:  l.config.MaxRequests - entry.Requests,
		ResetAfter: windowRemaining(entry, now, l.config.Window),
	}
}

func (l *Limiter) deny(entry *Entry, now time.Time, reason string, retryAfter time.Duration) Result {
	if l.metrics != nil {
		l.metrics.RecordDenial(reason)
	}

	return Result{
		Allowed:    false,
		Remaining:  0,
		ResetAfter: windowRemaining(entry, now, l.config.Window),
		RetryAfter: retryAfter,
		Reason:     reason,
	}
}

// recordViolation applies the escalation ladder: penalties grow
// exponentially with the violation count until the hard-block threshold,
// after which every check is denied until BlockedUntil passes.
func (l *Limiter) recordViolation(key string, entry *Entry, now time.Time, reason string) Result {
	entry.Violations++
	if l.metrics != nil {
		l.metrics.RecordViolation()
	}

	if entry.Violations >= l.config.ViolationsBeforeBlock {
		entry.BlockedUntil = now.Add(l.config.BlockDuration)
		l.logger.Warn(context.Background(), nil,
			"Rate limit key hard-blocked",
			"key", key,
			"violations", entry.Violations,
			"block_duration", l.config.BlockDuration.String())

		return l.deny(entry, now, ReasonBlocked, l.config.BlockDuration)
	}

	penalty := l.penaltyFor(entry.Violations)
	entry.PenaltyEnd = now.Add(penalty)

	return l.deny(entry, now, reason, penalty)
}

// penaltyFor computes window * multiplier^(violations-1), capped at
// MaxPenalty.
func (l *Limiter) penaltyFor(violations int) time.Duration {
	scale := math.Pow(l.config.PenaltyMultiplier, float64(violations-1))
	penalty := time.Duration(float64(l.config.Window) * scale)
	if penalty > l.config.MaxPenalty || penalty < 0 {
		penalty = l.config.MaxPenalty
	}

	return penalty
}

func windowRemaining(entry *Entry, now time.Time, window time.Duration) time.Duration {
	remaining := entry.WindowStart.Add(window).Sub(now)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// deriveKey builds the bucket key from the configured granularity. The
// caller must be aware this degrades to one global bucket when both
// per-origin and per-operation tracking are disabled.
func (l *Limiter) deriveKey(origin, operation string) string {
	var parts []string
	if l.config.PerOrigin {
		parts = append(parts, origin)
	}
	if l.config.PerOperation && operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return globalKey
	}

	return strings.Join(parts, ":")
}

// Reset deletes the entry for a key, forgiving prior violations. Typically
// called after a successful authentication.
func (l *Limiter) Reset(origin, operation string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, l.deriveKey(origin, operation))
	l.recordEntryCount()
}

// Clear deletes all entries.
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]*Entry)
	l.recordEntryCount()
}

// GetState returns a copy of the entry for a key, for diagnostics and
// tests.
func (l *Limiter) GetState(origin, operation string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[l.deriveKey(origin, operation)]
	if !ok {
		return Entry{}, false
	}

	return *entry, true
}

// GetAllEntries returns a copy of every entry keyed by derived key.
func (l *Limiter) GetAllEntries() map[string]Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make(map[string]Entry, len(l.entries))
	for key, entry := range l.entries {
		snapshot[key] = *entry
	}

	return snapshot
}

// Destroy stops the periodic cleanup and releases all entries. Must be
// called exactly once when the limiter is no longer needed.
func (l *Limiter) Destroy() {
	select {
	case l.stop <- struct{}{}:
	default:
	}

	l.Clear()
}

// sweepIdleEntries removes entries idle for more than two window lengths,
// bounding memory growth from abandoned keys.
func (l *Limiter) sweepIdleEntries() {
	defer close(l.stop)

	for {
		select {
		case <-l.cleaner.C:
			l.performSweep()
		case <-l.stop:
			l.cleaner.Stop()

			return
		}
	}
}

func (l *Limiter) performSweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	idleThreshold := 2 * l.config.Window

	for key, entry := range l.entries {
		if now.Sub(entry.LastRequest) > idleThreshold {
			delete(l.entries, key)
		}
	}
	l.recordEntryCount()
}

// recordEntryCount must be called with the mutex held.
func (l *Limiter) recordEntryCount() {
	if l.metrics != nil {
		l.metrics.SetActiveEntries(len(l.entries))
	}
}
