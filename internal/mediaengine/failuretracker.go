package mediaengine

import (
	"sync"
	"time"
)

// FailureTracker is a per-contentId circuit breaker over CreateChannel
// attempts, adapted from the teacher's EngineFailureTracker: open the
// circuit after a run of consecutive failures, hold it open for a cooldown,
// then allow half-open probes until the next recorded success or failure
// closes or reopens it. The provisioner consults it before
// starting the retry envelope so a contentId already in a bad state fails
// fast instead of exhausting its own retry budget again immediately.
type FailureTracker struct {
	mu                  sync.Mutex
	states              map[string]*failureState
	maxConsecutiveFails int
	cooldownPeriod      time.Duration
}

type failureState struct {
	consecutiveFailures int
	lastFailureTime     time.Time
	circuitOpen         bool
	circuitOpenedAt     time.Time
	totalFailures       int
	totalAttempts       int
}

// NewFailureTracker builds a tracker that opens the circuit after
// maxConsecutiveFails and holds it open for cooldown.
func NewFailureTracker(maxConsecutiveFails int, cooldown time.Duration) *FailureTracker {
	return &FailureTracker{
		states:              make(map[string]*failureState),
		maxConsecutiveFails: maxConsecutiveFails,
		cooldownPeriod:      cooldown,
	}
}

// CanAttempt reports whether a CreateChannel call for contentID should
// proceed. It returns false with a reason while the circuit is open and
// the cooldown has not elapsed.
func (t *FailureTracker) CanAttempt(contentID string) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[contentID]
	if !ok {
		return true, ""
	}
	if state.circuitOpen {
		if time.Since(state.circuitOpenedAt) < t.cooldownPeriod {
			return false, "circuit breaker open due to consecutive engine failures"
		}
		// Cooldown elapsed: allow a half-open probe. The circuit only fully
		// closes on the next RecordSuccess, or reopens on the next
		// RecordFailure.
	}
	return true, ""
}

// RecordAttempt tallies an attempt for contentID, creating tracking state
// on first use.
func (t *FailureTracker) RecordAttempt(contentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[contentID]
	if !ok {
		state = &failureState{}
		t.states[contentID] = state
	}
	state.totalAttempts++
}

// RecordSuccess clears the consecutive-failure count and closes the
// circuit for contentID.
func (t *FailureTracker) RecordSuccess(contentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[contentID]
	if !ok {
		return
	}
	state.consecutiveFailures = 0
	state.circuitOpen = false
}

// RecordFailure counts a failure for contentID and opens the circuit once
// maxConsecutiveFails is reached.
func (t *FailureTracker) RecordFailure(contentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[contentID]
	if !ok {
		state = &failureState{}
		t.states[contentID] = state
	}
	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureTime = time.Now()

	if state.consecutiveFailures >= t.maxConsecutiveFails {
		state.circuitOpen = true
		state.circuitOpenedAt = time.Now()
	}
}

// Health reports the current counters for contentID, for diagnostics and
// tests.
func (t *FailureTracker) Health(contentID string) (consecutive, total, attempts int, circuitOpen bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[contentID]
	if !ok {
		return 0, 0, 0, false
	}
	return state.consecutiveFailures, state.totalFailures, state.totalAttempts, state.circuitOpen
}

// Cleanup evicts tracking state for contentIds whose last failure is before
// staleSince, bounding memory for a long-running process. Entries that have
// never recorded a failure are kept.
func (t *FailureTracker) Cleanup(staleSince time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for contentID, state := range t.states {
		if !state.lastFailureTime.IsZero() && state.lastFailureTime.Before(staleSince) {
			delete(t.states, contentID)
		}
	}
}
