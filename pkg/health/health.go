// Package health tracks the reachability of a storage array over time,
// so callers can refuse new connection work while the array is away
// instead of piling one-shot recoveries onto a dead session.
package health

import (
	"context"
	stderr "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flashconn/flashconn/pkg/errors"
)

// State is the tracker's verdict on the array.
type State int

const (
	// StateHealthy indicates requests are succeeding.
	StateHealthy State = iota

	// StateDegraded indicates requests have started failing but the
	// threshold for giving up has not been reached.
	StateDegraded

	// StateUnavailable indicates the array is considered down.
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// CheckFunc probes the array once. The tracker never retries a probe;
// it only counts outcomes.
type CheckFunc func(ctx context.Context) error

// StateChangeCallback is invoked when the tracker's verdict changes.
type StateChangeCallback func(oldState, newState State, err error)

// Config configures the tracker's thresholds.
type Config struct {
	// ErrorThreshold is the number of consecutive failures before the
	// array is considered degraded.
	ErrorThreshold int `yaml:"error_threshold"`

	// UnavailableThreshold is the number of consecutive failures before
	// the array is considered down.
	UnavailableThreshold int `yaml:"unavailable_threshold"`

	// CheckInterval is the probe period for Run.
	CheckInterval time.Duration `yaml:"check_interval"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold:       3,
		UnavailableThreshold: 10,
		CheckInterval:        30 * time.Second,
	}
}

// Tracker counts consecutive probe outcomes and derives a state.
type Tracker struct {
	config Config
	logger *slog.Logger

	mu                sync.RWMutex
	state             State
	consecutiveErrors int
	lastError         error
	lastStateChange   time.Time
	lastCheck         time.Time
	callbacks         []StateChangeCallback
}

// NewTracker creates a tracker in the healthy state.
func NewTracker(config Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		config:          config,
		logger:          logger,
		state:           StateHealthy,
		lastStateChange: time.Now(),
	}
}

// OnStateChange registers a callback for verdict changes.
func (t *Tracker) OnStateChange(cb StateChangeCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, cb)
}

// RecordSuccess records a successful array operation. A single success
// clears the verdict back to healthy.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	old := t.state
	t.consecutiveErrors = 0
	t.lastError = nil
	t.lastCheck = time.Now()
	if t.state != StateHealthy {
		t.transition(StateHealthy)
	}
	cbs := t.snapshotCallbacks()
	t.mu.Unlock()

	if old != StateHealthy {
		t.logger.Info("array recovered", "previous_state", old.String())
		for _, cb := range cbs {
			cb(old, StateHealthy, nil)
		}
	}
}

// RecordError records a failed array operation. An authentication
// failure marks the array unavailable immediately: the session layer
// already spent its one re-auth attempt before surfacing it.
func (t *Tracker) RecordError(err error) {
	t.mu.Lock()
	old := t.state
	t.consecutiveErrors++
	t.lastError = err
	t.lastCheck = time.Now()

	newState := t.state
	switch {
	case isAuthFailure(err):
		newState = StateUnavailable
	case t.consecutiveErrors >= t.config.UnavailableThreshold:
		newState = StateUnavailable
	case t.consecutiveErrors >= t.config.ErrorThreshold:
		newState = StateDegraded
	}
	if newState != old {
		t.transition(newState)
	}
	cbs := t.snapshotCallbacks()
	t.mu.Unlock()

	if newState != old {
		t.logger.Warn("array state changed",
			"old_state", old.String(), "new_state", newState.String(), "error", err)
		for _, cb := range cbs {
			cb(old, newState, err)
		}
	}
}

// State returns the current verdict.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Available reports whether new connection work should be attempted.
func (t *Tracker) Available() bool {
	return t.State() != StateUnavailable
}

// LastError returns the most recent recorded error, nil when healthy.
func (t *Tracker) LastError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastError
}

// ConsecutiveErrors returns the current failure streak length.
func (t *Tracker) ConsecutiveErrors() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.consecutiveErrors
}

// Run probes the array at the configured interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, check CheckFunc) {
	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := check(ctx); err != nil {
				t.RecordError(err)
			} else {
				t.RecordSuccess()
			}
		}
	}
}

func (t *Tracker) transition(newState State) {
	t.state = newState
	t.lastStateChange = time.Now()
}

func (t *Tracker) snapshotCallbacks() []StateChangeCallback {
	return append([]StateChangeCallback(nil), t.callbacks...)
}

func isAuthFailure(err error) bool {
	var e *errors.Error
	if stderr.As(err, &e) {
		return e.Code == errors.ErrCodeAuthenticationFailed
	}
	return false
}
