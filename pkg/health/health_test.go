package health

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flashconn/flashconn/pkg/errors"
)

func testConfig() Config {
	return Config{ErrorThreshold: 3, UnavailableThreshold: 5}
}

func TestStateTransitions(t *testing.T) {
	tr := NewTracker(testConfig(), nil)
	assert.Equal(t, StateHealthy, tr.State())

	tr.RecordError(fmt.Errorf("timeout"))
	tr.RecordError(fmt.Errorf("timeout"))
	assert.Equal(t, StateHealthy, tr.State(), "below threshold stays healthy")

	tr.RecordError(fmt.Errorf("timeout"))
	assert.Equal(t, StateDegraded, tr.State())

	tr.RecordError(fmt.Errorf("timeout"))
	tr.RecordError(fmt.Errorf("timeout"))
	assert.Equal(t, StateUnavailable, tr.State())
	assert.False(t, tr.Available())
}

func TestSingleSuccessRecovers(t *testing.T) {
	tr := NewTracker(testConfig(), nil)
	for i := 0; i < 5; i++ {
		tr.RecordError(fmt.Errorf("timeout"))
	}
	assert.Equal(t, StateUnavailable, tr.State())

	tr.RecordSuccess()
	assert.Equal(t, StateHealthy, tr.State())
	assert.True(t, tr.Available())
	assert.Equal(t, 0, tr.ConsecutiveErrors())
	assert.Nil(t, tr.LastError())
}

func TestAuthFailureIsImmediatelyUnavailable(t *testing.T) {
	tr := NewTracker(testConfig(), nil)
	tr.RecordError(errors.New(errors.ErrCodeAuthenticationFailed, "session renewal rejected"))
	assert.Equal(t, StateUnavailable, tr.State())
}

func TestStateChangeCallbacks(t *testing.T) {
	tr := NewTracker(testConfig(), nil)

	var transitions [][2]State
	tr.OnStateChange(func(oldState, newState State, err error) {
		transitions = append(transitions, [2]State{oldState, newState})
	})

	for i := 0; i < 3; i++ {
		tr.RecordError(fmt.Errorf("timeout"))
	}
	tr.RecordSuccess()

	assert.Equal(t, [][2]State{
		{StateHealthy, StateDegraded},
		{StateDegraded, StateHealthy},
	}, transitions)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "healthy", StateHealthy.String())
	assert.Equal(t, "degraded", StateDegraded.String())
	assert.Equal(t, "unavailable", StateUnavailable.String())
	assert.Equal(t, "unknown", State(42).String())
}
