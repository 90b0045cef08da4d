package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New("store", WithFailureThreshold(3))

	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure(), "third consecutive failure should open the circuit")
	assert.True(t, b.IsOpen())

	// Further failures keep it open without another transition.
	assert.False(t, b.RecordFailure())
	assert.True(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	b := New("store", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.False(t, b.RecordFailure())
	assert.False(t, b.IsOpen())
}

func TestBreaker_ClosesAfterConsecutiveSuccesses(t *testing.T) {
	b := New("store", WithFailureThreshold(1), WithSuccessThreshold(2))

	assert.True(t, b.RecordFailure())
	assert.True(t, b.IsOpen())

	assert.False(t, b.RecordSuccess())
	assert.True(t, b.RecordSuccess(), "second success while open should close the circuit")
	assert.False(t, b.IsOpen())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("store", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
}
