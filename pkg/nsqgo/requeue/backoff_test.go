package requeue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRequeueGrowsExponentially(t *testing.T) {
	s := New(100*time.Millisecond, 10*time.Second, 2, 0)

	d0 := s.ShouldRequeue(0)
	d1 := s.ShouldRequeue(1)
	d2 := s.ShouldRequeue(2)
	require.NotNil(t, d0)
	require.NotNil(t, d1)
	require.NotNil(t, d2)

	assert.Equal(t, 100*time.Millisecond, *d0)
	assert.Equal(t, 200*time.Millisecond, *d1)
	assert.Equal(t, 400*time.Millisecond, *d2)
}

func TestShouldRequeueCapsAtMaxInterval(t *testing.T) {
	s := New(1*time.Second, 5*time.Second, 2, 0)
	d := s.ShouldRequeue(10)
	require.NotNil(t, d)
	assert.Equal(t, 5*time.Second, *d)
}

func TestShouldRequeueReturnsNilPastMaxAttempts(t *testing.T) {
	s := New(time.Second, time.Minute, 2, 3)
	assert.NotNil(t, s.ShouldRequeue(0))
	assert.NotNil(t, s.ShouldRequeue(2))
	assert.Nil(t, s.ShouldRequeue(3))
	assert.Nil(t, s.ShouldRequeue(100))
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(0, 0, 0, 0)
	assert.Equal(t, time.Second, s.base)
	assert.Equal(t, 5*time.Minute, s.max)
	assert.Equal(t, 1.5, s.multiplier)
	assert.Equal(t, uint16(0), s.maxAttempts)
}
