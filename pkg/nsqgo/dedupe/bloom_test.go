package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAndAddFirstSeenIsFalse(t *testing.T) {
	s := New(1<<16, 4)
	assert.False(t, s.ContainsAndAdd("t", "c", "msg-1"))
	assert.True(t, s.ContainsAndAdd("t", "c", "msg-1"))
}

func TestContainsAndAddDistinguishesKeys(t *testing.T) {
	s := New(1<<16, 4)
	assert.False(t, s.ContainsAndAdd("t", "c", "msg-1"))
	assert.False(t, s.ContainsAndAdd("t", "c", "msg-2"))
	assert.False(t, s.ContainsAndAdd("t", "other-channel", "msg-1"))
}

func TestEraseAllowsReentry(t *testing.T) {
	s := New(1<<16, 4)
	assert.False(t, s.ContainsAndAdd("t", "c", "msg-1"))
	assert.True(t, s.ContainsAndAdd("t", "c", "msg-1"))

	// each ContainsAndAdd above counted the key once, so it takes two
	// Erase calls to bring its positions back to zero
	s.Erase("t", "c", "msg-1")
	s.Erase("t", "c", "msg-1")
	assert.False(t, s.ContainsAndAdd("t", "c", "msg-1"))
}

func TestEraseDoesNotClearABitStillHeldByAnotherKey(t *testing.T) {
	// size=1 forces every key onto the same single bit, a deterministic
	// stand-in for a hash collision between unrelated keys.
	s := New(1, 1)

	assert.False(t, s.ContainsAndAdd("t", "c", "a"))
	assert.True(t, s.ContainsAndAdd("t", "c", "b")) // shares a's bit, count now 2

	s.Erase("t", "c", "a") // count drops to 1, bit must stay set
	assert.True(t, s.bits.Test(0))

	s.Erase("t", "c", "b") // count drops to 0, bit clears
	assert.False(t, s.bits.Test(0))
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(0, 0)
	assert.Equal(t, uint64(1<<20), s.size)
	assert.Equal(t, 4, s.hashes)
}
