package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifies(t *testing.T) {
	notifying := []string{StateAllocated, StateReserve, StateNotAllocated, StateDroppedOut, StateNoShow}
	for _, state := range notifying {
		assert.True(t, Notifies(state), "state %s should notify", state)
	}

	silent := []string{StateUnregistered, StateRegistered, StateAttended, "BOGUS", ""}
	for _, state := range silent {
		assert.False(t, Notifies(state), "state %s should be silent", state)
	}
}

func TestValidStates(t *testing.T) {
	for _, state := range []string{
		StateRegistered, StateAllocated, StateReserve,
		StateNotAllocated, StateDroppedOut, StateNoShow, StateAttended,
	} {
		assert.True(t, validStates[state], "state %s should be writable", state)
	}

	assert.False(t, validStates[StateUnregistered], "UNREGISTERED is implicit, never written")
	assert.False(t, validStates["BOGUS"])
}
