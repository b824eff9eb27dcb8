package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kswpuk/portal-api/internal/allocation"
)

func TestAllocationTextsMatchNotifyingStates(t *testing.T) {
	// Every state that reaches the topic must have wording, and nothing else
	// should be listed.
	for state := range allocationTexts {
		assert.True(t, allocation.Notifies(state), "text defined for silent state %s", state)
	}

	for _, state := range []string{
		allocation.StateAllocated, allocation.StateReserve, allocation.StateNotAllocated,
		allocation.StateDroppedOut, allocation.StateNoShow,
	} {
		text, ok := allocationTexts[state]
		require.True(t, ok, "no wording for notifying state %s", state)
		assert.NotEmpty(t, text.Title)
		assert.NotEmpty(t, text.Body)
	}
}
