package voice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInFlightRejectsSecondRequest(t *testing.T) {
	f := NewInFlight()

	release, ok := f.TryStart("g1")
	require.True(t, ok)
	assert.True(t, f.Active("g1"))

	_, ok = f.TryStart("g1")
	assert.False(t, ok)

	_, ok = f.TryStart("g2")
	assert.True(t, ok, "other guilds are independent")

	release()
	release()
	assert.False(t, f.Active("g1"))

	_, ok = f.TryStart("g1")
	assert.True(t, ok)
}

func TestSynthesisErrorMatchesSentinelAndCause(t *testing.T) {
	err := NewSynthesisError("text", errBoom)
	assert.True(t, errors.Is(err, ErrSynthesisFailed))
	assert.True(t, errors.Is(err, errBoom))
	assert.Contains(t, err.Error(), "boom")
}
