package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSingleInstance(t *testing.T) {
	guard, err := AcquireSingleInstance("restbreak-test-lock")
	require.NoError(t, err)
	defer guard.Release()

	assert.NotEmpty(t, guard.Address())

	_, err = AcquireSingleInstance("restbreak-test-lock")
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestReleaseAllowsReacquire(t *testing.T) {
	guard, err := AcquireSingleInstance("restbreak-test-lock-2")
	require.NoError(t, err)
	require.NoError(t, guard.Release())

	again, err := AcquireSingleInstance("restbreak-test-lock-2")
	require.NoError(t, err)
	assert.NoError(t, again.Release())
}

func TestReleaseNilGuard(t *testing.T) {
	var guard *InstanceGuard
	assert.NoError(t, guard.Release())
	assert.Empty(t, guard.Address())
}

func TestPortFromNameIsStable(t *testing.T) {
	first := portFromName("restbreak")
	second := portFromName("restbreak")
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 20000)
	assert.LessOrEqual(t, first, 39999)
}
