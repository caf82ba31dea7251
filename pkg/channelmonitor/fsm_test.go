package channelmonitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasKind(actions []Action, k ActionKind) bool {
	for _, a := range actions {
		if a.Kind == k {
			return true
		}
	}
	return false
}

func TestScenarioFiveLifecycle(t *testing.T) {
	m := New(Config{WaitTimeUs: 1000, OpenTimeoutUs: 1000})

	actions := m.Start()
	require.True(t, hasKind(actions, ActionOpenChannel))
	assert.Equal(t, Opening, m.State())

	actions = m.OpenFailure()
	require.True(t, hasKind(actions, ActionStartWaitTimer))
	assert.Equal(t, Waiting, m.State())

	actions = m.Poll(1000)
	require.True(t, hasKind(actions, ActionOpenChannel))
	assert.Equal(t, Opening, m.State())

	actions = m.OpenSuccess()
	require.True(t, hasKind(actions, ActionNotifyLinkUp))
	assert.Equal(t, Open, m.State())

	actions = m.Close()
	require.True(t, hasKind(actions, ActionCloseChannel))
	assert.Equal(t, Closing, m.State())
}

func TestOpenFromOpenAutoRestarts(t *testing.T) {
	m := New(Config{WaitTimeUs: 1000, OpenTimeoutUs: 1000})
	m.Start()
	m.OpenSuccess()
	require.Equal(t, Open, m.State())

	actions := m.LayerClose()
	require.True(t, hasKind(actions, ActionOpenChannel))
	assert.Equal(t, Opening, m.State())
}

func TestShutdownFromOpenTerminatesOnLayerClose(t *testing.T) {
	m := New(Config{WaitTimeUs: 1000, OpenTimeoutUs: 1000})
	m.Start()
	m.OpenSuccess()
	m.Shutdown()
	assert.Equal(t, ShuttingDown, m.State())

	actions := m.LayerClose()
	require.True(t, hasKind(actions, ActionNotifyLinkDown))
	assert.Equal(t, Shutdown, m.State())
}

func TestStartOneTerminatesOnOpenFailure(t *testing.T) {
	m := New(Config{WaitTimeUs: 1000, OpenTimeoutUs: 1000})
	m.StartOne()
	m.OpenFailure()
	assert.Equal(t, Shutdown, m.State())
}

func TestOpenTimeoutRetriesOpening(t *testing.T) {
	m := New(Config{WaitTimeUs: 1000, OpenTimeoutUs: 500})
	m.Start()
	actions := m.Poll(600)
	require.True(t, hasKind(actions, ActionOpenChannel))
	assert.Equal(t, Opening, m.State())
}
