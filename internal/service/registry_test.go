package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/turbosocket/internal/lifecycle"
	tu "github.com/GriffinCanCode/turbosocket/internal/testutil"
)

func TestRegister(t *testing.T) {
	r := NewRegistry()
	sys := newSystem(t, tu.NewFakeTransport())

	require.NoError(t, r.Register(sys))
	got, ok := r.Get(sys.ID())
	require.True(t, ok)
	assert.Same(t, sys, got)

	assert.Error(t, r.Register(sys), "duplicate registration")
	assert.Error(t, r.Register(nil))
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	sys := newSystem(t, tu.NewFakeTransport())
	require.NoError(t, r.Register(sys))

	r.Unregister(sys.ID())
	_, ok := r.Get(sys.ID())
	assert.False(t, ok)
	assert.Zero(t, r.Count())
}

func TestListOrdersByCreation(t *testing.T) {
	r := NewRegistry()
	first := newSystem(t, tu.NewFakeTransport())
	second := newSystem(t, tu.NewFakeTransport())
	require.NoError(t, r.Register(second))
	require.NoError(t, r.Register(first))

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, first.ID().String(), infos[0].ID)
	assert.Equal(t, second.ID().String(), infos[1].ID)
}

func TestStopAll(t *testing.T) {
	r := NewRegistry()
	var systems []*System
	for i := 0; i < 4; i++ {
		sys := newSystem(t, tu.NewFakeTransport("ping"))
		_, err := sys.Start()
		require.NoError(t, err)
		require.NoError(t, r.Register(sys))
		systems = append(systems, sys)
	}

	start := time.Now()
	require.NoError(t, r.StopAll())
	assert.Less(t, time.Since(start), time.Second)

	assert.Zero(t, r.Count())
	for _, sys := range systems {
		assert.Equal(t, lifecycle.StateDone, sys.State())
	}
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	tr := tu.NewFakeTransport("a", "b")
	sys := newSystem(t, tr)
	require.NoError(t, r.Register(sys))
	require.NoError(t, r.Register(newSystem(t, tu.NewFakeTransport())))

	_, err := sys.Start()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sys.Stats().Written == 2 }, time.Second, 5*time.Millisecond)

	stats := r.Stats()
	assert.Equal(t, 2, stats["total_systems"])
	assert.Equal(t, int64(2), stats["written"])
	states := stats["states"].(map[string]int)
	assert.Equal(t, 1, states["running"])
	assert.Equal(t, 1, states["new"])
}
