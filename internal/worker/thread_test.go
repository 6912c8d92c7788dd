package worker

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/monitoring"
)

func TestGoRunsImmediately(t *testing.T) {
	started := make(chan struct{})
	th := Go("runner", func() { close(started) })

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("thread function did not start")
	}
	require.NoError(t, th.Join())
	assert.Equal(t, "runner", th.Name())
	assert.True(t, strings.HasPrefix(th.ID().String(), "thr_"))
}

func TestJoinBlocksUntilDone(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool

	th := Go("blocker", func() {
		<-release
		finished.Store(true)
	})

	joined := make(chan error, 1)
	go func() { joined <- th.Join() }()

	select {
	case <-joined:
		t.Fatal("join returned before the thread finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-joined:
		assert.NoError(t, err)
		assert.True(t, finished.Load())
	case <-time.After(time.Second):
		t.Fatal("join did not return")
	}
}

func TestJoinTwice(t *testing.T) {
	th := Go("once", func() {})
	require.NoError(t, th.Join())

	err := th.Join()
	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestJoinNeverStarted(t *testing.T) {
	var nilThread *Thread
	assert.Panics(t, func() { _ = nilThread.Join() })

	var zero Thread
	assert.Panics(t, func() { _ = zero.Join() })
}

func TestPanicIsReportedByJoin(t *testing.T) {
	th := Go("explodes", func() { panic("kaboom") })

	err := th.Join()
	require.Error(t, err)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "explodes", pe.Thread)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestPanicLogCarriesJoinStack(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	th := Go("explodes", func() { panic("kaboom") }, WithLogger(zap.New(core)))

	var pe *PanicError
	require.ErrorAs(t, th.Join(), &pe)

	entries := logs.FilterMessage("Thread panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(pe.Stack), entries[0].ContextMap()["stack"])
}

func TestDiagnostics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	th := Go("logged", func() {}, WithLogger(logger))
	require.NoError(t, th.Join())
	th.Release()
	th.Release()

	messages := make([]string, 0, logs.Len())
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{"Thread created", "Thread joining", "Thread joined", "Thread released"}, messages)

	joined := logs.FilterMessage("Thread joined").All()
	require.Len(t, joined, 1)
	assert.Contains(t, joined[0].ContextMap(), "waited")
}

func TestReleaseWithoutJoinWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	release := make(chan struct{})

	th := Go("leaky", func() { <-release }, WithLogger(zap.New(core)))
	th.Release()
	assert.Equal(t, 1, logs.FilterMessage("Thread released without join").Len())

	close(release)
	<-th.Done()
}

func TestMetrics(t *testing.T) {
	m := monitoring.NewMetrics()
	release := make(chan struct{})

	th := Go("counted", func() { <-release }, WithMetrics(m))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadsActive))

	close(release)
	require.NoError(t, th.Join())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ThreadsActive))
}

func TestString(t *testing.T) {
	var nilThread *Thread
	assert.Equal(t, "ThreadName=(null)", nilThread.String())

	th := Go("named", func() {})
	defer th.Join()
	assert.Contains(t, th.String(), "ThreadName=named")
	assert.Contains(t, th.String(), th.ID().String())
}
