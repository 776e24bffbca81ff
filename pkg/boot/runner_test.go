package boot

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01fortes/gowire/pkg/container"
	"github.com/01fortes/gowire/pkg/spec"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type worker struct {
	running atomic.Bool
	stopped atomic.Bool
}

func (w *worker) Run(ctx context.Context) {
	w.running.Store(true)
	<-ctx.Done()
	w.stopped.Store(true)
}

type ticker struct {
	schedule Schedule
	count    atomic.Int32
	panics   bool
}

func (t *ticker) GetSchedule() Schedule {
	return t.schedule
}

func (t *ticker) Execute(context.Context) {
	t.count.Add(1)
	if t.panics {
		panic("tick failed")
	}
}

func wireComponents(t *testing.T, components map[string]any) *container.Context {
	t.Helper()
	registry := container.NewRegistry(discardLogger())
	s := spec.NewMap()
	for name, component := range components {
		registry.MustRegister(name, component)
		s.Set(name, spec.Module(name))
	}

	c := container.Wire(context.Background(), s,
		container.WithLogger(discardLogger()),
		container.WithLoader(registry))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.Wait(ctx)
	require.NoError(t, err)
	return c
}

func TestRunnerStartsAndStopsComponents(t *testing.T) {
	w := &worker{}
	tick := &ticker{schedule: Schedule{Interval: 5 * time.Millisecond, RunOnStartup: true}}
	idle := &ticker{schedule: Schedule{}}
	c := wireComponents(t, map[string]any{"worker": w, "ticker": tick, "idle": idle, "plain": &struct{}{}})

	r := newRunner(discardLogger())
	assert.Equal(t, 2, r.start(context.Background(), c), "a schedule without interval is not started")

	assert.Eventually(t, func() bool { return w.running.Load() && tick.count.Load() >= 3 },
		5*time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.stop(ctx)
	assert.True(t, w.stopped.Load())
	assert.Zero(t, idle.count.Load())

	after := tick.count.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, tick.count.Load())
}

func TestRunnerSurvivesPanickingExecutions(t *testing.T) {
	tick := &ticker{schedule: Schedule{Interval: 2 * time.Millisecond}, panics: true}
	c := wireComponents(t, map[string]any{"ticker": tick})

	r := newRunner(discardLogger())
	r.start(context.Background(), c)
	assert.Eventually(t, func() bool { return tick.count.Load() >= 2 }, 5*time.Second, time.Millisecond)

	r.stop(context.Background())
}

func TestRunnerHonoursInitialDelay(t *testing.T) {
	tick := &ticker{schedule: Schedule{Interval: time.Millisecond, InitialDelay: time.Hour}}
	c := wireComponents(t, map[string]any{"ticker": tick})

	r := newRunner(discardLogger())
	r.start(context.Background(), c)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, tick.count.Load())

	r.stop(context.Background())
}

func TestRunnerStopWithoutStart(t *testing.T) {
	assert.NotPanics(t, func() { newRunner(discardLogger()).stop(context.Background()) })
}
