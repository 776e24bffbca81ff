package boot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/01fortes/gowire/pkg/container"
)

// BackgroundComponent is a wired component with a long-running loop. Run is
// started in its own goroutine once the context is ready and must return
// when ctx is cancelled.
type BackgroundComponent interface {
	Run(ctx context.Context)
}

// ScheduledComponent is a wired component executed on a fixed interval.
type ScheduledComponent interface {
	GetSchedule() Schedule
	Execute(ctx context.Context)
}

// Schedule controls when a ScheduledComponent runs.
type Schedule struct {
	Interval     time.Duration
	InitialDelay time.Duration
	RunOnStartup bool
}

// runner drives background and scheduled components between readiness and
// teardown.
type runner struct {
	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newRunner(logger *slog.Logger) *runner {
	return &runner{logger: logger}
}

// start launches every background and scheduled component of c in creation
// order and returns the number started.
func (r *runner) start(ctx context.Context, c *container.Context) int {
	ctx, r.cancel = context.WithCancel(ctx)
	components := c.Components()

	started := 0
	for _, name := range c.CreationOrder() {
		component, ok := components[name]
		if !ok {
			continue
		}
		if background, ok := component.(BackgroundComponent); ok {
			r.startBackground(ctx, background, name)
			started++
		}
		if scheduled, ok := component.(ScheduledComponent); ok {
			if r.startScheduled(ctx, scheduled, name) {
				started++
			}
		}
	}
	return started
}

// stop cancels every running component and waits for them to return.
func (r *runner) stop(ctx context.Context) {
	if r.cancel == nil {
		return
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Background components stopped")
	case <-ctx.Done():
		r.logger.Warn("Timed out waiting for background components", "error", ctx.Err())
	}
}

func (r *runner) startBackground(ctx context.Context, component BackgroundComponent, name string) {
	r.logger.Debug("Starting background component", "component", name)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.recoverPanic(name)

		r.logger.Info("Background component running", "component", name)
		component.Run(ctx)
		r.logger.Info("Background component completed", "component", name)
	}()
}

func (r *runner) startScheduled(ctx context.Context, component ScheduledComponent, name string) bool {
	schedule := component.GetSchedule()
	if schedule.Interval <= 0 {
		r.logger.Error("Scheduled component has no interval, not starting",
			"component", name,
			"interval", schedule.Interval.String())
		return false
	}

	r.logger.Debug("Starting scheduled component", "component", name)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if schedule.RunOnStartup {
			r.execute(ctx, component, name)
		}

		if schedule.InitialDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(schedule.InitialDelay):
			}
		}

		ticker := time.NewTicker(schedule.Interval)
		defer ticker.Stop()

		r.logger.Info("Scheduled component running",
			"component", name,
			"interval", schedule.Interval.String())

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Scheduled component stopping", "component", name)
				return
			case <-ticker.C:
				r.execute(ctx, component, name)
			}
		}
	}()
	return true
}

// execute runs one scheduled execution; a panic is logged and the schedule
// keeps going.
func (r *runner) execute(ctx context.Context, component ScheduledComponent, name string) {
	defer r.recoverPanic(name)

	start := time.Now()
	component.Execute(ctx)
	r.logger.Debug("Scheduled component executed",
		"component", name,
		"time_ms", time.Since(start).Milliseconds())
}

func (r *runner) recoverPanic(name string) {
	if p := recover(); p != nil {
		r.logger.Error("Panic in component", "component", name, "error", p)
	}
}
