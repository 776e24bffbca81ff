// Package debug provides a wiring plugin that logs every lifecycle
// notification of the contexts it is attached to.
package debug

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/01fortes/gowire/pkg/container"
)

// Plugin logs notifications through slog. Failures are logged at Error,
// everything else at Debug.
//
// Options:
//
//	timeout: duration ("5s") or milliseconds after which components that are
//	         still wiring get reported at Warn
type Plugin struct {
	logger *slog.Logger
}

// New creates a debug plugin. A nil logger means slog.Default().
func New(logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{logger: logger}
}

// Invoke implements container.Plugin.
func (p *Plugin) Invoke(ready *container.Outcome[container.Components], destroyed *container.Outcome[struct{}], options map[string]any) {
	c := ready.Context()
	logger := p.logger
	if c != nil {
		logger = logger.With("context", c.ID())
	}

	timeout, err := parseTimeout(options["timeout"])
	if err != nil {
		logger.Warn("Ignoring debug timeout option", "error", err)
	}

	ready.OnProgress(func(n container.Notification) { p.log(logger, n) })
	destroyed.OnProgress(func(n container.Notification) { p.log(logger, n) })

	var timer *time.Timer
	if timeout > 0 && c != nil {
		timer = time.AfterFunc(timeout, func() { reportPending(logger, c, timeout) })
	}

	start := time.Now()
	ready.Then(func(components container.Components) {
		stop(timer)
		logger.Info("Context ready",
			"components", len(components),
			"time_ms", time.Since(start).Milliseconds())
	}, func(err error) {
		stop(timer)
		logger.Error("Context wiring failed",
			"error", err,
			"time_ms", time.Since(start).Milliseconds())
	})

	destroyed.Then(func(struct{}) {
		logger.Info("Context destroyed")
	}, func(err error) {
		logger.Error("Context destroyed with errors", "error", err)
	})
}

func (p *Plugin) log(logger *slog.Logger, n container.Notification) {
	if n.Err != nil {
		logger.Error("Component failed",
			"component", n.Name,
			"status", n.Status.String(),
			"error", n.Err)
		return
	}
	logger.Debug("Component "+n.Status.String(),
		"component", n.Name,
		"type", fmt.Sprintf("%T", n.Target))
}

func reportPending(logger *slog.Logger, c *container.Context, timeout time.Duration) {
	if c.Ready().Settled() {
		return
	}
	for _, info := range c.Snapshot() {
		if info.Status == container.StatusInitialized || info.Status == container.StatusFailed {
			continue
		}
		logger.Warn("Component still wiring",
			"component", info.Name,
			"status", info.Status.String(),
			"after", timeout.String())
	}
}

func parseTimeout(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(t)
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	case float64:
		return time.Duration(t * float64(time.Millisecond)), nil
	case time.Duration:
		return t, nil
	default:
		return 0, fmt.Errorf("unsupported timeout %v of type %T", v, v)
	}
}

func stop(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
