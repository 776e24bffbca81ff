package container

import "log/slog"

// DefaultMaxDepth bounds parent-chain traversal during reference resolution.
const DefaultMaxDepth = 64

// Options contains configuration options for a wiring context
type Options struct {
	// Logger for container operations (uses slog.Default if nil)
	Logger *slog.Logger
	// Loader resolves module ids. An empty Registry is used if nil.
	Loader ModuleLoader
	// Plugins are invoked once at the start of wiring, before $plugins from the spec
	Plugins []Plugin
	// EnableMetrics enables component metrics
	EnableMetrics bool
	// Metrics overrides the per-context collector
	Metrics MetricsCollector
	// MaxDepth bounds ancestor traversal
	MaxDepth int
}

// Option configures Options.
type Option func(*Options)

// DefaultOptions returns default configuration
func DefaultOptions() Options {
	return Options{
		Logger:        slog.Default(),
		EnableMetrics: true,
		MaxDepth:      DefaultMaxDepth,
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithLoader sets the module loader.
func WithLoader(loader ModuleLoader) Option {
	return func(o *Options) {
		o.Loader = loader
	}
}

// WithPlugins appends plugins.
func WithPlugins(plugins ...Plugin) Option {
	return func(o *Options) {
		o.Plugins = append(o.Plugins, plugins...)
	}
}

// WithMetrics toggles the built-in metrics collector.
func WithMetrics(enabled bool) Option {
	return func(o *Options) {
		o.EnableMetrics = enabled
	}
}

// WithMetricsCollector replaces the built-in collector.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *Options) {
		o.Metrics = collector
		o.EnableMetrics = collector != nil
	}
}

// WithMaxDepth bounds ancestor traversal.
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		o.MaxDepth = depth
	}
}

func (o Options) apply(opts []Option) Options {
	o.Plugins = append([]Plugin(nil), o.Plugins...)
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Loader == nil {
		o.Loader = NewRegistry(o.Logger)
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}
