package container

import (
	"sync"
	"time"
)

// MetricsCollector collects and manages component metrics
type MetricsCollector interface {
	RecordDependencyCount(componentName string, count int)
	RecordCreateDuration(componentName string, duration time.Duration)
	RecordConfigureDuration(componentName string, duration time.Duration)
	RecordInitDuration(componentName string, duration time.Duration)
	RecordDestroyDuration(componentName string, duration time.Duration)
	GetMetrics() map[string]*ComponentMetrics
}

// ComponentMetrics stores metrics for a component
type ComponentMetrics struct {
	Name              string
	CreateDuration    time.Duration
	ConfigureDuration time.Duration
	InitDuration      time.Duration
	DestroyDuration   time.Duration
	DependencyCount   int
}

// defaultMetricsCollector implements MetricsCollector
type defaultMetricsCollector struct {
	metrics map[string]*ComponentMetrics
	mu      sync.RWMutex
	enabled bool
}

// NewMetricsCollector returns the in-memory collector used by default.
func NewMetricsCollector(enabled bool) MetricsCollector {
	return newMetricsCollector(enabled)
}

func newMetricsCollector(enabled bool) *defaultMetricsCollector {
	return &defaultMetricsCollector{
		metrics: make(map[string]*ComponentMetrics),
		enabled: enabled,
	}
}

// record applies fn to the entry for componentName, creating it if needed.
func (c *defaultMetricsCollector) record(componentName string, fn func(m *ComponentMetrics)) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m, exists := c.metrics[componentName]
	if !exists {
		m = &ComponentMetrics{Name: componentName}
		c.metrics[componentName] = m
	}
	fn(m)
}

func (c *defaultMetricsCollector) RecordDependencyCount(componentName string, count int) {
	c.record(componentName, func(m *ComponentMetrics) { m.DependencyCount = count })
}

func (c *defaultMetricsCollector) RecordCreateDuration(componentName string, duration time.Duration) {
	c.record(componentName, func(m *ComponentMetrics) { m.CreateDuration = duration })
}

func (c *defaultMetricsCollector) RecordConfigureDuration(componentName string, duration time.Duration) {
	c.record(componentName, func(m *ComponentMetrics) { m.ConfigureDuration = duration })
}

func (c *defaultMetricsCollector) RecordInitDuration(componentName string, duration time.Duration) {
	c.record(componentName, func(m *ComponentMetrics) { m.InitDuration = duration })
}

func (c *defaultMetricsCollector) RecordDestroyDuration(componentName string, duration time.Duration) {
	c.record(componentName, func(m *ComponentMetrics) { m.DestroyDuration = duration })
}

func (c *defaultMetricsCollector) GetMetrics() map[string]*ComponentMetrics {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Copy so callers cannot race with the wiring goroutine
	result := make(map[string]*ComponentMetrics, len(c.metrics))
	for k, v := range c.metrics {
		m := *v
		result[k] = &m
	}

	return result
}
