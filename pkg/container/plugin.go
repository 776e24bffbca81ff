package container

import (
	"context"
	"fmt"

	"github.com/01fortes/gowire/pkg/spec"
)

// Plugin observes or augments a wiring context. Invoke is called exactly
// once per context, at wiring start, and must not block.
type Plugin interface {
	Invoke(ready *Outcome[Components], destroyed *Outcome[struct{}], options map[string]any)
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(ready *Outcome[Components], destroyed *Outcome[struct{}], options map[string]any)

// Invoke calls f.
func (f PluginFunc) Invoke(ready *Outcome[Components], destroyed *Outcome[struct{}], options map[string]any) {
	f(ready, destroyed, options)
}

type pluginDecl struct {
	id      string
	plugin  Plugin
	options map[string]any
}

// loadPlugins collects Options.Plugins followed by the $plugins entries of
// the spec, loading the latter through the module loader.
func (c *Context) loadPlugins(ctx context.Context) ([]pluginDecl, error) {
	decls := make([]pluginDecl, 0, len(c.opts.Plugins))
	for _, p := range c.opts.Plugins {
		decls = append(decls, pluginDecl{id: fmt.Sprintf("%T", p), plugin: p, options: map[string]any{}})
	}

	raw, ok := c.spec.Get(spec.KeyPlugins)
	if !ok || raw == nil {
		return decls, nil
	}

	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}

	for _, item := range items {
		id, options, err := parsePluginEntry(item)
		if err != nil {
			return nil, err
		}

		module, err := c.opts.Loader.Load(ctx, id)
		if err != nil {
			return nil, ModuleLoadError(spec.KeyPlugins, id, err)
		}

		plugin, ok := asPlugin(module)
		if !ok {
			return nil, ModuleLoadError(spec.KeyPlugins, id,
				fmt.Errorf("module of type %T is not a plugin", module))
		}
		decls = append(decls, pluginDecl{id: id, plugin: plugin, options: options})
	}
	return decls, nil
}

func parsePluginEntry(item any) (string, map[string]any, error) {
	if id, ok := item.(string); ok {
		return id, map[string]any{}, nil
	}

	m, ok := spec.AsMap(item)
	if !ok {
		return "", nil, InvalidSpecError(spec.KeyPlugins, fmt.Sprintf("plugin entry must be a module id or mapping, got %T", item))
	}
	raw, _ := m.Get(spec.KeyModule)
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", nil, InvalidSpecError(spec.KeyPlugins, "plugin mapping requires a 'module' id")
	}

	options := make(map[string]any, m.Len())
	m.Each(func(k string, v any) bool {
		if k != spec.KeyModule {
			options[k] = spec.Plain(v)
		}
		return true
	})
	return id, options, nil
}

func asPlugin(module any) (Plugin, bool) {
	switch p := module.(type) {
	case Plugin:
		return p, true
	case func(*Outcome[Components], *Outcome[struct{}], map[string]any):
		return PluginFunc(p), true
	default:
		return nil, false
	}
}

// invokePlugins calls every plugin once. A panicking plugin is logged and skipped.
func (c *Context) invokePlugins(decls []pluginDecl) {
	for _, d := range decls {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("Panic in plugin", "plugin", d.id, "error", r)
				}
			}()
			c.logger.Debug("Invoking plugin", "plugin", d.id)
			d.plugin.Invoke(c.ready, c.destroyed, d.options)
		}()
	}
}
