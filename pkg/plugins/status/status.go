// Package status exposes the state of wired contexts over HTTP.
//
//	GET /contexts                          every registered context
//	GET /contexts/{id}                     one context
//	GET /contexts/{id}/components          components in declaration order
//	GET /contexts/{id}/components/{name}   one component
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/01fortes/gowire/pkg/container"
)

// Plugin registers every context it is invoked for and serves their state.
// Contexts stay listed after destruction with state "destroyed".
type Plugin struct {
	logger *slog.Logger
	router chi.Router

	mu       sync.RWMutex
	contexts map[string]*entry
	order    []string
}

type entry struct {
	ctx     *container.Context
	wiredAt time.Time
}

// ContextView is the JSON form of a context.
type ContextView struct {
	ID         string   `json:"id"`
	Parent     string   `json:"parent,omitempty"`
	State      string   `json:"state"`
	Error      string   `json:"error,omitempty"`
	Components int      `json:"components"`
	Order      []string `json:"creation_order"`
	Children   []string `json:"children,omitempty"`
	WiredAt    string   `json:"wired_at"`
}

// ComponentView is the JSON form of a component.
type ComponentView struct {
	Name    string                      `json:"name"`
	Status  string                      `json:"status"`
	Type    string                      `json:"type,omitempty"`
	Error   string                      `json:"error,omitempty"`
	Metrics *container.ComponentMetrics `json:"metrics,omitempty"`
}

// New creates a status plugin. A nil logger means slog.Default().
func New(logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Plugin{
		logger:   logger,
		contexts: make(map[string]*entry),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/contexts", func(r chi.Router) {
		r.Get("/", p.listContexts)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", p.getContext)
			r.Get("/components", p.listComponents)
			r.Get("/components/{name}", p.getComponent)
		})
	})
	p.router = r
	return p
}

// Invoke implements container.Plugin.
func (p *Plugin) Invoke(ready *container.Outcome[container.Components], _ *container.Outcome[struct{}], _ map[string]any) {
	c := ready.Context()
	if c == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.contexts[c.ID()]; exists {
		return
	}
	p.contexts[c.ID()] = &entry{ctx: c, wiredAt: time.Now()}
	p.order = append(p.order, c.ID())
	p.logger.Debug("Tracking context", "context", c.ID())
}

// Handler returns the HTTP handler serving context state.
func (p *Plugin) Handler() http.Handler {
	return p.router
}

func (p *Plugin) lookup(id string) (*entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.contexts[id]
	return e, ok
}

func (p *Plugin) listContexts(w http.ResponseWriter, _ *http.Request) {
	p.mu.RLock()
	views := make([]ContextView, 0, len(p.order))
	for _, id := range p.order {
		views = append(views, contextView(p.contexts[id]))
	}
	p.mu.RUnlock()

	p.writeJSON(w, http.StatusOK, views)
}

func (p *Plugin) getContext(w http.ResponseWriter, r *http.Request) {
	e, ok := p.lookup(chi.URLParam(r, "id"))
	if !ok {
		p.writeError(w, http.StatusNotFound, "context not found")
		return
	}
	p.writeJSON(w, http.StatusOK, contextView(e))
}

func (p *Plugin) listComponents(w http.ResponseWriter, r *http.Request) {
	e, ok := p.lookup(chi.URLParam(r, "id"))
	if !ok {
		p.writeError(w, http.StatusNotFound, "context not found")
		return
	}

	metrics := e.ctx.Metrics()
	snapshot := e.ctx.Snapshot()
	views := make([]ComponentView, 0, len(snapshot))
	for _, info := range snapshot {
		views = append(views, componentView(info, metrics))
	}
	p.writeJSON(w, http.StatusOK, views)
}

func (p *Plugin) getComponent(w http.ResponseWriter, r *http.Request) {
	e, ok := p.lookup(chi.URLParam(r, "id"))
	if !ok {
		p.writeError(w, http.StatusNotFound, "context not found")
		return
	}

	info, ok := e.ctx.Component(chi.URLParam(r, "name"))
	if !ok {
		p.writeError(w, http.StatusNotFound, "component not found")
		return
	}
	p.writeJSON(w, http.StatusOK, componentView(info, e.ctx.Metrics()))
}

func contextView(e *entry) ContextView {
	c := e.ctx
	view := ContextView{
		ID:         c.ID(),
		State:      "wiring",
		Components: len(c.Names()),
		Order:      c.CreationOrder(),
		WiredAt:    e.wiredAt.UTC().Format(time.RFC3339),
	}
	if parent := c.Parent(); parent != nil {
		view.Parent = parent.ID()
	}
	for _, child := range c.Children() {
		view.Children = append(view.Children, child.ID())
	}

	switch {
	case c.IsDestroyed():
		view.State = "destroyed"
	case c.Ready().Settled():
		view.State = "ready"
		if _, err := c.Ready().Wait(context.Background()); err != nil {
			view.State = "failed"
			view.Error = err.Error()
		}
	}
	return view
}

func componentView(info container.ComponentInfo, metrics map[string]*container.ComponentMetrics) ComponentView {
	view := ComponentView{
		Name:    info.Name,
		Status:  info.Status.String(),
		Type:    info.Type,
		Metrics: metrics[info.Name],
	}
	if info.Err != nil {
		view.Error = info.Err.Error()
	}
	return view
}

func (p *Plugin) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		p.logger.Error("Failed to encode status response", "error", err)
	}
}

func (p *Plugin) writeError(w http.ResponseWriter, status int, msg string) {
	p.writeJSON(w, status, map[string]string{"error": msg})
}
