package container

import (
	"log/slog"
	"time"
)

// Plan is the outcome of dependency analysis for one context.
type Plan struct {
	// Order is the creation order of every component that can be wired
	Order []string
	// Failed holds components rejected before instantiation
	Failed map[string]error
	// Deps lists the local dependencies of each component
	Deps map[string][]string
}

type planPhase int

const (
	phaseNone planPhase = iota
	phaseCreating
	phaseCreated
	phaseInitializing
	phaseDone
)

// planner is a depth-first walk over reference edges with explicit
// in-progress marking. The walk order matches the engine's, so Plan.Order
// is also the order in which instances get created.
type planner struct {
	c     *Context
	phase map[string]planPhase
	stack []string
	plan  *Plan
}

func buildPlan(c *Context, logger *slog.Logger, metrics MetricsCollector) *Plan {
	start := time.Now()
	p := &planner{
		c:     c,
		phase: make(map[string]planPhase, len(c.names)),
		plan: &Plan{
			Failed: make(map[string]error),
			Deps:   make(map[string][]string),
		},
	}

	for _, name := range c.names {
		if err := c.records[name].parseErr; err != nil {
			p.plan.Failed[name] = err
			p.phase[name] = phaseDone
		}
	}

	for _, name := range c.names {
		if p.phase[name] == phaseNone {
			_ = p.visit(name)
		}
	}

	p.propagateFailures()

	order := make([]string, 0, len(p.plan.Order))
	for _, name := range p.plan.Order {
		if _, failed := p.plan.Failed[name]; !failed {
			order = append(order, name)
		}
	}
	p.plan.Order = order

	for _, name := range c.names {
		metrics.RecordDependencyCount(name, len(p.plan.Deps[name]))
	}

	logger.Debug("Dependency plan built",
		"components", len(c.names),
		"failed", len(p.plan.Failed),
		"time_ms", time.Since(start).Milliseconds())

	return p.plan
}

func (p *planner) visit(name string) error {
	if p.phase[name] == phaseDone {
		return p.plan.Failed[name]
	}

	p.phase[name] = phaseCreating
	p.stack = append(p.stack, name)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()

	create, properties, init, err := p.c.records[name].def.dependencies()
	if err != nil {
		return p.fail(name, err)
	}

	if err := p.require(name, create); err != nil {
		return p.fail(name, err)
	}
	p.plan.Order = append(p.plan.Order, name)
	p.phase[name] = phaseCreated

	if err := p.require(name, properties); err != nil {
		return p.fail(name, err)
	}
	p.phase[name] = phaseInitializing

	if err := p.require(name, init); err != nil {
		return p.fail(name, err)
	}
	p.phase[name] = phaseDone
	return nil
}

// fail records err unless name already failed as a member of a cycle.
func (p *planner) fail(name string, err error) error {
	p.phase[name] = phaseDone
	if existing, ok := p.plan.Failed[name]; ok {
		return existing
	}
	p.plan.Failed[name] = err
	return err
}

func (p *planner) require(name string, refs []dependencyRef) error {
	for _, r := range refs {
		if !p.c.isLocal(r.name) {
			_, found, err := p.c.resolveAncestor(r.name)
			if err != nil {
				return DependencyFailedError(name, r.name, err)
			}
			if !found {
				return UnresolvedReferenceError(name, r.name)
			}
			continue
		}

		p.addDep(name, r.name)

		switch phase := p.phase[r.name]; phase {
		case phaseDone:
			if err := p.plan.Failed[r.name]; err != nil {
				return DependencyFailedError(name, r.name, err)
			}
		case phaseNone:
			if err := p.visit(r.name); err != nil {
				if own, ok := p.plan.Failed[name]; ok {
					return own
				}
				return DependencyFailedError(name, r.name, err)
			}
		default:
			if r.need == needCreated && phase >= phaseCreated {
				continue
			}
			return p.cycle(r.name)
		}
	}
	return nil
}

// cycle fails every component on the stack from target to the top.
func (p *planner) cycle(target string) error {
	idx := len(p.stack) - 1
	for idx > 0 && p.stack[idx] != target {
		idx--
	}
	path := append(append([]string(nil), p.stack[idx:]...), target)

	for _, member := range p.stack[idx:] {
		if _, ok := p.plan.Failed[member]; !ok {
			p.plan.Failed[member] = CircularReferenceError(member, path)
		}
	}
	return p.plan.Failed[p.stack[len(p.stack)-1]]
}

func (p *planner) addDep(name, dep string) {
	for _, existing := range p.plan.Deps[name] {
		if existing == dep {
			return
		}
	}
	p.plan.Deps[name] = append(p.plan.Deps[name], dep)
}

// propagateFailures fails components whose tolerated, in-progress
// dependency failed after they had already passed it.
func (p *planner) propagateFailures() {
	for changed := true; changed; {
		changed = false
		for _, name := range p.c.names {
			if _, failed := p.plan.Failed[name]; failed {
				continue
			}
			for _, dep := range p.plan.Deps[name] {
				if err, failed := p.plan.Failed[dep]; failed {
					p.plan.Failed[name] = DependencyFailedError(name, dep, err)
					changed = true
					break
				}
			}
		}
	}
}
