package container

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/01fortes/gowire/pkg/spec"
)

type ContextSuite struct {
	suite.Suite
	f *fixture
}

func (s *ContextSuite) SetupTest() {
	s.f = newFixture()
}

func TestContextSuite(t *testing.T) {
	suite.Run(t, new(ContextSuite))
}

func (s *ContextSuite) TestLiteralInjectedAsConstructorArgument() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("a", spec.Literal(1)).
		Set("b", spec.Create("M", spec.Ref("a"))))

	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	s.Equal(1, components["a"])
	s.Equal(&point{X: 1}, components["b"])
	s.Equal([]string{"a", "b"}, c.CreationOrder())
}

func (s *ContextSuite) TestLiteralFromYAMLConvertsToParameterType() {
	parsed, err := spec.ParseYAML([]byte("a:\n  literal: 1\nb:\n  create:\n    module: M\n    args:\n      - $ref: a\n"))
	s.Require().NoError(err)

	components, err := waitReady(s.T(), s.f.wire(s.T(), parsed))
	s.Require().NoError(err)
	s.Equal(int64(1), components["a"])
	s.Equal(&point{X: 1}, components["b"])
}

func (s *ContextSuite) TestAcyclicSpecWiresEveryComponentOnce() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("controller", spec.Create("service", "controller", spec.Ref("repo"), spec.Ref("logger"))).
		Set("repo", spec.Create("service", "repo", spec.Ref("logger"))).
		Set("logger", spec.Create("service", "logger")).
		Set("version", "1.2.3"))

	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	s.Len(components, 4)
	for _, name := range []string{"controller", "repo", "logger"} {
		s.Equal(1, s.f.callCount(name), name)
		info, ok := c.Component(name)
		s.True(ok)
		s.Equal(StatusInitialized, info.Status)
	}
	s.Equal("1.2.3", components["version"])
	s.Equal([]string{"logger", "repo", "controller", "version"}, c.CreationOrder())

	controller := components["controller"].(*service)
	s.Same(components["repo"], controller.Deps[0])
	s.Same(components["logger"], controller.Deps[1])
}

func (s *ContextSuite) TestCycleRejectsWithoutLeakingInstances() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("a", spec.Create("service", "a", spec.Ref("b"))).
		Set("b", spec.Create("service", "b", spec.Ref("a"))).
		Set("c", spec.Create("service", "c")))

	components, err := waitReady(s.T(), c)
	s.Require().Error(err)
	s.ErrorIs(err, ErrWiring)
	s.ErrorIs(err, ErrCircularReference)
	s.Contains(err.Error(), "a -> b -> a")

	s.NotContains(components, "a")
	s.NotContains(components, "b")
	s.Contains(components, "c")
	s.Zero(s.f.callCount("a"))
	s.Zero(s.f.callCount("b"))

	for _, name := range []string{"a", "b"} {
		info, _ := c.Component(name)
		s.Equal(StatusFailed, info.Status)
		s.ErrorIs(info.Err, ErrCircularReference)
	}
}

func (s *ContextSuite) TestDependentOfCycleFailsWithDependencyError() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("top", spec.Create("service", "top", spec.Ref("a"))).
		Set("a", spec.Create("service", "a", spec.Ref("b"))).
		Set("b", spec.Create("service", "b", spec.Ref("a"))))

	_, err := waitReady(s.T(), c)
	s.Require().Error(err)

	info, _ := c.Component("top")
	s.ErrorIs(info.Err, ErrDependencyFailed)
	s.ErrorIs(info.Err, ErrCircularReference)
	s.Zero(s.f.callCount("top"))
}

func (s *ContextSuite) TestSelfReferenceInConstructorIsACycle() {
	c := s.f.wire(s.T(), spec.NewMap().Set("a", spec.Create("service", "a", spec.Ref("a"))))

	_, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrCircularReference)
	s.Contains(err.Error(), "a -> a")
}

func (s *ContextSuite) TestPropertyCycleIsToleratedThroughSetterInjection() {
	a := spec.Create("service", "a").Set(spec.KeyProperties, spec.NewMap().Set("peer", spec.Ref("b")))
	b := spec.Create("service", "b").Set(spec.KeyProperties, spec.NewMap().Set("peer", spec.Ref("a")))
	c := s.f.wire(s.T(), spec.NewMap().Set("a", a).Set("b", b))

	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	sa := components["a"].(*service)
	sb := components["b"].(*service)
	s.Same(sb, sa.Peer)
	s.Same(sa, sb.Peer)
	s.Equal([]string{"a", "b"}, c.CreationOrder())
}

func (s *ContextSuite) TestPropertyReferenceToComponentThatFailsLaterFailsHolder() {
	a := spec.Create("service", "a").
		Set(spec.KeyProperties, spec.NewMap().Set("peer", spec.Ref("b"))).
		Set(spec.KeyInit, "explode")
	b := spec.Create("service", "b").Set(spec.KeyProperties, spec.NewMap().Set("peer", spec.Ref("a")))
	c := s.f.wire(s.T(), spec.NewMap().
		Set("a", a).
		Set("b", b).
		Set("c", spec.Create("service", "c")))

	components, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrInitialization)
	s.ErrorIs(err, ErrDependencyFailed)
	s.Len(components, 1)
	s.Contains(components, "c")

	info, _ := c.Component("b")
	s.Equal(StatusFailed, info.Status)
	s.ErrorIs(info.Err, ErrDependencyFailed)
	s.ErrorIs(info.Err, ErrInitialization)
	s.NotContains(c.Components(), "b")

	s.Require().NoError(waitDestroyed(s.T(), c))
	s.Equal([]string{"destroy:c", "destroy:b", "destroy:a"}, s.f.j.list(),
		"created instances are still released")
}

func (s *ContextSuite) TestInitArgumentCycleIsRejected() {
	a := spec.Create("service", "a").Set(spec.KeyInit, spec.NewMap().Set("start", []any{spec.Ref("b")}))
	b := spec.Create("service", "b", spec.Ref("a"))
	c := s.f.wire(s.T(), spec.NewMap().Set("a", a).Set("b", b))

	components, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrCircularReference)
	s.Empty(components)
	s.Zero(s.f.callCount("a"))
}

func (s *ContextSuite) TestUnresolvedReference() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("a", spec.Create("service", "a", spec.Ref("missing"))).
		Set("b", spec.Literal("ok")))

	components, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrUnresolvedReference)
	s.Contains(err.Error(), "missing")
	s.Equal(Components{"b": "ok"}, components)
}

func (s *ContextSuite) TestFailureOnlyAffectsDependents() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("a", spec.Create("broken")).
		Set("b", spec.Create("service", "b", spec.Ref("a"))).
		Set("c", spec.Create("service", "c")))

	components, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrConstruction)
	s.Contains(components, "c")
	s.NotContains(components, "b")
	s.Zero(s.f.callCount("b"))

	info, _ := c.Component("b")
	s.Equal(StatusFailed, info.Status)
	s.ErrorIs(info.Err, ErrDependencyFailed)
	s.ErrorIs(info.Err, ErrConstruction)
}

func (s *ContextSuite) TestModuleLoadFailure() {
	c := s.f.wire(s.T(), spec.NewMap().Set("a", spec.Create("nope")))

	_, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrModuleLoad)
	s.ErrorIs(err, ErrModuleNotFound)
}

func (s *ContextSuite) TestInvalidDefinitionFailsOnlyThatComponent() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("bad", spec.NewMap().Set(spec.KeyCreate, 42)).
		Set("good", spec.Literal(true)))

	components, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrInvalidSpec)
	s.Equal(Components{"good": true}, components)
}

func (s *ContextSuite) TestInitMethodsRunInOrderThenInitializer() {
	def := spec.Create("service", "svc").Set(spec.KeyInit, spec.NewMap().
		Set("start", []any{"first-"}).
		Set("Start", "second-"))

	components, err := waitReady(s.T(), s.f.wire(s.T(), spec.NewMap().Set("svc", def)))
	s.Require().NoError(err)
	s.Equal([]string{"first-svc", "second-svc", "Init"}, components["svc"].(*service).inits)
}

func (s *ContextSuite) TestInitFailure() {
	def := spec.Create("service", "svc").Set(spec.KeyInit, "explode")
	c := s.f.wire(s.T(), spec.NewMap().Set("svc", def))

	_, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrInitialization)
	s.Contains(err.Error(), "explode")
}

func (s *ContextSuite) TestPropertyAssignmentFailure() {
	def := spec.Create("service", "svc").Set(spec.KeyProperties, spec.NewMap().Set("unknown", 1))
	_, err := waitReady(s.T(), s.f.wire(s.T(), spec.NewMap().Set("svc", def)))
	s.ErrorIs(err, ErrPropertyAssignment)
}

func (s *ContextSuite) TestConstructorSemantics() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("value", spec.Create("point", 1, 2)).
		Set("boxed", spec.Construct("point", 3, 4)).
		Set("typed", spec.Create("typed", 5, 6)))

	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)
	s.Equal(point{X: 1, Y: 2}, components["value"])
	s.Equal(&point{X: 3, Y: 4}, components["boxed"])
	s.Equal(&point{X: 5, Y: 6}, components["typed"])
}

func (s *ContextSuite) TestConstructorFlagRejectsPlainValues() {
	_, err := waitReady(s.T(), s.f.wire(s.T(), spec.NewMap().Set("cfg", spec.Construct("proto"))))
	s.ErrorIs(err, ErrConstruction)
}

func (s *ContextSuite) TestCreateFromPlainValueBegetsACopy() {
	def := spec.Create("proto").Set(spec.KeyProperties, spec.NewMap().Set("port", 8080))
	c := s.f.wire(s.T(), spec.NewMap().
		Set("cfg", def).
		Set("shared", spec.Module("proto")))

	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	proto, _ := s.f.registry.Load(context.Background(), "proto")
	s.Equal(&config{Host: "localhost", Port: 8080}, components["cfg"])
	s.Equal(80, proto.(*config).Port)
	s.NotSame(proto, components["cfg"])
	s.Same(proto, components["shared"])
}

func (s *ContextSuite) TestAliasAndPlainValues() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("logger", spec.Create("service", "logger")).
		Set("log", spec.Ref("logger")).
		Set("settings", spec.NewMap().
			Set("url", "postgres://db").
			Set("logger", spec.Ref("logger")).
			Set("ports", []any{1, spec.Ref("port")})).
		Set("port", 5432))

	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	s.Same(components["logger"], components["log"])
	s.Equal(map[string]any{
		"url":    "postgres://db",
		"logger": components["logger"],
		"ports":  []any{1, 5432},
	}, components["settings"])

	s.Require().NoError(waitDestroyed(s.T(), c))
	s.Equal([]string{"destroy:logger"}, s.f.j.list())
}

func (s *ContextSuite) TestInlineDefinitionsLiveAndDieWithOwner() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("svc", spec.Create("service", "svc", spec.Create("service", "inner"), spec.Literal(spec.Ref("raw")))))

	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	svc := components["svc"].(*service)
	s.Require().Len(svc.Deps, 2)
	s.Equal("inner", svc.Deps[0].(*service).Name)
	s.Equal([]string{"Init"}, svc.Deps[0].(*service).inits)
	name, ok := spec.RefName(svc.Deps[1])
	s.True(ok, "literal keeps the reference token verbatim")
	s.Equal("raw", name)

	s.Require().NoError(waitDestroyed(s.T(), c))
	s.Equal([]string{"destroy:svc", "destroy:inner"}, s.f.j.list())
}

func (s *ContextSuite) TestInlineInstancesReleasedWhenOwnerConstructionFails() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("svc", spec.Create("service", "svc", spec.Create("service", "inner"), spec.Create("broken"))))

	_, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrConstruction)
	s.Equal([]string{"destroy:inner"}, s.f.j.list())

	s.Require().NoError(waitDestroyed(s.T(), c))
	s.Equal([]string{"destroy:inner"}, s.f.j.list(), "released inline instances are not destroyed twice")
}

func (s *ContextSuite) TestDestroyRunsInReverseCreationOrder() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("controller", spec.Create("service", "controller", spec.Ref("logger"))).
		Set("logger", spec.Create("service", "logger")))

	_, err := waitReady(s.T(), c)
	s.Require().NoError(err)
	s.Equal([]string{"logger", "controller"}, c.CreationOrder())

	s.Require().NoError(waitDestroyed(s.T(), c))
	s.Equal([]string{"destroy:controller", "destroy:logger"}, s.f.j.list())

	info, _ := c.Component("logger")
	s.Equal(StatusDestroyed, info.Status)
	s.True(c.IsDestroyed())
}

func (s *ContextSuite) TestDestroyContinuesAndAggregatesFailures() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("one", spec.Create("closer", "one")).
		Set("svc", spec.Create("service", "svc")).
		Set("two", spec.Create("closer", "two")))

	_, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	err = waitDestroyed(s.T(), c)
	s.Require().Error(err)
	s.ErrorIs(err, ErrDestroy)
	s.Contains(err.Error(), "one refused to close")
	s.Contains(err.Error(), "two refused to close")
	s.Equal([]string{"close:two", "destroy:svc", "close:one"}, s.f.j.list())
}

func (s *ContextSuite) TestDestroyDirectiveOverridesHooks() {
	def := spec.Create("service", "svc").Set(spec.KeyDestroy, []any{"start"})
	c := s.f.wire(s.T(), spec.NewMap().Set("svc", def))

	_, err := waitReady(s.T(), c)
	s.Require().NoError(err)
	s.Error(waitDestroyed(s.T(), c), "start takes one argument")
	s.Empty(s.f.j.list(), "Destroyer is skipped when destroy methods are declared")
}

func (s *ContextSuite) TestDestroyIsIdempotent() {
	c := s.f.wire(s.T(), spec.NewMap().Set("svc", spec.Create("service", "svc")))

	first := c.Destroy(context.Background())
	second := c.Destroy(context.Background())
	s.Same(first, second)

	s.Require().NoError(waitDestroyed(s.T(), c))
	s.Equal([]string{"destroy:svc"}, s.f.j.list())
}

func (s *ContextSuite) TestNotificationOrder() {
	j := &journal{}
	c := s.f.wire(s.T(), spec.NewMap().
		Set("b", spec.Create("M", spec.Ref("a"))).
		Set("a", spec.Literal(1)), WithPlugins(recorder(j)))

	_, err := waitReady(s.T(), c)
	s.Require().NoError(err)
	s.Equal([]string{
		"a:created", "a:configured", "a:initialized",
		"b:created", "b:configured", "b:initialized",
	}, j.list())

	s.Require().NoError(waitDestroyed(s.T(), c))
	s.Equal([]string{"b:destroyed", "a:destroyed"}, j.list()[6:])
}

func (s *ContextSuite) TestFailureNotification() {
	var failed []Notification
	plugin := PluginFunc(func(ready *Outcome[Components], _ *Outcome[struct{}], _ map[string]any) {
		ready.OnProgress(func(n Notification) {
			if n.Status == StatusFailed {
				failed = append(failed, n)
			}
		})
	})

	c := s.f.wire(s.T(), spec.NewMap().Set("a", spec.Create("broken")), WithPlugins(plugin))
	_, err := waitReady(s.T(), c)
	s.Require().Error(err)

	s.Require().Len(failed, 1)
	s.Equal("a", failed[0].Name)
	s.Same(c, failed[0].Context)
	s.ErrorIs(failed[0].Err, ErrConstruction)
}

func (s *ContextSuite) TestLateSubscriberReceivesHistory() {
	c := s.f.wire(s.T(), spec.NewMap().Set("a", spec.Literal(1)))
	_, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	var statuses []Status
	c.Ready().OnProgress(func(n Notification) { statuses = append(statuses, n.Status) })
	s.Equal([]Status{StatusCreated, StatusConfigured, StatusInitialized}, statuses)
}

func (s *ContextSuite) TestPluginsFromOptionsAndSpec() {
	var invoked []string
	var seenOptions map[string]any
	s.f.registry.
		MustRegister("observer", PluginFunc(func(*Outcome[Components], *Outcome[struct{}], map[string]any) {
			invoked = append(invoked, "observer")
		})).
		MustRegister("configured", func(_ *Outcome[Components], _ *Outcome[struct{}], options map[string]any) {
			invoked = append(invoked, "configured")
			seenOptions = options
		})

	direct := PluginFunc(func(ready *Outcome[Components], destroyed *Outcome[struct{}], _ map[string]any) {
		invoked = append(invoked, "direct")
		s.NotNil(ready)
		s.NotNil(destroyed)
	})

	c := s.f.wire(s.T(), spec.NewMap().
		Set(spec.KeyPlugins, []any{"observer", spec.NewMap().Set("module", "configured").Set("verbose", true)}).
		Set("a", spec.Literal(1)), WithPlugins(direct))

	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)
	s.Equal(Components{"a": 1}, components, "$plugins is not a component")
	s.Equal([]string{"direct", "observer", "configured"}, invoked)
	s.Equal(map[string]any{"verbose": true}, seenOptions)
}

func (s *ContextSuite) TestPluginLoadFailureRejectsContext() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set(spec.KeyPlugins, []any{"missing"}).
		Set("a", spec.Literal(1)))

	components, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrModuleLoad)
	s.Empty(components)
}

func (s *ContextSuite) TestNonPluginModuleRejectsContext() {
	c := s.f.wire(s.T(), spec.NewMap().Set(spec.KeyPlugins, "proto"))

	_, err := waitReady(s.T(), c)
	s.ErrorIs(err, ErrModuleLoad)
	s.Contains(err.Error(), "not a plugin")
}

func (s *ContextSuite) TestPluginAndListenerPanicsAreIsolated() {
	panicky := PluginFunc(func(ready *Outcome[Components], _ *Outcome[struct{}], _ map[string]any) {
		ready.OnProgress(func(Notification) { panic("listener") })
		ready.Then(func(Components) { panic("continuation") }, nil)
	})
	broken := PluginFunc(func(*Outcome[Components], *Outcome[struct{}], map[string]any) {
		panic("plugin")
	})

	c := s.f.wire(s.T(), spec.NewMap().Set("a", spec.Literal(1)), WithPlugins(panicky, broken))
	components, err := waitReady(s.T(), c)
	s.Require().NoError(err)
	s.Equal(Components{"a": 1}, components)
}

func (s *ContextSuite) TestMetrics() {
	c := s.f.wire(s.T(), spec.NewMap().
		Set("a", spec.Literal(1)).
		Set("b", spec.Create("M", spec.Ref("a"))))
	_, err := waitReady(s.T(), c)
	s.Require().NoError(err)

	metrics := c.Metrics()
	s.Require().Contains(metrics, "b")
	s.Equal(1, metrics["b"].DependencyCount)
	s.Equal(0, metrics["a"].DependencyCount)

	disabled := s.f.wire(s.T(), spec.NewMap().Set("a", spec.Literal(1)), WithMetrics(false))
	_, err = waitReady(s.T(), disabled)
	s.Require().NoError(err)
	s.Nil(disabled.Metrics())
}

func (s *ContextSuite) TestChildInheritsCustomCollector() {
	collector := NewMetricsCollector(true)
	parent := s.f.wire(s.T(), spec.NewMap().Set("a", spec.Literal(1)), WithMetricsCollector(collector))
	child := parent.Wire(context.Background(), spec.NewMap().Set("b", spec.Create("M", spec.Ref("a"))))
	_, err := waitReady(s.T(), child)
	s.Require().NoError(err)

	s.Contains(collector.GetMetrics(), "a")
	s.Contains(collector.GetMetrics(), "b")
	s.Equal(collector.GetMetrics(), child.Metrics())

	own := NewMetricsCollector(true)
	overridden := parent.Wire(context.Background(), spec.NewMap().Set("c", spec.Literal(2)), WithMetricsCollector(own))
	_, err = waitReady(s.T(), overridden)
	s.Require().NoError(err)
	s.Contains(own.GetMetrics(), "c")
	s.NotContains(collector.GetMetrics(), "c")
}

func (s *ContextSuite) TestEmptySpec() {
	components, err := waitReady(s.T(), s.f.wire(s.T(), nil))
	s.NoError(err)
	s.Empty(components)
}

type ChildContextSuite struct {
	suite.Suite
	f                *fixture
	parent           *Context
	parentComponents Components
}

func (s *ChildContextSuite) SetupTest() {
	s.f = newFixture()
	s.parent = s.f.wire(s.T(), spec.NewMap().
		Set("logger", spec.Create("service", "logger")).
		Set("name", spec.Literal("parent")))

	var err error
	s.parentComponents, err = waitReady(s.T(), s.parent)
	s.Require().NoError(err)
}

func TestChildContextSuite(t *testing.T) {
	suite.Run(t, new(ChildContextSuite))
}

func (s *ChildContextSuite) TestChildResolvesAncestorInstances() {
	child := s.parent.Wire(context.Background(), spec.NewMap().
		Set("svc", spec.Create("service", "svc", spec.Ref("logger"))))

	components, err := waitReady(s.T(), child)
	s.Require().NoError(err)

	s.Same(s.parentComponents["logger"], components["svc"].(*service).Deps[0])
	s.Equal(1, s.f.callCount("logger"), "ancestor components are not re-created")

	logger, ok := child.Lookup("logger")
	s.True(ok)
	s.Same(s.parentComponents["logger"], logger)
	s.Same(s.parent, child.Parent())
	s.Equal([]*Context{child}, s.parent.Children())
}

func (s *ChildContextSuite) TestLocalNamesShadowAncestors() {
	child := s.parent.Wire(context.Background(), spec.NewMap().
		Set("name", spec.Literal("child")).
		Set("echo", spec.Ref("name")))
	sibling := s.parent.Wire(context.Background(), spec.NewMap().
		Set("echo", spec.Ref("name")))

	childComponents, err := waitReady(s.T(), child)
	s.Require().NoError(err)
	siblingComponents, err := waitReady(s.T(), sibling)
	s.Require().NoError(err)

	s.Equal("child", childComponents["echo"])
	s.Equal("parent", siblingComponents["echo"])

	name, _ := s.parent.Lookup("name")
	s.Equal("parent", name)
	name, _ = child.Lookup("name")
	s.Equal("child", name)
}

func (s *ChildContextSuite) TestNearestAncestorWins() {
	middle := s.parent.Wire(context.Background(), spec.NewMap().Set("name", spec.Literal("middle")))
	leaf := middle.Wire(context.Background(), spec.NewMap().Set("echo", spec.Ref("name")))

	components, err := waitReady(s.T(), leaf)
	s.Require().NoError(err)
	s.Equal("middle", components["echo"])
}

func (s *ChildContextSuite) TestMaxDepthBoundsTraversal() {
	middle := s.parent.Wire(context.Background(), spec.NewMap())
	leaf := middle.Wire(context.Background(), spec.NewMap().Set("echo", spec.Ref("name")), WithMaxDepth(1))

	_, err := waitReady(s.T(), leaf)
	s.ErrorIs(err, ErrUnresolvedReference)
	s.Contains(err.Error(), "max depth")
}

func (s *ChildContextSuite) TestChildrenAreDestroyedFirst() {
	child := s.parent.Wire(context.Background(), spec.NewMap().
		Set("svc", spec.Create("service", "svc", spec.Ref("logger"))))
	_, err := waitReady(s.T(), child)
	s.Require().NoError(err)

	s.Require().NoError(waitDestroyed(s.T(), s.parent))
	s.Equal([]string{"destroy:svc", "destroy:logger"}, s.f.j.list())
	s.True(child.IsDestroyed())
}

func (s *ChildContextSuite) TestResolvingThroughDestroyedAncestorFails() {
	s.Require().NoError(waitDestroyed(s.T(), s.parent))

	child := s.parent.Wire(context.Background(), spec.NewMap().Set("echo", spec.Ref("name")))
	_, err := waitReady(s.T(), child)
	s.ErrorIs(err, ErrContextDestroyed)

	_, ok := child.Lookup("name")
	s.False(ok)
}

func (s *ChildContextSuite) TestChildFailureDoesNotAffectParent() {
	child := s.parent.Wire(context.Background(), spec.NewMap().Set("bad", spec.Ref("nothing")))
	_, err := waitReady(s.T(), child)
	s.ErrorIs(err, ErrUnresolvedReference)

	s.True(errors.Is(err, ErrWiring))
	_, err = waitReady(s.T(), s.parent)
	assert.NoError(s.T(), err)
	require.Len(s.T(), s.parent.Components(), 2)
}
