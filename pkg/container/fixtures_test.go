package container

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/01fortes/gowire/pkg/spec"
)

const testTimeout = 5 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// journal is a goroutine-safe event log shared by fixtures.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type service struct {
	Name  string
	Deps  []any
	Peer  any `wire:"peer"`
	Level int
	inits []string
	j     *journal
}

func (s *service) Start(prefix string) {
	s.inits = append(s.inits, prefix+s.Name)
}

func (s *service) Init(context.Context) error {
	s.inits = append(s.inits, "Init")
	return nil
}

func (s *service) Destroy(context.Context) error {
	s.j.add("destroy:" + s.Name)
	return nil
}

type failingCloser struct {
	name string
	j    *journal
}

func (f *failingCloser) Close() error {
	f.j.add("close:" + f.name)
	return errors.New(f.name + " refused to close")
}

type point struct {
	X int
	Y int
}

type config struct {
	Host string
	Port int
}

// fixture bundles a registry with call counters for one test.
type fixture struct {
	j        *journal
	registry *Registry
	mu       sync.Mutex
	calls    map[string]int
}

func newFixture() *fixture {
	f := &fixture{
		j:        &journal{},
		registry: NewRegistry(discardLogger()),
		calls:    make(map[string]int),
	}
	f.registry.
		MustRegister("service", func(name string, deps ...any) *service {
			f.count(name)
			return &service{Name: name, Deps: deps, j: f.j}
		}).
		MustRegister("broken", func() (*service, error) {
			return nil, errors.New("boom")
		}).
		MustRegister("closer", func(name string) *failingCloser {
			return &failingCloser{name: name, j: f.j}
		}).
		MustRegister("point", func(x, y int) point {
			return point{X: x, Y: y}
		}).
		MustRegister("M", func(v int) *point {
			return &point{X: v}
		}).
		MustRegister("typed", reflect.TypeOf(point{})).
		MustRegister("proto", &config{Host: "localhost", Port: 80})
	return f
}

func (f *fixture) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fixture) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fixture) wire(t *testing.T, s *spec.Map, opts ...Option) *Context {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger()), WithLoader(f.registry)}, opts...)
	return Wire(context.Background(), s, opts...)
}

func waitReady(t *testing.T, c *Context) (Components, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	components, err := c.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return components, err
}

func waitDestroyed(t *testing.T, c *Context) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	_, err := c.Destroy(context.Background()).Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

// recorder is a plugin that logs every notification as "name:status".
func recorder(j *journal) Plugin {
	return PluginFunc(func(ready *Outcome[Components], destroyed *Outcome[struct{}], _ map[string]any) {
		record := func(n Notification) { j.add(n.Name + ":" + n.Status.String()) }
		ready.OnProgress(record)
		destroyed.OnProgress(record)
	})
}
