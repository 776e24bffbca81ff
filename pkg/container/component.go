package container

import "context"

// Components maps component names to their fully initialized instances.
type Components map[string]any

// Initializer is called after a component's named init methods ran.
type Initializer interface {
	Init(ctx context.Context) error
}

// Destroyer is called when the owning context is torn down
type Destroyer interface {
	Destroy(ctx context.Context) error
}

// PropertySetter lets a component receive properties without reflection.
type PropertySetter interface {
	SetProperty(name string, value any) error
}

// Status is a lifecycle state and the status carried by notifications.
type Status string

const (
	StatusPending     Status = "pending"
	StatusCreated     Status = "created"
	StatusConfigured  Status = "configured"
	StatusInitialized Status = "initialized"
	StatusDestroyed   Status = "destroyed"
	StatusFailed      Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// Notification is broadcast on every lifecycle transition.
type Notification struct {
	// Context is the context that owns the component
	Context *Context
	Name    string
	// Target is the component instance, nil before creation
	Target any
	Status Status
	// Spec is the raw definition from the spec
	Spec any
	// Err is set when Status is StatusFailed
	Err error
}
