package medic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle state of a component.
type State string

const (
	// StateInactive is the initial state and the state after cleanup
	StateInactive State = "inactive"

	// StateInitializing is occupied while Initialize runs
	StateInitializing State = "initializing"

	// StateActive means the component is ready to execute work
	StateActive State = "active"

	// StateStopping is occupied while Cleanup runs
	StateStopping State = "stopping"

	// StateError means the last initialization failed; a later Initialize
	// may re-enter StateInitializing
	StateError State = "error"
)

// Lifecycle is the pluggable part of a component. Implementations provide the
// actual work; the Component wrapper owns state transitions, readiness gating
// and failure capture. An implementation may return errors or panic freely —
// neither escapes the Component boundary.
type Lifecycle interface {
	// Init prepares the component for work
	Init(ctx context.Context, cfg Config) error

	// Execute performs one unit of work with free-form parameters
	Execute(ctx context.Context, params map[string]any) (any, error)

	// Cleanup releases whatever Init acquired
	Cleanup(ctx context.Context) error
}

// Funcs adapts plain functions into a Lifecycle. Nil fields are no-ops, so a
// trivial component only fills in what it needs.
type Funcs struct {
	InitFunc    func(ctx context.Context, cfg Config) error
	ExecuteFunc func(ctx context.Context, params map[string]any) (any, error)
	CleanupFunc func(ctx context.Context) error
}

// Init calls InitFunc if set.
func (f Funcs) Init(ctx context.Context, cfg Config) error {
	if f.InitFunc == nil {
		return nil
	}
	return f.InitFunc(ctx, cfg)
}

// Execute calls ExecuteFunc if set.
func (f Funcs) Execute(ctx context.Context, params map[string]any) (any, error) {
	if f.ExecuteFunc == nil {
		return nil, nil
	}
	return f.ExecuteFunc(ctx, params)
}

// Cleanup calls CleanupFunc if set.
func (f Funcs) Cleanup(ctx context.Context) error {
	if f.CleanupFunc == nil {
		return nil
	}
	return f.CleanupFunc(ctx)
}

// Component is a named unit of work with a managed lifecycle. It wraps a
// Lifecycle implementation and guarantees the state machine:
//
//	inactive → initializing → active | error
//	active → stopping → inactive
//	error → initializing (on a later Initialize)
//
// Execute is legal only while active; called in any other state it fails fast
// with a not-ready Result without touching the implementation.
type Component struct {
	name   string
	id     string
	config Config
	impl   Lifecycle

	mu    sync.Mutex
	state State
}

// ComponentOption configures a Component.
type ComponentOption func(*Component)

// WithConfig sets the opaque configuration mapping passed to Init.
func WithConfig(cfg Config) ComponentOption {
	return func(c *Component) {
		c.config = cfg
	}
}

// NewComponent creates a component wrapping the given lifecycle
// implementation. The component starts inactive and is stamped with a unique
// instance ID.
func NewComponent(name string, impl Lifecycle, opts ...ComponentOption) *Component {
	c := &Component{
		name:  name,
		id:    uuid.New().String()[:8],
		impl:  impl,
		state: StateInactive,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the component name.
func (c *Component) Name() string {
	return c.name
}

// ID returns the instance ID stamped at creation.
func (c *Component) ID() string {
	return c.id
}

// Config returns the configuration mapping.
func (c *Component) Config() Config {
	return c.config
}

// State returns the current lifecycle state.
func (c *Component) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready reports whether the component is active and legal to dispatch to.
func (c *Component) Ready() bool {
	return c.State() == StateActive
}

// Initialize drives the component to the active state. On any failure,
// including a panic in the implementation, the component ends in the error
// state and the cause is captured into the returned Result; nothing
// propagates to the caller. Initializing an already-active component is a
// no-op success.
func (c *Component) Initialize(ctx context.Context) Result {
	c.mu.Lock()
	if c.state == StateActive {
		c.mu.Unlock()
		return Ok("already active")
	}
	c.state = StateInitializing
	c.mu.Unlock()

	err := c.runInit(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		slog.Warn("component initialization failed",
			"component", c.name,
			"id", c.id,
			"error", err,
		)
		return Fail("initialization failed", &ComponentError{Component: c.name, Op: "initialize", Err: err})
	}

	c.state = StateActive
	slog.Info("component active", "component", c.name, "id", c.id)
	return Ok("initialized")
}

// Execute performs one unit of work. It is legal only while the component is
// active; otherwise it fails fast with a not-ready Result and the
// implementation is never invoked. The readiness check and a concurrent
// Cleanup may still race once Execute is in flight — serializing that is the
// implementation's concern, not a guarantee of this wrapper.
func (c *Component) Execute(ctx context.Context, params map[string]any) Result {
	c.mu.Lock()
	if c.state != StateActive {
		state := c.state
		c.mu.Unlock()
		return Fail("component is "+string(state),
			&ComponentError{Component: c.name, Op: "execute", Err: ErrNotReady})
	}
	c.mu.Unlock()

	data, err := c.runExecute(ctx, params)
	if err != nil {
		slog.Warn("component execution failed",
			"component", c.name,
			"error", err,
		)
		return Fail("execution failed", &ComponentError{Component: c.name, Op: "execute", Err: err})
	}

	return OkData("executed", data)
}

// Cleanup tears the component down. It is legal from any state, transiently
// occupies the stopping state so concurrent readiness checks see not-ready,
// and always ends inactive regardless of whether the cleanup logic itself
// reported a failure.
func (c *Component) Cleanup(ctx context.Context) Result {
	c.mu.Lock()
	c.state = StateStopping
	c.mu.Unlock()

	err := c.runCleanup(ctx)

	c.mu.Lock()
	c.state = StateInactive
	c.mu.Unlock()

	if err != nil {
		slog.Warn("component cleanup failed",
			"component", c.name,
			"error", err,
		)
		return Fail("cleanup failed", &ComponentError{Component: c.name, Op: "cleanup", Err: err})
	}

	slog.Info("component cleaned up", "component", c.name, "id", c.id)
	return Ok("cleaned up")
}

// runInit invokes the implementation with panic capture.
func (c *Component) runInit(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.impl.Init(ctx, c.config)
}

// runExecute invokes the implementation with panic capture.
func (c *Component) runExecute(ctx context.Context, params map[string]any) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.impl.Execute(ctx, params)
}

// runCleanup invokes the implementation with panic capture.
func (c *Component) runCleanup(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.impl.Cleanup(ctx)
}
