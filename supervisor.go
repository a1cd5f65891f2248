package medic

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Default supervisor configuration values.
const (
	// DefaultMonitorInterval is the monitoring loop interval
	DefaultMonitorInterval = 30 * time.Second

	// DefaultMonitorCooldown is the extra sleep after a panicked iteration
	DefaultMonitorCooldown = 2 * time.Minute

	// DefaultJoinTimeout bounds the wait for the monitoring loop to stop
	DefaultJoinTimeout = 10 * time.Second
)

// Supervisor owns one Registry and exposes the narrow public surface that
// GUI and CLI layers consume: initialize, dispatch, status, and a background
// monitoring loop that periodically drives a designated component.
type Supervisor struct {
	registry *Registry

	monitorTarget string
	interval      time.Duration
	cooldown      time.Duration
	joinTimeout   time.Duration

	// mu guards the monitoring loop lifecycle
	mu       sync.Mutex
	stopCh   chan struct{}
	loopDone chan struct{}
	running  bool

	// Lifecycle callbacks
	onReady    []func(name string)
	onFailed   []func(name string, err error)
	onTick     []func(name string, r Result)
	callbackMu sync.RWMutex
}

// ComponentStatus is one entry in a status snapshot.
type ComponentStatus struct {
	ID    string `json:"id"`
	State State  `json:"state"`
	Ready bool   `json:"ready"`
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithMonitorTarget names the component the monitoring loop dispatches to.
func WithMonitorTarget(name string) SupervisorOption {
	return func(s *Supervisor) {
		s.monitorTarget = name
	}
}

// WithMonitorInterval sets the monitoring loop interval.
func WithMonitorInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.interval = d
	}
}

// WithMonitorCooldown sets the extra sleep after a panicked loop iteration.
func WithMonitorCooldown(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.cooldown = d
	}
}

// WithJoinTimeout bounds the wait in StopMonitoring for the current loop
// iteration to finish.
func WithJoinTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.joinTimeout = d
	}
}

// NewSupervisor creates a supervisor over the given registry.
func NewSupervisor(registry *Registry, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		registry:    registry,
		interval:    DefaultMonitorInterval,
		cooldown:    DefaultMonitorCooldown,
		joinTimeout: DefaultJoinTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the registry the supervisor owns.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// Register delegates to the registry.
func (s *Supervisor) Register(c *Component) bool {
	return s.registry.Register(c)
}

// Initialize drives every registered component's Initialize and returns one
// Result per component. Failures are isolated per component and reported
// through the map; nothing is raised.
func (s *Supervisor) Initialize(ctx context.Context) map[string]Result {
	results := s.registry.InitializeAll(ctx)

	for name, res := range results {
		if res.Success {
			s.emitReady(name)
		} else {
			s.emitFailed(name, res.Err)
		}
	}

	return results
}

// Ready reports overall readiness: every registered component is active.
func (s *Supervisor) Ready() bool {
	for _, c := range s.registry.All() {
		if !c.Ready() {
			return false
		}
	}
	return true
}

// Dispatch forwards work to the named component. An unknown name yields a
// not-found Result and a non-active component yields a not-ready Result; in
// both cases the component's execute logic is never invoked.
func (s *Supervisor) Dispatch(ctx context.Context, name string, params map[string]any) Result {
	c, ok := s.registry.Get(name)
	if !ok {
		return Fail("component "+name+" not found",
			&ComponentError{Component: name, Op: "dispatch", Err: ErrComponentNotFound})
	}

	return c.Execute(ctx, params)
}

// Status returns a read-only snapshot of every component's state and
// readiness for callers to poll.
func (s *Supervisor) Status() map[string]ComponentStatus {
	all := s.registry.All()

	out := make(map[string]ComponentStatus, len(all))
	for name, c := range all {
		state := c.State()
		out[name] = ComponentStatus{
			ID:    c.ID(),
			State: state,
			Ready: state == StateActive,
		}
	}
	return out
}

// StatusJSON encodes the status snapshot for GUI and CLI pollers.
func (s *Supervisor) StatusJSON() ([]byte, error) {
	return json.Marshal(s.Status())
}

// StartMonitoring starts the background monitoring loop. Exactly one loop
// runs at a time; starting twice returns ErrMonitorRunning.
func (s *Supervisor) StartMonitoring() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrMonitorRunning
	}
	if s.monitorTarget == "" {
		return ErrNoMonitorTarget
	}

	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.running = true

	go s.monitorLoop(s.stopCh, s.loopDone)
	return nil
}

// StopMonitoring signals the loop to stop and waits for the current
// iteration to finish, bounded by the join timeout. Safe to call when the
// loop is not running.
func (s *Supervisor) StopMonitoring() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	done := s.loopDone
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(s.joinTimeout):
		slog.Warn("monitoring loop did not stop within join timeout",
			"timeout", s.joinTimeout)
	}
}

// Shutdown stops the monitoring loop and tears down every component,
// tolerating individual cleanup failures and reporting them per component.
func (s *Supervisor) Shutdown(ctx context.Context) map[string]Result {
	s.StopMonitoring()

	results := s.registry.CleanupAll(ctx)
	for name, res := range results {
		if !res.Success {
			slog.Warn("component cleanup failed during shutdown",
				"component", name,
				"error", res.Err,
			)
		}
	}

	slog.Info("supervisor shut down", "components", len(results))
	return results
}

// monitorLoop dispatches to the monitoring component on a fixed interval. A
// single bad iteration never terminates the loop: an unexpected panic is
// logged and followed by a longer cooldown sleep before the loop continues.
func (s *Supervisor) monitorLoop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("monitoring started",
		"component", s.monitorTarget,
		"interval", s.interval,
	)

	for {
		select {
		case <-stopCh:
			slog.Info("monitoring stopped", "component", s.monitorTarget)
			return
		case <-ticker.C:
			if !s.monitorTick() {
				select {
				case <-stopCh:
					slog.Info("monitoring stopped", "component", s.monitorTarget)
					return
				case <-time.After(s.cooldown):
				}
			}
		}
	}
}

// monitorTick runs one monitoring dispatch and logs the outcome. A failure
// Result is expected control flow and only logged; the return value is false
// only when the iteration panicked and the loop should cool down.
func (s *Supervisor) monitorTick() (ok bool) {
	ok = true
	defer func() {
		if r := recover(); r != nil {
			slog.Error("monitoring iteration panicked", "panic", r)
			ok = false
		}
	}()

	res := s.Dispatch(context.Background(), s.monitorTarget, nil)
	s.emitTick(s.monitorTarget, res)

	if res.Success {
		slog.Debug("monitoring tick ok", "component", s.monitorTarget)
	} else {
		slog.Warn("monitoring tick failed",
			"component", s.monitorTarget,
			"message", res.Message,
			"error", res.Err,
		)
	}
	return ok
}

// OnComponentReady registers a callback invoked when a component reaches the
// active state during Initialize.
func (s *Supervisor) OnComponentReady(fn func(name string)) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.onReady = append(s.onReady, fn)
}

// OnComponentFailed registers a callback invoked when a component's
// initialization fails.
func (s *Supervisor) OnComponentFailed(fn func(name string, err error)) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.onFailed = append(s.onFailed, fn)
}

// OnMonitorTick registers a callback invoked with each monitoring outcome.
func (s *Supervisor) OnMonitorTick(fn func(name string, r Result)) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.onTick = append(s.onTick, fn)
}

// emitReady notifies ready callbacks.
func (s *Supervisor) emitReady(name string) {
	s.callbackMu.RLock()
	callbacks := make([]func(string), len(s.onReady))
	copy(callbacks, s.onReady)
	s.callbackMu.RUnlock()

	for _, fn := range callbacks {
		go fn(name)
	}
}

// emitFailed notifies failure callbacks.
func (s *Supervisor) emitFailed(name string, err error) {
	s.callbackMu.RLock()
	callbacks := make([]func(string, error), len(s.onFailed))
	copy(callbacks, s.onFailed)
	s.callbackMu.RUnlock()

	for _, fn := range callbacks {
		go fn(name, err)
	}
}

// emitTick notifies monitoring callbacks synchronously so pollers observe
// ticks in order.
func (s *Supervisor) emitTick(name string, r Result) {
	s.callbackMu.RLock()
	callbacks := make([]func(string, Result), len(s.onTick))
	copy(callbacks, s.onTick)
	s.callbackMu.RUnlock()

	for _, fn := range callbacks {
		fn(name, r)
	}
}
