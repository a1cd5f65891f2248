package medic

import "errors"

// Standard errors returned by the orchestration core.
var (
	// ErrCircuitOpen is returned when a breaker rejects a call without
	// invoking the wrapped function.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrNotReady is the cause carried by a Result when a component is
	// dispatched to while not in the active state.
	ErrNotReady = errors.New("component is not ready")

	// ErrComponentNotFound is the cause carried by a Result when a dispatch
	// names a component that is not registered.
	ErrComponentNotFound = errors.New("component not found")

	// ErrMonitorRunning is returned when StartMonitoring is called while the
	// monitoring loop is already running.
	ErrMonitorRunning = errors.New("monitoring loop already running")

	// ErrNoMonitorTarget is returned when StartMonitoring is called without a
	// monitoring component configured.
	ErrNoMonitorTarget = errors.New("no monitoring component configured")

	// ErrJobNotFound is returned when removing a scheduled job that does not
	// exist.
	ErrJobNotFound = errors.New("scheduled job not found")
)

// ComponentError wraps an error with the component and operation it came from.
type ComponentError struct {
	Component string
	Op        string
	Err       error
}

// Error returns a formatted error message.
func (e *ComponentError) Error() string {
	return "component " + e.Component + " (" + e.Op + "): " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ComponentError) Unwrap() error {
	return e.Err
}

// BreakerError wraps a breaker rejection with the resource name it protects.
type BreakerError struct {
	Name string
	Err  error
}

// Error returns a formatted error message.
func (e *BreakerError) Error() string {
	return "breaker " + e.Name + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *BreakerError) Unwrap() error {
	return e.Err
}
