// Package medic provides the component orchestration core for pluggable
// recovery and maintenance modules: a lifecycle registry, a supervisor with
// a background monitoring loop, and fault-isolation primitives (circuit
// breaker and retry with exponential backoff).
//
// Medic is the part of a system-health toolkit that knows nothing about what
// a module actually repairs. It only knows whether a module is ready, how it
// failed, and how to keep one failing module from taking the rest down.
//
// # Quick Start
//
// Register components with a registry, wrap them in a supervisor:
//
//	registry := medic.NewRegistry()
//	registry.Register(medic.NewComponent("disk-cleanup", cleanupImpl))
//	registry.Register(medic.NewComponent("health-probe", probeImpl))
//
//	sup := medic.NewSupervisor(registry,
//	    medic.WithMonitorTarget("health-probe"),
//	    medic.WithMonitorInterval(30*time.Second),
//	)
//
//	results := sup.Initialize(ctx)
//	for name, r := range results {
//	    if !r.Success {
//	        log.Printf("%s failed: %v", name, r.Err)
//	    }
//	}
//
//	res := sup.Dispatch(ctx, "disk-cleanup", map[string]any{"target": "temp"})
//
// Every lifecycle operation returns a Result value; expected failures (a
// component that is not ready, an initialization that blew up) never
// propagate as panics or error returns across the registry boundary.
//
// # Component Lifecycle
//
// A component moves through a fixed state machine:
//
//	inactive → initializing → active | error
//	active → stopping → inactive
//
// Execute is gated on the active state: dispatching to a component in any
// other state fails fast with a not-ready Result and the component's own
// logic is never invoked. A component in the error state may be re-entered
// into initializing by a later Initialize.
//
// # Fault Isolation
//
// Circuit breakers are shared by resource name so independent call sites
// protecting the same dependency coordinate through one piece of state:
//
//	breakers := medic.NewBreakers()
//	fetch := medic.Protect(breakers, "backup-volume", rawFetch,
//	    medic.FailureThreshold(3),
//	    medic.RecoveryTimeout(time.Minute),
//	)
//
// The retry policy re-attempts retryable failures with exponential backoff
// and refuses to retry anything its predicate classifies as fatal:
//
//	policy := medic.RetryPolicy{
//	    MaxRetries: 2,
//	    Base:       time.Second,
//	    Retryable:  medic.RetryableOn(io.ErrUnexpectedEOF),
//	}
//	v, err := medic.Retry(ctx, policy, flakyCall)
//
// Breaker rejections and retry exhaustion are the only places the core
// surfaces plain errors: both wrappers operate below the component contract,
// and callers need errors.Is to branch on them.
//
// # Architecture
//
// The main components are:
//
//   - Component: a named unit of work with a managed lifecycle state machine
//   - Registry: owns all components; thread-safe registration and aggregate
//     initialize/cleanup that tolerate partial failure
//   - Supervisor: owns one registry; dispatch, status snapshots, and the
//     background monitoring loop
//   - Breaker / Breakers: named circuit breakers with lazy creation
//   - RetryPolicy: stateless retry with exponential backoff
//   - Scheduler: cron-driven recurring dispatches through a supervisor
//
// # Thread Safety
//
// All exported types are safe for concurrent use. There are no package-level
// registries: create Registry and Breakers values at your entry point and
// pass them by reference.
package medic
