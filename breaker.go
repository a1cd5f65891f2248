package medic

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the state of a circuit breaker.
type BreakerState string

const (
	// BreakerClosed lets calls through and counts consecutive failures
	BreakerClosed BreakerState = "closed"

	// BreakerOpen rejects calls without invoking the wrapped function
	BreakerOpen BreakerState = "open"

	// BreakerHalfOpen lets a bounded number of probe calls through
	BreakerHalfOpen BreakerState = "half_open"
)

// Default breaker configuration values.
const (
	// DefaultFailureThreshold is consecutive failures before opening
	DefaultFailureThreshold = 5

	// DefaultRecoveryTimeout is how long an open breaker waits before probing
	DefaultRecoveryTimeout = 30 * time.Second

	// DefaultHalfOpenMax is probe successes needed to close from half-open
	DefaultHalfOpenMax = 1
)

// Breaker isolates a failing dependency: after enough consecutive failures it
// opens and rejects calls immediately, bounding the latency and resource cost
// of a known-bad dependency. Once the recovery timeout elapses the next state
// read lazily moves it to half-open, where a bounded number of probe calls
// decide whether it closes again.
//
// All state transitions happen under the breaker's own lock. This is a
// low-contention primitive, not a hot path.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	halfOpenMax      int
	onOpen           func()
	onClose          func()

	// now is replaceable in tests
	now func() time.Time

	mu                sync.Mutex
	state             BreakerState
	failures          int
	lastFailure       time.Time
	halfOpenCalls     int
	halfOpenSuccesses int
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// FailureThreshold sets the consecutive failure count that opens the breaker.
func FailureThreshold(n int) BreakerOption {
	return func(b *Breaker) {
		b.failureThreshold = n
	}
}

// RecoveryTimeout sets how long the breaker stays open before allowing
// half-open probes.
func RecoveryTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		b.recoveryTimeout = d
	}
}

// HalfOpenMax sets the probe quota: both the number of calls allowed through
// while half-open and the successes needed to close.
func HalfOpenMax(n int) BreakerOption {
	return func(b *Breaker) {
		b.halfOpenMax = n
	}
}

// OnOpen registers a callback invoked when the breaker opens.
func OnOpen(fn func()) BreakerOption {
	return func(b *Breaker) {
		b.onOpen = fn
	}
}

// OnClose registers a callback invoked when the breaker closes.
func OnClose(fn func()) BreakerOption {
	return func(b *Breaker) {
		b.onClose = fn
	}
}

// NewBreaker creates a closed breaker for the named resource.
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: DefaultFailureThreshold,
		recoveryTimeout:  DefaultRecoveryTimeout,
		halfOpenMax:      DefaultHalfOpenMax,
		now:              time.Now,
		state:            BreakerClosed,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Name returns the resource name the breaker protects.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state. Reading the state of an open breaker past
// its recovery timeout lazily transitions it to half-open.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// stateLocked evaluates the lazy open → half-open transition. Caller must
// hold b.mu.
func (b *Breaker) stateLocked() BreakerState {
	if b.state == BreakerOpen && b.now().Sub(b.lastFailure) >= b.recoveryTimeout {
		b.state = BreakerHalfOpen
		b.halfOpenCalls = 0
		b.halfOpenSuccesses = 0
		slog.Info("circuit breaker half-open", "breaker", b.name)
	}
	return b.state
}

// allow decides whether a call may proceed. Open breakers, and half-open
// breakers whose probe quota is spent, reject with ErrCircuitOpen.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerOpen:
		return &BreakerError{Name: b.name, Err: ErrCircuitOpen}
	case BreakerHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMax {
			return &BreakerError{Name: b.name, Err: ErrCircuitOpen}
		}
		b.halfOpenCalls++
	}
	return nil
}

// recordSuccess resets the failure count when closed and advances the probe
// count when half-open, closing the breaker once the quota is satisfied.
func (b *Breaker) recordSuccess() {
	b.mu.Lock()

	var closed bool
	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.halfOpenMax {
			b.state = BreakerClosed
			b.failures = 0
			b.halfOpenCalls = 0
			b.halfOpenSuccesses = 0
			closed = true
		}
	}

	b.mu.Unlock()

	if closed {
		slog.Info("circuit breaker closed", "breaker", b.name)
		if b.onClose != nil {
			b.onClose()
		}
	}
}

// recordFailure counts the failure and opens the breaker at the threshold.
// Any failure while half-open reopens immediately and restarts the recovery
// timeout; the failure count is already at or above the threshold and stays.
func (b *Breaker) recordFailure() {
	b.mu.Lock()

	var opened bool
	b.lastFailure = b.now()
	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = BreakerOpen
			opened = true
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.halfOpenCalls = 0
		b.halfOpenSuccesses = 0
		opened = true
	}

	b.mu.Unlock()

	if opened {
		slog.Warn("circuit breaker opened", "breaker", b.name, "failures", b.Failures())
		if b.onOpen != nil {
			b.onOpen()
		}
	}
}

// Do runs fn through the breaker. When the breaker is open, fn is not invoked
// and Do returns a BreakerError wrapping ErrCircuitOpen so callers can take a
// fallback path with errors.Is.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// Call runs fn through the breaker and returns its value. It is the generic
// counterpart of [Breaker.Do] for wrapped functions that produce a result.
func Call[T any](b *Breaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := b.allow(); err != nil {
		return zero, err
	}

	v, err := fn(ctx)
	if err != nil {
		b.recordFailure()
		return zero, err
	}

	b.recordSuccess()
	return v, nil
}

// Breakers is a set of circuit breakers keyed by resource name. Independent
// call sites protecting the same dependency obtain the same breaker and
// coordinate through its state. Create one set at the application entry point
// and pass it by reference; there is no package-level instance.
type Breakers struct {
	mu sync.RWMutex
	m  map[string]*Breaker
}

// NewBreakers creates an empty breaker set.
func NewBreakers() *Breakers {
	return &Breakers{
		m: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use. Options apply
// only at creation; later calls for the same name return the existing breaker
// unchanged.
func (s *Breakers) Get(name string, opts ...BreakerOption) *Breaker {
	s.mu.RLock()
	b, ok := s.m[name]
	s.mu.RUnlock()

	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock
	if b, ok = s.m[name]; ok {
		return b
	}

	b = NewBreaker(name, opts...)
	s.m[name] = b
	slog.Info("circuit breaker created", "breaker", name)
	return b
}

// Snapshot returns the current state of every breaker in the set.
func (s *Breakers) Snapshot() map[string]BreakerState {
	s.mu.RLock()
	breakers := make([]*Breaker, 0, len(s.m))
	for _, b := range s.m {
		breakers = append(breakers, b)
	}
	s.mu.RUnlock()

	out := make(map[string]BreakerState, len(breakers))
	for _, b := range breakers {
		out[b.Name()] = b.State()
	}
	return out
}

// Protect wraps fn so every call goes through the named breaker from the set.
// The returned function has the same signature as fn.
func Protect[T any](set *Breakers, name string, fn func(context.Context) (T, error), opts ...BreakerOption) func(context.Context) (T, error) {
	b := set.Get(name, opts...)
	return func(ctx context.Context) (T, error) {
		return Call(b, ctx, fn)
	}
}
