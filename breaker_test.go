package medic

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("dependency down")

func failingCall(calls *int) func(context.Context) error {
	return func(ctx context.Context) error {
		*calls++
		return errDown
	}
}

func succeedingCall(calls *int) func(context.Context) error {
	return func(ctx context.Context) error {
		*calls++
		return nil
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker("disk", FailureThreshold(3), RecoveryTimeout(time.Hour))
	ctx := context.Background()

	calls := 0
	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, failingCall(&calls)); !errors.Is(err, errDown) {
			t.Fatalf("call %d: err = %v, want %v", i+1, err, errDown)
		}
	}

	if got := b.State(); got != BreakerOpen {
		t.Fatalf("State() = %q, want %q", got, BreakerOpen)
	}

	// 4th call fails fast without invoking the wrapped function.
	err := b.Do(ctx, failingCall(&calls))
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != 3 {
		t.Errorf("wrapped function invoked %d times, want 3", calls)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker("disk", FailureThreshold(3))
	ctx := context.Background()

	calls := 0
	b.Do(ctx, failingCall(&calls))
	b.Do(ctx, failingCall(&calls))
	b.Do(ctx, succeedingCall(&calls))

	if got := b.Failures(); got != 0 {
		t.Errorf("Failures() = %d, want 0", got)
	}
	if got := b.State(); got != BreakerClosed {
		t.Errorf("State() = %q, want %q", got, BreakerClosed)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker("disk",
		FailureThreshold(2),
		RecoveryTimeout(10*time.Millisecond),
		HalfOpenMax(2),
	)
	ctx := context.Background()

	calls := 0
	b.Do(ctx, failingCall(&calls))
	b.Do(ctx, failingCall(&calls))
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("State() = %q, want %q", got, BreakerOpen)
	}

	time.Sleep(20 * time.Millisecond)

	// Past the recovery timeout the state read lazily moves to half-open and
	// probe calls flow through.
	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("State() after timeout = %q, want %q", got, BreakerHalfOpen)
	}

	if err := b.Do(ctx, succeedingCall(&calls)); err != nil {
		t.Fatalf("probe 1 err = %v", err)
	}
	if got := b.State(); got != BreakerHalfOpen {
		t.Errorf("State() after one probe = %q, want %q", got, BreakerHalfOpen)
	}

	if err := b.Do(ctx, succeedingCall(&calls)); err != nil {
		t.Fatalf("probe 2 err = %v", err)
	}
	if got := b.State(); got != BreakerClosed {
		t.Errorf("State() after probe quota = %q, want %q", got, BreakerClosed)
	}
	if got := b.Failures(); got != 0 {
		t.Errorf("Failures() after close = %d, want 0", got)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("disk",
		FailureThreshold(2),
		RecoveryTimeout(15*time.Millisecond),
	)
	ctx := context.Background()

	calls := 0
	b.Do(ctx, failingCall(&calls))
	b.Do(ctx, failingCall(&calls))

	time.Sleep(25 * time.Millisecond)

	// Probe fails: straight back to open with a fresh recovery timeout.
	if err := b.Do(ctx, failingCall(&calls)); !errors.Is(err, errDown) {
		t.Fatalf("probe err = %v, want %v", err, errDown)
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("State() after failed probe = %q, want %q", got, BreakerOpen)
	}

	// Before another recovery timeout elapses, calls still fail fast.
	before := calls
	if err := b.Do(ctx, failingCall(&calls)); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != before {
		t.Errorf("wrapped function invoked while open")
	}
}

func TestBreakerHalfOpenProbeQuota(t *testing.T) {
	b := NewBreaker("disk",
		FailureThreshold(1),
		RecoveryTimeout(10*time.Millisecond),
		HalfOpenMax(1),
	)
	ctx := context.Background()

	calls := 0
	b.Do(ctx, failingCall(&calls))
	time.Sleep(20 * time.Millisecond)

	// First probe is admitted; its success closes the breaker.
	if err := b.Do(ctx, succeedingCall(&calls)); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if got := b.State(); got != BreakerClosed {
		t.Errorf("State() = %q, want %q", got, BreakerClosed)
	}
}

func TestBreakerCallbacks(t *testing.T) {
	opened, closedCount := 0, 0
	b := NewBreaker("disk",
		FailureThreshold(1),
		RecoveryTimeout(10*time.Millisecond),
		OnOpen(func() { opened++ }),
		OnClose(func() { closedCount++ }),
	)
	ctx := context.Background()

	calls := 0
	b.Do(ctx, failingCall(&calls))
	if opened != 1 {
		t.Errorf("OnOpen fired %d times, want 1", opened)
	}

	time.Sleep(20 * time.Millisecond)
	b.Do(ctx, succeedingCall(&calls))
	if closedCount != 1 {
		t.Errorf("OnClose fired %d times, want 1", closedCount)
	}
}

func TestCallReturnsValue(t *testing.T) {
	b := NewBreaker("disk")

	v, err := Call(b, context.Background(), func(ctx context.Context) (string, error) {
		return "healthy", nil
	})
	if err != nil {
		t.Fatalf("Call err = %v", err)
	}
	if v != "healthy" {
		t.Errorf("Call value = %q, want %q", v, "healthy")
	}
}

func TestBreakersSharedByName(t *testing.T) {
	set := NewBreakers()

	a := set.Get("backup-volume", FailureThreshold(1))
	b := set.Get("backup-volume")
	if a != b {
		t.Fatal("Get() should return the same breaker for the same name")
	}

	// The shared state means one call site's failures affect the other.
	a.Do(context.Background(), func(ctx context.Context) error { return errDown })
	if got := b.State(); got != BreakerOpen {
		t.Errorf("shared breaker State() = %q, want %q", got, BreakerOpen)
	}
}

func TestBreakersSnapshot(t *testing.T) {
	set := NewBreakers()
	set.Get("a")
	set.Get("b", FailureThreshold(1))
	set.Get("b").Do(context.Background(), func(ctx context.Context) error { return errDown })

	snap := set.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() has %d entries, want 2", len(snap))
	}
	if snap["a"] != BreakerClosed {
		t.Errorf("a state = %q, want %q", snap["a"], BreakerClosed)
	}
	if snap["b"] != BreakerOpen {
		t.Errorf("b state = %q, want %q", snap["b"], BreakerOpen)
	}
}

func TestProtectWrapsCallable(t *testing.T) {
	set := NewBreakers()
	calls := 0

	fetch := Protect(set, "volume", func(ctx context.Context) (int, error) {
		calls++
		return 0, errDown
	}, FailureThreshold(2), RecoveryTimeout(time.Hour))

	ctx := context.Background()
	fetch(ctx)
	fetch(ctx)

	_, err := fetch(ctx)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != 2 {
		t.Errorf("wrapped function invoked %d times, want 2", calls)
	}
}
