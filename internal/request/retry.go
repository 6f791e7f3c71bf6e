package request

import (
	"math/rand/v2"
	"time"
)

// BackoffKind selects how delays grow between attempts.
type BackoffKind uint8

const (
	// NoBackoff never retries.
	NoBackoff BackoffKind = iota
	// NoJitter doubles the delay every attempt, capped at MaxDelay.
	NoJitter
	// FullJitter picks uniformly in [0, exponential delay].
	FullJitter
	// EqualJitter keeps half the exponential delay and randomises the rest.
	EqualJitter
	// DecorrelatedJitter picks in [BaseDelay, 3*previous delay].
	DecorrelatedJitter
)

// Backoff is a retry schedule. It is a plain value; Start produces the
// per-dispatch state.
type Backoff struct {
	Kind        BackoffKind
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// NoBackoffPolicy returns a schedule that gives up immediately.
func NoBackoffPolicy() Backoff {
	return Backoff{Kind: NoBackoff}
}

// NoJitterBackoff returns an exponential schedule without randomisation.
func NoJitterBackoff(base, max time.Duration, attempts int) Backoff {
	return Backoff{Kind: NoJitter, BaseDelay: base, MaxDelay: max, MaxAttempts: attempts}
}

// FullJitterBackoff returns an exponential schedule with full jitter.
func FullJitterBackoff(base, max time.Duration, attempts int) Backoff {
	return Backoff{Kind: FullJitter, BaseDelay: base, MaxDelay: max, MaxAttempts: attempts}
}

// EqualJitterBackoff returns an exponential schedule with equal jitter.
func EqualJitterBackoff(base, max time.Duration, attempts int) Backoff {
	return Backoff{Kind: EqualJitter, BaseDelay: base, MaxDelay: max, MaxAttempts: attempts}
}

// DecorrelatedJitterBackoff returns a decorrelated jitter schedule.
func DecorrelatedJitterBackoff(base, max time.Duration, attempts int) Backoff {
	return Backoff{Kind: DecorrelatedJitter, BaseDelay: base, MaxDelay: max, MaxAttempts: attempts}
}

var (
	DefaultRegionBackoff = NoJitterBackoff(2*time.Millisecond, 500*time.Millisecond, 10)
	OptimisticBackoff    = NoJitterBackoff(2*time.Millisecond, 500*time.Millisecond, 10)
	PessimisticBackoff   = NoBackoffPolicy()
)

// RetryOptions tells the executor how to retry a dispatched request.
// RegionBackoff governs region, topology and transport failures.
// LockBackoff governs lock conflicts; raw requests take no locks, so the
// cluster executor never consults it.
type RetryOptions struct {
	RegionBackoff Backoff
	LockBackoff   Backoff
}

// DefaultOptimistic is the policy every raw operation is dispatched with.
func DefaultOptimistic() RetryOptions {
	return RetryOptions{
		RegionBackoff: DefaultRegionBackoff,
		LockBackoff:   OptimisticBackoff,
	}
}

// Retrier walks a Backoff schedule for one dispatch.
type Retrier struct {
	policy   Backoff
	attempts int
	last     time.Duration
	jitter   func(n int64) int64
}

// Start begins a fresh walk of the schedule.
func (b Backoff) Start() *Retrier {
	return &Retrier{policy: b, last: b.BaseDelay, jitter: rand.Int64N}
}

// Attempts returns how many delays have been handed out.
func (r *Retrier) Attempts() int {
	return r.attempts
}

// Next returns the delay before the next attempt, or false once the schedule
// is exhausted.
func (r *Retrier) Next() (time.Duration, bool) {
	p := r.policy
	if p.Kind == NoBackoff || r.attempts >= p.MaxAttempts {
		return 0, false
	}
	exp := p.BaseDelay << uint(r.attempts)
	if exp > p.MaxDelay || (exp <= 0 && p.BaseDelay > 0) {
		exp = p.MaxDelay
	}
	r.attempts++

	var delay time.Duration
	switch p.Kind {
	case NoJitter:
		delay = exp
	case FullJitter:
		delay = r.randUpTo(exp)
	case EqualJitter:
		half := exp / 2
		delay = half + r.randUpTo(exp-half)
	case DecorrelatedJitter:
		upper := r.last * 3
		if upper > p.MaxDelay {
			upper = p.MaxDelay
		}
		if upper < p.BaseDelay {
			upper = p.BaseDelay
		}
		delay = p.BaseDelay + r.randUpTo(upper-p.BaseDelay)
	}
	r.last = delay
	return delay, true
}

func (r *Retrier) randUpTo(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(r.jitter(int64(d) + 1))
}
