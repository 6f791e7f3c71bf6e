package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptimistic(t *testing.T) {
	opts := DefaultOptimistic()
	assert.Equal(t, NoJitter, opts.RegionBackoff.Kind)
	assert.Equal(t, 2*time.Millisecond, opts.RegionBackoff.BaseDelay)
	assert.Equal(t, 500*time.Millisecond, opts.RegionBackoff.MaxDelay)
	assert.Equal(t, 10, opts.RegionBackoff.MaxAttempts)
	assert.Equal(t, OptimisticBackoff, opts.LockBackoff)
	assert.Equal(t, NoBackoff, PessimisticBackoff.Kind)
}

func TestNoJitterSchedule(t *testing.T) {
	r := NoJitterBackoff(2*time.Millisecond, 20*time.Millisecond, 5).Start()

	var got []time.Duration
	for {
		d, ok := r.Next()
		if !ok {
			break
		}
		got = append(got, d)
	}

	assert.Equal(t, []time.Duration{
		2 * time.Millisecond,
		4 * time.Millisecond,
		8 * time.Millisecond,
		16 * time.Millisecond,
		20 * time.Millisecond,
	}, got)
	assert.Equal(t, 5, r.Attempts())
}

func TestNoBackoffNeverRetries(t *testing.T) {
	_, ok := NoBackoffPolicy().Start().Next()
	assert.False(t, ok)
}

func TestJitterStaysInBounds(t *testing.T) {
	policies := []Backoff{
		FullJitterBackoff(time.Millisecond, 50*time.Millisecond, 8),
		EqualJitterBackoff(time.Millisecond, 50*time.Millisecond, 8),
		DecorrelatedJitterBackoff(time.Millisecond, 50*time.Millisecond, 8),
	}

	for _, p := range policies {
		r := p.Start()
		n := 0
		for {
			d, ok := r.Next()
			if !ok {
				break
			}
			n++
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, p.MaxDelay)
		}
		assert.Equal(t, p.MaxAttempts, n)
	}
}
