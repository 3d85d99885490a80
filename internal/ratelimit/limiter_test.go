package ratelimit_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/ratelimit"
	"github.com/shida/shida-core/internal/testutil"
)

func newLimiter(clock *testutil.Clock) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.WithClock(clock.Now))
}

func TestLoginBlocksAfterFiveAttempts(t *testing.T) {
	clock := &testutil.Clock{T: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	l := newLimiter(clock)

	for i := 0; i < 5; i++ {
		ok, err := l.Check("10.0.0.1", "login")
		require.True(t, ok, "attempt %d", i+1)
		require.NoError(t, err)
	}

	ok, err := l.Check("10.0.0.1", "login")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, errors.KindRateLimited, errors.KindOf(err))
	assert.True(t, l.Blocked("10.0.0.1", "login"))

	// seventh attempt inside the block does not grow the window
	clock.Advance(time.Minute)
	ok, err = l.Check("10.0.0.1", "login")
	assert.False(t, ok)
	require.Error(t, err)
	var rlErr *errors.Error
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 14*time.Minute, rlErr.RetryAfter)
	assert.Equal(t, 0, l.Remaining("10.0.0.1", "login"))
}

func TestBlockExpiresAndWindowSlides(t *testing.T) {
	clock := &testutil.Clock{T: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	l := newLimiter(clock)

	for i := 0; i < 6; i++ {
		_, _ = l.Check("u1", "login")
	}
	require.True(t, l.Blocked("u1", "login"))

	clock.Advance(15*time.Minute + time.Second)
	assert.False(t, l.Blocked("u1", "login"))
	assert.Equal(t, 5, l.Remaining("u1", "login"))

	ok, err := l.Check("u1", "login")
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 4, l.Remaining("u1", "login"))
}

func TestKeysAreIndependent(t *testing.T) {
	clock := &testutil.Clock{T: time.Now()}
	l := ratelimit.New(
		ratelimit.WithClock(clock.Now),
		ratelimit.WithRule("login", ratelimit.Rule{MaxRequests: 1, Window: time.Minute, Block: time.Minute}),
	)

	ok, _ := l.Check("a", "login")
	assert.True(t, ok)
	ok, _ = l.Check("a", "login")
	assert.False(t, ok)

	ok, _ = l.Check("b", "login")
	assert.True(t, ok, "other identifier")
	ok, _ = l.Check("a", "message")
	assert.True(t, ok, "other action")
}

func TestUnknownActionUsesDefault(t *testing.T) {
	l := ratelimit.New()
	assert.Equal(t, 60, l.Remaining("x", "something_new"))
}

func TestReset(t *testing.T) {
	clock := &testutil.Clock{T: time.Now()}
	l := newLimiter(clock)

	for i := 0; i < 6; i++ {
		_, _ = l.Check("u1", "login")
	}
	_, _ = l.Check("u1", "message")
	_, _ = l.Check("u2", "message")

	l.Reset("u1", "login")
	assert.False(t, l.Blocked("u1", "login"))
	assert.Equal(t, 5, l.Remaining("u1", "login"))
	assert.Equal(t, 49, l.Remaining("u1", "message"))

	l.Reset("u1", "")
	assert.Equal(t, 50, l.Remaining("u1", "message"))
	assert.Equal(t, 49, l.Remaining("u2", "message"), "other identifiers untouched")
}

func TestResetDoesNotTouchLookalikeIdentifiers(t *testing.T) {
	clock := &testutil.Clock{T: time.Now()}
	l := ratelimit.New(
		ratelimit.WithClock(clock.Now),
		ratelimit.WithRule("login", ratelimit.Rule{MaxRequests: 1, Window: time.Minute, Block: time.Hour}),
	)

	for _, id := range []string{"10.0.0.1:1", "::ffff:1.2.3.4"} {
		_, _ = l.Check(id, "login")
		ok, _ := l.Check(id, "login")
		require.False(t, ok)
	}

	l.Reset("1", "")
	l.Reset("1.2.3.4", "")

	assert.True(t, l.Blocked("10.0.0.1:1", "login"))
	assert.True(t, l.Blocked("::ffff:1.2.3.4", "login"))

	l.Reset("10.0.0.1:1", "")
	assert.False(t, l.Blocked("10.0.0.1:1", "login"))
	assert.True(t, l.Blocked("::ffff:1.2.3.4", "login"))
}

func TestConcurrentChecksNeverExceedLimit(t *testing.T) {
	l := ratelimit.New(ratelimit.WithRule("swipe", ratelimit.Rule{
		MaxRequests: 50, Window: time.Hour, Block: time.Minute,
	}))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Check("u1", "swipe"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed, fmt.Sprintf("allowed=%d", allowed))
}
