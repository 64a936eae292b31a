//go:build unit

package editlock

import (
	"errors"
	"fmt"
	"fyrewiki/internal/logger"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock for the coordinator.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCoordinator() (*Coordinator, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now)), clock
}

const threshold = 20 * time.Second

func TestAcquire(t *testing.T) {
	c, _ := newTestCoordinator()

	owner, ok := c.Acquire("Home", "ada@example.com")
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", owner)
	assert.True(t, c.IsOwner("Home", "ada@example.com"))

	owner, ok = c.Acquire("Home", "bob@example.com")
	assert.False(t, ok, "a second editor must not steal the lock")
	assert.Equal(t, "ada@example.com", owner)
	assert.False(t, c.IsOwner("Home", "bob@example.com"))
	assert.True(t, c.IsOwner("Home", "ada@example.com"))
}

func TestAcquireIsIdempotentForTheOwner(t *testing.T) {
	c, clock := newTestCoordinator()
	start := clock.Now()

	_, ok := c.Acquire("Home", "ada@example.com")
	require.True(t, ok)
	clock.Advance(15 * time.Second)
	_, ok = c.Acquire("Home", "ada@example.com")
	require.True(t, ok)

	owner, locked := c.Owner("Home")
	assert.True(t, locked)
	assert.Equal(t, "ada@example.com", owner)
	assert.Equal(t, 1, c.Len())

	// The ping moved forward, so a sweep at start+threshold keeps the lock.
	assert.Empty(t, c.Sweep(start.Add(threshold), threshold))
	assert.True(t, c.IsOwner("Home", "ada@example.com"))
}

func TestIsOwnerFailsClosed(t *testing.T) {
	c, _ := newTestCoordinator()

	assert.False(t, c.IsOwner("Home", "ada@example.com"))
	assert.False(t, c.IsOwner("Home", ""))

	_, ok := c.Acquire("Home", "")
	require.True(t, ok)
	assert.False(t, c.IsOwner("Home", ""), "an empty identity never owns a page")
}

func TestRelease(t *testing.T) {
	c, _ := newTestCoordinator()
	c.Acquire("Home", "ada@example.com")

	c.Release("Home")
	assert.False(t, c.IsOwner("Home", "ada@example.com"))
	_, locked := c.Owner("Home")
	assert.False(t, locked)

	_, ok := c.Acquire("Home", "bob@example.com")
	assert.True(t, ok, "a released page can be taken by anyone")

	c.Release("Missing")
}

func TestSweepLiveness(t *testing.T) {
	c, clock := newTestCoordinator()
	t0 := clock.Now()
	c.Acquire("Home", "ada@example.com")
	c.Acquire("Other", "bob@example.com")

	assert.Empty(t, c.Sweep(t0.Add(threshold-time.Second), threshold))
	assert.Equal(t, []string{"Home", "Other"}, c.Sweep(t0.Add(threshold), threshold))
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.IsOwner("Home", "ada@example.com"))
}

func TestSweepNonInterference(t *testing.T) {
	c, clock := newTestCoordinator()
	t0 := clock.Now()
	c.Acquire("Home", "ada@example.com")

	clock.Advance(threshold / 2)
	_, ok := c.Ping("Home", "ada@example.com")
	require.True(t, ok)

	assert.Empty(t, c.Sweep(t0.Add(threshold), threshold))
	assert.True(t, c.IsOwner("Home", "ada@example.com"))
}

func TestPingDoesNotSteal(t *testing.T) {
	c, _ := newTestCoordinator()
	c.Acquire("Home", "ada@example.com")

	owner, ok := c.Ping("Home", "bob@example.com")
	assert.False(t, ok)
	assert.Equal(t, "ada@example.com", owner)
}

func TestRename(t *testing.T) {
	c, _ := newTestCoordinator()
	c.Acquire("Draft", "ada@example.com")
	c.Acquire("Taken", "bob@example.com")

	assert.False(t, c.Rename("Draft", "Final", "bob@example.com"), "only the owner may move a lock")
	assert.False(t, c.Rename("Draft", "Taken", "ada@example.com"), "cannot move onto another editor's lock")

	require.True(t, c.Rename("Draft", "Final", "ada@example.com"))
	assert.True(t, c.IsOwner("Final", "ada@example.com"))
	_, locked := c.Owner("Draft")
	assert.False(t, locked)
}

func TestMutualExclusionUnderContention(t *testing.T) {
	c, _ := newTestCoordinator()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, ok := c.Acquire("Home", fmt.Sprintf("editor-%d@example.com", i)); ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one editor wins an unlocked page")

	owner, locked := c.Owner("Home")
	require.True(t, locked)
	owners := 0
	for i := 0; i < 50; i++ {
		if c.IsOwner("Home", fmt.Sprintf("editor-%d@example.com", i)) {
			owners++
		}
	}
	assert.Equal(t, 1, owners)
	assert.True(t, c.IsOwner("Home", owner))
}

func TestConcurrentSweepAndPing(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		page := fmt.Sprintf("Page%d", i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Ping(page, "ada@example.com")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Sweep(time.Now(), 0)
			}
		}()
	}
	wg.Wait()

	// Every page is either fully locked or fully unlocked.
	for i := 0; i < 20; i++ {
		page := fmt.Sprintf("Page%d", i)
		owner, locked := c.Owner(page)
		if locked {
			assert.Equal(t, "ada@example.com", owner)
		}
	}
}

type panickingSweep struct {
	calls int
}

func (p *panickingSweep) Sweep(time.Time, time.Duration) []string {
	p.calls++
	if p.calls == 1 {
		panic(errors.New("boom"))
	}
	return []string{"Home"}
}

func TestSweeperRecoversFromPanics(t *testing.T) {
	target := &panickingSweep{}
	s := NewSweeper(target, time.Millisecond, threshold, logger.Nop())

	assert.NotPanics(t, func() {
		assert.Nil(t, s.SweepOnce())
	})
	assert.Equal(t, []string{"Home"}, s.SweepOnce(), "the sweeper keeps working after a panic")
}

func TestSweeperLoopExpiresLocks(t *testing.T) {
	c, clock := newTestCoordinator()
	c.Acquire("Home", "ada@example.com")

	s := NewSweeper(c, 5*time.Millisecond, threshold, logger.Nop())
	s.now = func() time.Time { return clock.Now().Add(threshold) }
	stop := s.Start()
	defer stop()

	assert.Eventually(t, func() bool {
		return !c.IsOwner("Home", "ada@example.com")
	}, time.Second, 5*time.Millisecond)
}
