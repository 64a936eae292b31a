// Package editlock grants at most one editor per page at a time.
//
// A lock is held by an editor identity (an email address) and kept alive by
// pings. Locks whose last ping is older than the inactivity threshold are
// released by Sweep, which a Sweeper calls on a fixed interval.
package editlock

import (
	"sort"
	"sync"
	"time"
)

// Coordinator is the in-memory lock registry. The zero value is not usable;
// construct one with New.
type Coordinator struct {
	mu     sync.Mutex
	owners map[string]string
	pings  map[string]time.Time
	now    func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New returns an empty Coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		owners: make(map[string]string),
		pings:  make(map[string]time.Time),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire locks page for editor. If the page is unlocked or already held by
// editor, the ping time is refreshed and ok is true. If another editor holds
// it, nothing changes and owner names the holder.
func (c *Coordinator) Acquire(page, editor string) (owner string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, locked := c.owners[page]; locked && current != editor {
		return current, false
	}
	c.owners[page] = editor
	c.pings[page] = c.now()
	return editor, true
}

// Ping is the liveness signal of an open editor. It behaves like Acquire.
func (c *Coordinator) Ping(page, editor string) (owner string, ok bool) {
	return c.Acquire(page, editor)
}

// Release unlocks page regardless of who holds it.
func (c *Coordinator) Release(page string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.owners, page)
	delete(c.pings, page)
}

// Rename moves editor's lock from oldTitle to newTitle. It reports false and
// changes nothing unless editor holds oldTitle and newTitle is free or
// already held by editor.
func (c *Coordinator) Rename(oldTitle, newTitle, editor string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owners[oldTitle] != editor {
		return false
	}
	if current, locked := c.owners[newTitle]; locked && current != editor {
		return false
	}
	delete(c.owners, oldTitle)
	delete(c.pings, oldTitle)
	c.owners[newTitle] = editor
	c.pings[newTitle] = c.now()
	return true
}

// Sweep releases every lock whose last ping is at least threshold before now
// and returns the released titles in sorted order.
func (c *Coordinator) Sweep(now time.Time, threshold time.Duration) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var released []string
	for page, last := range c.pings {
		if now.Sub(last) >= threshold {
			delete(c.owners, page)
			delete(c.pings, page)
			released = append(released, page)
		}
	}
	sort.Strings(released)
	return released
}

// IsOwner reports whether editor currently holds the lock on page.
// An unlocked page has no owner.
func (c *Coordinator) IsOwner(page, editor string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, locked := c.owners[page]
	return locked && editor != "" && owner == editor
}

// Owner returns the holder of page's lock, if any.
func (c *Coordinator) Owner(page string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, locked := c.owners[page]
	return owner, locked
}

// Len returns the number of locked pages.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.owners)
}
