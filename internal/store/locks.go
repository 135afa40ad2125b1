package store

import "sync"

// ContactLocks serializes writers per (user, contact) so two concurrent
// corroborations for the same contact cannot race on the aggregate
// counters. Different contacts proceed in parallel.
type ContactLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewContactLocks creates an empty lock table.
func NewContactLocks() *ContactLocks {
	return &ContactLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for one contact and returns its unlock func.
// Locks are never removed; the table is bounded by the contact population.
func (c *ContactLocks) Lock(userID, contactKey string) func() {
	key := userID + "\x00" + contactKey

	c.mu.Lock()
	m, ok := c.locks[key]
	if !ok {
		m = &sync.Mutex{}
		c.locks[key] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}
