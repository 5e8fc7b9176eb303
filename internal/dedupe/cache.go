// ABOUTME: Thread-safe TTL guard for in-flight bot reconciliations.
// ABOUTME: Lets overlapping poll ticks skip bots whose reconciliation is still running.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// guardEntry stores the timestamp and list element for a guarded key.
type guardEntry struct {
	timestamp time.Time
	element   *list.Element
}

// Guard provides a thread-safe, TTL-based, size-limited set for tracking
// bots currently being reconciled. A poll tick claims a bot before spawning
// its reconciliation and releases it on completion; a slow reconciliation
// that outlives the TTL simply stops being protected, at which point the
// store's conditional status write is the backstop. Uses a doubly-linked
// list to maintain insertion order for O(1) eviction.
type Guard struct {
	mu      sync.Mutex
	active  map[string]*guardEntry
	order   *list.List // keys in claim order (oldest at front)
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a guard with the specified TTL and maximum size.
// A background goroutine periodically cleans up expired entries.
func New(ttl time.Duration, maxSize int) *Guard {
	g := &Guard{
		active:  make(map[string]*guardEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go g.cleanup()
	return g
}

// Claim atomically checks whether the key is already held and claims it if
// not. Returns true if the key was already claimed (skip this bot), false if
// the caller now holds it. The single locked section prevents the TOCTOU
// race of a separate check and mark.
func (g *Guard) Claim(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.active[key]
	if ok && time.Since(entry.timestamp) < g.ttl {
		return true
	}

	g.claimLocked(key)
	return false
}

// Release drops a claim so the next poll tick can reconcile the bot again.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.active[key]
	if !ok {
		return
	}
	g.order.Remove(entry.element)
	delete(g.active, key)
}

// claimLocked records a claim. Must be called with mu held.
func (g *Guard) claimLocked(key string) {
	now := time.Now()

	if entry, exists := g.active[key]; exists {
		entry.timestamp = now
		g.order.MoveToBack(entry.element)
		return
	}

	if len(g.active) >= g.maxSize {
		g.evictOldest()
	}

	elem := g.order.PushBack(key)
	g.active[key] = &guardEntry{
		timestamp: now,
		element:   elem,
	}
}

// evictOldest removes the oldest entry. Must be called with mu held.
// O(1) operation using the linked list.
func (g *Guard) evictOldest() {
	front := g.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	g.order.Remove(front)
	delete(g.active, key)
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (g *Guard) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.runCleanup()
		case <-g.done:
			return
		}
	}
}

// runCleanup removes all expired entries.
func (g *Guard) runCleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for key, entry := range g.active {
		if now.Sub(entry.timestamp) > g.ttl {
			g.order.Remove(entry.element)
			delete(g.active, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.closed {
		close(g.done)
		g.closed = true
	}
}
