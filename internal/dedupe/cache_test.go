// ABOUTME: Tests for the in-flight reconciliation guard.
// ABOUTME: Validates claim/release semantics, TTL expiration, eviction, and concurrency safety.

package dedupe

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuard_ClaimNew(t *testing.T) {
	guard := New(5*time.Minute, 100)
	defer guard.Close()

	assert.False(t, guard.Claim("bot-1"), "first claim succeeds")
	assert.True(t, guard.Claim("bot-1"), "second claim is rejected")
}

func TestGuard_Release(t *testing.T) {
	guard := New(5*time.Minute, 100)
	defer guard.Close()

	assert.False(t, guard.Claim("bot-1"))
	guard.Release("bot-1")
	assert.False(t, guard.Claim("bot-1"), "released key can be claimed again")
}

func TestGuard_ReleaseUnknownKey(t *testing.T) {
	guard := New(5*time.Minute, 100)
	defer guard.Close()

	// Releasing a key that was never claimed must not panic.
	guard.Release("never-claimed")
}

func TestGuard_ClaimExpired(t *testing.T) {
	guard := New(10*time.Millisecond, 100)
	defer guard.Close()

	assert.False(t, guard.Claim("bot-1"))

	time.Sleep(20 * time.Millisecond)

	// A claim older than the TTL no longer protects the bot.
	assert.False(t, guard.Claim("bot-1"))
}

func TestGuard_EvictionAtCapacity(t *testing.T) {
	guard := New(5*time.Minute, 2)
	defer guard.Close()

	assert.False(t, guard.Claim("bot-1"))
	assert.False(t, guard.Claim("bot-2"))
	assert.False(t, guard.Claim("bot-3"), "third claim evicts the oldest")

	// bot-1 was evicted, so it can be claimed again.
	assert.False(t, guard.Claim("bot-1"))
}

func TestGuard_ConcurrentClaims(t *testing.T) {
	guard := New(5*time.Minute, 100)
	defer guard.Close()

	const goroutines = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !guard.Claim("contested-bot") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one goroutine claims the key")
}

func TestGuard_CloseIsIdempotent(t *testing.T) {
	guard := New(5*time.Minute, 100)
	guard.Close()
	guard.Close()
}
