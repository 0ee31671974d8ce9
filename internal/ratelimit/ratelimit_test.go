package ratelimit_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mining-game/internal/ratelimit"
)

func TestCheckCooldown(t *testing.T) {
	l := ratelimit.New(100 * time.Millisecond)

	assert.True(t, l.Check("alice"))
	assert.False(t, l.Check("alice"))

	time.Sleep(150 * time.Millisecond)
	assert.True(t, l.Check("alice"))
}

func TestRefusedChecksDoNotExtendWindow(t *testing.T) {
	l := ratelimit.New(200 * time.Millisecond)

	require.True(t, l.Check("alice"))
	first, ok := l.LastAllowed("alice")
	require.True(t, ok)

	// hammer inside the window; none of these may refresh the entry
	time.Sleep(80 * time.Millisecond)
	assert.False(t, l.Check("alice"))
	time.Sleep(80 * time.Millisecond)
	assert.False(t, l.Check("alice"))

	still, ok := l.LastAllowed("alice")
	require.True(t, ok)
	assert.Equal(t, first, still)

	// one cooldown after the allowed attempt the gate reopens, even though
	// the latest refused attempt was much more recent
	time.Sleep(80 * time.Millisecond)
	assert.True(t, l.Check("alice"))
}

func TestUsersAreIndependent(t *testing.T) {
	l := ratelimit.New(time.Minute)

	assert.True(t, l.Check("alice"))
	assert.True(t, l.Check("bob"))
	assert.False(t, l.Check("alice"))
	assert.False(t, l.Check("bob"))
}

func TestConcurrentChecksAdmitOne(t *testing.T) {
	l := ratelimit.New(time.Minute)

	var allowed int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("carol") {
				atomic.AddInt32(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, allowed)
}

func TestLastAllowed(t *testing.T) {
	l := ratelimit.New(time.Minute)

	_, ok := l.LastAllowed("nobody")
	assert.False(t, ok)

	before := time.Now()
	require.True(t, l.Check("alice"))
	at, ok := l.LastAllowed("alice")
	require.True(t, ok)
	assert.False(t, at.Before(before))
	assert.False(t, at.After(time.Now()))
}

func TestDefaultCooldown(t *testing.T) {
	l := ratelimit.New(0)
	assert.Equal(t, ratelimit.DefaultCooldown, l.Cooldown())

	l = ratelimit.New(-time.Second)
	assert.Equal(t, ratelimit.DefaultCooldown, l.Cooldown())

	l = ratelimit.New(3 * time.Second)
	assert.Equal(t, 3*time.Second, l.Cooldown())
}
