package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/switchboard/config"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.Config{
		RedisURL:       mr.Addr(),
		MaxSessions:    5,
		SessionTimeout: 30 * time.Minute,
	}

	store, err := NewStore(cfg)
	require.NoError(t, err)
	t.Cleanup(store.Shutdown)
	return store, mr
}

func TestGetOrCreateCreatesOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess, created, err := store.GetOrCreate(ctx, "CA1", "+15550100000")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, PhaseUnknown, sess.Phase)

	again, created, err := store.GetOrCreate(ctx, "CA1", "+15550100000")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, sess, again)
	assert.Equal(t, 1, store.Count())
}

// Two concurrent answer events for the same call id must converge on one
// session object.
func TestGetOrCreateIsAtomic(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const goroutines = 16
	results := make([]*CallSession, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, _, err := store.GetOrCreate(ctx, "CA1", "+15550100000")
			require.NoError(t, err)
			results[i] = sess
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, store.Count())
}

func TestGetNeverCreates(t *testing.T) {
	store, _ := newTestStore(t)

	_, ok := store.Get("never-answered")
	assert.False(t, ok)
	assert.Zero(t, store.Count())
}

func TestSessionLimit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, _, err := store.GetOrCreate(ctx, id, "+15550100000")
		require.NoError(t, err)
	}

	_, _, err := store.GetOrCreate(ctx, "f", "+15550100000")
	assert.ErrorIs(t, err, ErrSessionLimit)

	// An already-known call is still returned at the limit.
	_, created, err := store.GetOrCreate(ctx, "a", "+15550100000")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestMirrorWritesRedis(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, "CA1", "+15550100000")
	require.NoError(t, err)

	sess.Lock()
	sess.Phase = PhaseConfirmed
	sess.Intent = "Hours"
	store.Mirror(ctx, sess)
	sess.Unlock()

	assert.Equal(t, "confirmed", mr.HGet("call:CA1", "phase"))
	assert.Equal(t, "+15550100000", mr.HGet("call:CA1", "caller"))

	members, err := mr.Members("active_calls")
	require.NoError(t, err)
	assert.Equal(t, []string{"CA1"}, members)
}

func TestRemoveDropsRedisRecord(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.GetOrCreate(ctx, "CA1", "+15550100000")
	require.NoError(t, err)

	store.Remove(ctx, "CA1")

	assert.Zero(t, store.Count())
	assert.False(t, mr.Exists("call:CA1"))
}

func TestCleanupEvictsIdleSessions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, "stale", "+15550100000")
	require.NoError(t, err)
	sess.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())

	fresh, _, err := store.GetOrCreate(ctx, "fresh", "+15550100001")
	require.NoError(t, err)

	store.CleanupInactiveSessions(ctx)

	_, ok := store.Get("stale")
	assert.False(t, ok)
	got, ok := store.Get("fresh")
	assert.True(t, ok)
	assert.Same(t, fresh, got)
}

// Ended calls are swept well before the idle timeout; the state only
// lingers long enough to answer late webhook retries.
func TestCleanupEvictsTerminalSessionsAfterGrace(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, "done", "+15550100000")
	require.NoError(t, err)
	sess.Lock()
	sess.Phase = PhaseHungUp
	sess.Unlock()
	sess.lastActivity.Store(time.Now().Add(-3 * time.Minute).UnixNano())

	active, _, err := store.GetOrCreate(ctx, "active", "+15550100001")
	require.NoError(t, err)
	active.Lock()
	active.Phase = PhaseConfirmed
	active.Unlock()
	active.lastActivity.Store(time.Now().Add(-3 * time.Minute).UnixNano())

	store.CleanupInactiveSessions(ctx)

	_, ok := store.Get("done")
	assert.False(t, ok)
	_, ok = store.Get("active")
	assert.True(t, ok)
}

func TestStoreWithoutRedis(t *testing.T) {
	cfg := &config.Config{
		RedisURL:       "127.0.0.1:1",
		MaxSessions:    5,
		SessionTimeout: 30 * time.Minute,
	}

	store, err := NewStore(cfg)
	require.NoError(t, err)
	t.Cleanup(store.Shutdown)

	sess, created, err := store.GetOrCreate(context.Background(), "CA1", "+15550100000")
	require.NoError(t, err)
	assert.True(t, created)

	sess.Lock()
	store.Mirror(context.Background(), sess)
	sess.Unlock()
	assert.Equal(t, 1, store.Count())
}

func TestPhaseStrings(t *testing.T) {
	assert.Equal(t, "unknown", PhaseUnknown.String())
	assert.Equal(t, "confirmed", PhaseConfirmed.String())
	assert.Equal(t, "transferred", PhaseTransferred.String())
	assert.Equal(t, "hung_up", PhaseHungUp.String())

	assert.False(t, PhaseUnknown.Terminal())
	assert.False(t, PhaseConfirmed.Terminal())
	assert.True(t, PhaseTransferred.Terminal())
	assert.True(t, PhaseHungUp.Terminal())
}
