package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/room4-2/switchboard/config"
)

// ErrSessionLimit is returned when the store refuses to answer another call.
var ErrSessionLimit = errors.New("maximum sessions reached")

// Sessions in a terminal phase are swept sooner than idle ones: the call is
// over, the state only lingers so late webhook retries still get an answer.
const terminalGrace = 2 * time.Minute

// Store is a thread-safe mapping from call id to call state. Creation is
// exactly-once per call id. Session metadata is mirrored to Redis when
// available so operators can inspect live calls; Redis being down never
// affects call handling.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*CallSession
	redis    *redis.Client
	config   *config.Config
}

// NewStore creates a session store with an optional Redis mirror.
func NewStore(cfg *config.Config) (*Store, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis unavailable, continue without it
		redisClient = nil
	}

	return &Store{
		sessions: make(map[string]*CallSession),
		redis:    redisClient,
		config:   cfg,
	}, nil
}

// GetOrCreate returns the session for the call id, creating it when absent.
// The second return reports whether a new session was created. A duplicate
// answer event for an in-progress call returns the existing session
// untouched. Create-if-absent is atomic: two concurrent answer events for
// the same call id always converge on one session object.
func (st *Store) GetOrCreate(ctx context.Context, callID, caller string) (*CallSession, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if existing, ok := st.sessions[callID]; ok {
		return existing, false, nil
	}

	if len(st.sessions) >= st.config.MaxSessions {
		return nil, false, ErrSessionLimit
	}

	sess := newCallSession(callID, caller)
	st.sessions[callID] = sess
	st.mirror(ctx, sess)

	return sess, true, nil
}

// Get retrieves a session by call id. It never creates state: mid-call
// lookups for unknown ids must be rejected by the caller.
func (st *Store) Get(callID string) (*CallSession, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, exists := st.sessions[callID]
	return sess, exists
}

// Mirror refreshes the session's Redis record. Best effort; the caller must
// hold the session lock so Phase is stable.
func (st *Store) Mirror(ctx context.Context, sess *CallSession) {
	st.mirror(ctx, sess)
}

func (st *Store) mirror(ctx context.Context, sess *CallSession) {
	if st.redis == nil {
		return
	}
	st.redis.HSet(ctx, "call:"+sess.ID, map[string]interface{}{
		"caller":        sess.Caller,
		"phase":         sess.Phase.String(),
		"created_at":    sess.CreatedAt.Format(time.RFC3339),
		"last_activity": sess.LastActivity().Format(time.RFC3339),
	})
	st.redis.SAdd(ctx, "active_calls", sess.ID)
	st.redis.Expire(ctx, "call:"+sess.ID, st.config.SessionTimeout)
}

// Remove drops a session and its Redis record.
func (st *Store) Remove(ctx context.Context, callID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.evict(ctx, callID)
}

// evict must be called with st.mu held.
func (st *Store) evict(ctx context.Context, callID string) {
	delete(st.sessions, callID)

	if st.redis != nil {
		st.redis.Del(ctx, "call:"+callID)
		st.redis.SRem(ctx, "active_calls", callID)
	}
}

// Count returns the current session count.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// CleanupInactiveSessions evicts calls idle past the session timeout and
// ended calls past the terminal grace period.
func (st *Store) CleanupInactiveSessions(ctx context.Context) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	for id, sess := range st.sessions {
		idle := now.Sub(sess.LastActivity())

		sess.Lock()
		phase := sess.Phase
		sess.Unlock()

		if idle > st.config.SessionTimeout || (phase.Terminal() && idle > terminalGrace) {
			log.Printf("🧹 Evicting call %s (phase %s, idle %s)", id, phase, idle.Round(time.Second))
			st.evict(ctx, id)
		}
	}
}

// StartCleanupRoutine starts periodic eviction of inactive sessions.
func (st *Store) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown drops all sessions and closes the Redis connection.
func (st *Store) Shutdown() {
	st.mu.Lock()
	defer st.mu.Unlock()

	for id := range st.sessions {
		delete(st.sessions, id)
	}

	if st.redis != nil {
		st.redis.Close()
	}
}
