package authcore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bojanp/authcore/session"
	"github.com/redis/go-redis/v9"
)

// Session registry operations. Every method here fails open: a store
// failure is audited and counted, then converted to the operation's
// safe default so a Redis outage never breaks the surrounding
// authentication flow. Callers cannot distinguish "no session" from
// "store temporarily unavailable" — that ambiguity is the contract.

// CreateSession records a session under the (user, device) key with the
// sliding TTL window. CreatedAt and LastActivity are stamped to now,
// overwriting caller-supplied values; the Active flag is preserved as
// given. An existing record for the same pair is overwritten silently.
func (e *Engine) CreateSession(ctx context.Context, sess *session.Session) {
	if e == nil || e.sessionStore == nil || sess == nil {
		return
	}

	now := time.Now().UnixMilli()
	sess.CreatedAt = now
	sess.LastActivity = now

	key := e.sessionStore.Key(sess.UserID, sess.DeviceID)
	if err := e.sessionStore.Save(ctx, key, sess, session.SlidingTTL); err != nil {
		e.storeFailure(ctx, "session_create_failed", sess.UserID, sess.DeviceID, err)
		return
	}

	e.metricInc(MetricSessionCreated)
}

// GetSession returns the session for (userID, deviceID), or nil when it
// is absent, inactive, or the store is unavailable. A successful read of
// an active session bumps LastActivity and renews the sliding TTL, so
// every read extends the session's life.
func (e *Engine) GetSession(ctx context.Context, userID, deviceID string) *session.Session {
	if e == nil || e.sessionStore == nil {
		return nil
	}

	start := time.Now()
	key := e.sessionStore.Key(userID, deviceID)

	sess, err := e.sessionStore.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			e.storeFailure(ctx, "session_get_failed", userID, deviceID, err)
		}
		return nil
	}
	if !sess.Active {
		// Inactive sessions stay in the store until TTL expiry but are
		// invisible to readers.
		return nil
	}

	sess.LastActivity = time.Now().UnixMilli()
	if err := e.sessionStore.Save(ctx, key, sess, session.SlidingTTL); err != nil {
		e.storeFailure(ctx, "session_get_failed", userID, deviceID, err)
		return nil
	}

	e.metricInc(MetricSessionRefreshed)
	if e.metrics != nil {
		e.metrics.Observe(MetricSessionGetLatency, time.Since(start))
	}
	return sess
}

// TouchSession bumps LastActivity and renews the TTL for an active
// session. Touching an absent or inactive session is an observed no-op,
// never an error to the caller.
func (e *Engine) TouchSession(ctx context.Context, userID, deviceID string) {
	if e == nil || e.sessionStore == nil {
		return
	}

	key := e.sessionStore.Key(userID, deviceID)

	sess, err := e.sessionStore.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			e.storeFailure(ctx, "session_touch_failed", userID, deviceID, err)
			return
		}
		sess = nil
	}
	if sess == nil || !sess.Active {
		e.metricInc(MetricSessionTouchMiss)
		e.auditEmit(ctx, AuditEvent{
			EventType: "session_touch_miss",
			UserID:    userID,
			DeviceID:  deviceID,
			Success:   false,
		})
		return
	}

	sess.LastActivity = time.Now().UnixMilli()
	if err := e.sessionStore.Save(ctx, key, sess, session.SlidingTTL); err != nil {
		e.storeFailure(ctx, "session_touch_failed", userID, deviceID, err)
	}
}

// UserSessions returns all active sessions for a user. Order is the
// store's enumeration order and unspecified. Empty on store failure.
func (e *Engine) UserSessions(ctx context.Context, userID string) []*session.Session {
	if e == nil || e.sessionStore == nil {
		return []*session.Session{}
	}

	keys, degraded, err := e.sessionStore.ScanKeys(ctx, e.sessionStore.UserPattern(userID))
	if err != nil {
		e.storeFailure(ctx, "session_list_failed", userID, "", err)
		return []*session.Session{}
	}
	if degraded {
		e.scanDegraded(ctx, userID)
	}

	sessions, err := e.sessionStore.GetMany(ctx, keys)
	if err != nil {
		e.storeFailure(ctx, "session_list_failed", userID, "", err)
		return []*session.Session{}
	}

	active := make([]*session.Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Active {
			active = append(active, sess)
		}
	}
	return active
}

// DeleteSession removes the session for (userID, deviceID). Both
// success and absence resolve without error.
func (e *Engine) DeleteSession(ctx context.Context, userID, deviceID string) {
	if e == nil || e.sessionStore == nil {
		return
	}

	existed, err := e.sessionStore.Delete(ctx, e.sessionStore.Key(userID, deviceID))
	if err != nil {
		e.storeFailure(ctx, "session_delete_failed", userID, deviceID, err)
		return
	}

	if existed {
		e.metricInc(MetricSessionDeleted)
	}
	e.auditEmit(ctx, AuditEvent{
		EventType: "session_deleted",
		UserID:    userID,
		DeviceID:  deviceID,
		Success:   existed,
	})
}

// DeleteUserSessions removes every session recorded for a user. A user
// with no sessions is a no-op.
func (e *Engine) DeleteUserSessions(ctx context.Context, userID string) {
	if e == nil || e.sessionStore == nil {
		return
	}

	keys, degraded, err := e.sessionStore.ScanKeys(ctx, e.sessionStore.UserPattern(userID))
	if err != nil {
		e.storeFailure(ctx, "session_purge_failed", userID, "", err)
		return
	}
	if degraded {
		e.scanDegraded(ctx, userID)
	}
	if len(keys) == 0 {
		return
	}

	deleted, err := e.sessionStore.DeleteMany(ctx, keys)
	if err != nil {
		e.storeFailure(ctx, "session_purge_failed", userID, "", err)
		return
	}

	e.metricAdd(MetricSessionsPurged, uint64(deleted))
	e.auditEmit(ctx, AuditEvent{
		EventType: "sessions_purged",
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"deleted": strconv.FormatInt(deleted, 10)},
	})
}

// ActiveSessionCount counts active sessions across all users by
// scanning the entire namespace. Cost grows with the global session
// count, not the per-user count; callers must not assume it is cheap.
// Returns 0 when the store is unavailable.
func (e *Engine) ActiveSessionCount(ctx context.Context) int {
	if e == nil || e.sessionStore == nil {
		return 0
	}

	keys, degraded, err := e.sessionStore.ScanKeys(ctx, e.sessionStore.Pattern())
	if err != nil {
		e.storeFailure(ctx, "session_count_failed", "", "", err)
		return 0
	}
	if degraded {
		e.scanDegraded(ctx, "")
	}

	sessions, err := e.sessionStore.GetMany(ctx, keys)
	if err != nil {
		e.storeFailure(ctx, "session_count_failed", "", "", err)
		return 0
	}

	count := 0
	for _, sess := range sessions {
		if sess.Active {
			count++
		}
	}
	return count
}
