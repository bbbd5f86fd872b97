package session

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "session")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func testSession(userID, deviceID string) *Session {
	now := time.Now().UnixMilli()
	return &Session{
		UserID:       userID,
		DeviceID:     deviceID,
		IPAddress:    "192.0.2.10",
		CreatedAt:    now,
		LastActivity: now,
		Active:       true,
	}
}

func TestKeyLayout(t *testing.T) {
	store := NewStore(nil, "")

	if got := store.Key("1", "d1"); got != "session:1:d1" {
		t.Fatalf("Key = %q", got)
	}
	if got := store.UserPattern("1"); got != "session:1:*" {
		t.Fatalf("UserPattern = %q", got)
	}
	if got := store.Pattern(); got != "session:*" {
		t.Fatalf("Pattern = %q", got)
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession("u-1", "dev-1")
	key := store.Key(sess.UserID, sess.DeviceID)

	if err := store.Save(ctx, key, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got != *sess {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, sess)
	}

	ttl := mr.TTL(key)
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected TTL %v", ttl)
	}
}

func TestGetAbsentReturnsRedisNil(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()

	_, err := store.Get(context.Background(), store.Key("99", "unknown"))
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession("u-1", "dev-1")
	key := store.Key(sess.UserID, sess.DeviceID)
	if err := store.Save(ctx, key, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	existed, err := store.Delete(ctx, key)
	if err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if !existed {
		t.Fatal("first delete must report an existing record")
	}

	existed, err = store.Delete(ctx, key)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if existed {
		t.Fatal("second delete must report absence")
	}
}

func TestDeleteManyCountsExisting(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	keys := make([]string, 0, 3)
	for _, device := range []string{"d1", "d2", "d3"} {
		sess := testSession("u-1", device)
		key := store.Key(sess.UserID, sess.DeviceID)
		if err := store.Save(ctx, key, sess, time.Hour); err != nil {
			t.Fatalf("save %s: %v", device, err)
		}
		keys = append(keys, key)
	}
	keys = append(keys, store.Key("u-1", "missing"))

	deleted, err := store.DeleteMany(ctx, keys)
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted = %d, want 3", deleted)
	}

	if count, err := store.DeleteMany(ctx, nil); err != nil || count != 0 {
		t.Fatalf("empty batch: count=%d err=%v", count, err)
	}
}

func TestScanKeysMatchesPattern(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	for _, pair := range [][2]string{{"u-1", "d1"}, {"u-1", "d2"}, {"u-2", "d1"}} {
		sess := testSession(pair[0], pair[1])
		key := store.Key(sess.UserID, sess.DeviceID)
		if err := store.Save(ctx, key, sess, time.Hour); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	keys, fallback, err := store.ScanKeys(ctx, store.UserPattern("u-1"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if fallback {
		t.Fatal("scan must not report fallback when SCAN works")
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "session:u-1:d1" || keys[1] != "session:u-1:d2" {
		t.Fatalf("scan keys = %v", keys)
	}

	all, _, err := store.ScanKeys(ctx, store.Pattern())
	if err != nil {
		t.Fatalf("scan all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("full namespace scan = %v", all)
	}
}

func TestScanKeysLargeKeySpace(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	// Force multiple SCAN pages.
	const sessions = 2500
	for i := 0; i < sessions; i++ {
		sess := testSession("u-bulk", deviceName(i))
		key := store.Key(sess.UserID, sess.DeviceID)
		if err := store.Save(ctx, key, sess, time.Hour); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	keys, _, err := store.ScanKeys(ctx, store.UserPattern("u-bulk"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != sessions {
		t.Fatalf("scanned %d keys, want %d", len(keys), sessions)
	}

	// The result is a set: no key may appear twice.
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate key in scan result: %s", key)
		}
		seen[key] = struct{}{}
	}
}

func deviceName(i int) string {
	const digits = "0123456789"
	return "dev-" + string([]byte{digits[i/1000%10], digits[i/100%10], digits[i/10%10], digits[i%10]})
}

func TestGetManySkipsMissing(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	s1 := testSession("u-1", "d1")
	s2 := testSession("u-1", "d2")
	for _, sess := range []*Session{s1, s2} {
		if err := store.Save(ctx, store.Key(sess.UserID, sess.DeviceID), sess, time.Hour); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	sessions, err := store.GetMany(ctx, []string{
		store.Key("u-1", "d1"),
		store.Key("u-1", "gone"),
		store.Key("u-1", "d2"),
	})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
}

func TestGetManyDeduplicatesKeys(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession("u-1", "d1")
	key := store.Key(sess.UserID, sess.DeviceID)
	if err := store.Save(ctx, key, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	// SCAN may deliver the same key on two pages; that must never
	// inflate the session list.
	sessions, err := store.GetMany(ctx, []string{key, key})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("duplicate key produced %d sessions, want 1", len(sessions))
	}
}

// scanRejectingHook fails every SCAN command so the store has to take
// the KEYS listing path, mimicking backends that disable SCAN.
type scanRejectingHook struct{}

func (scanRejectingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (scanRejectingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "scan" {
			return errors.New("ERR unknown command 'SCAN'")
		}
		return next(ctx, cmd)
	}
}

func (scanRejectingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestScanKeysFallsBackToKeys(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	for _, device := range []string{"d1", "d2"} {
		sess := testSession("u-1", device)
		if err := store.Save(ctx, store.Key(sess.UserID, sess.DeviceID), sess, time.Hour); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	rejecting := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rejecting.Close()
	rejecting.AddHook(scanRejectingHook{})
	degradedStore := NewStore(rejecting, "session")

	keys, fallback, err := degradedStore.ScanKeys(ctx, degradedStore.UserPattern("u-1"))
	if err != nil {
		t.Fatalf("scan with broken SCAN: %v", err)
	}
	if !fallback {
		t.Fatal("expected the KEYS fallback to be reported")
	}
	if len(keys) != 2 {
		t.Fatalf("fallback listed %d keys, want 2", len(keys))
	}
}

func TestScanKeysFallbackFailureKeepsScanError(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()

	mr.Close()

	// With the store down, both SCAN and the KEYS fallback fail; the
	// reported error is the original scan failure.
	_, fallback, err := store.ScanKeys(context.Background(), store.Pattern())
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("scan error = %v", err)
	}
	if fallback {
		t.Fatal("a failed fallback must not be reported as degraded success")
	}
}

func TestStoreErrorsWrapRedisUnavailable(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	mr.Close()

	if _, err := store.Get(ctx, store.Key("u", "d")); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("get error = %v", err)
	}
	if err := store.Save(ctx, store.Key("u", "d"), testSession("u", "d"), time.Hour); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("save error = %v", err)
	}
	if _, err := store.Delete(ctx, store.Key("u", "d")); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("delete error = %v", err)
	}
	if _, _, err := store.ScanKeys(ctx, store.Pattern()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("scan error = %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("ping error = %v", err)
	}
}

func TestTTLExpiryRemovesSession(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession("u-1", "d1")
	key := store.Key(sess.UserID, sess.DeviceID)
	if err := store.Save(ctx, key, sess, SlidingTTL); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(SlidingTTL + time.Minute)

	if _, err := store.Get(ctx, key); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected expiry to look like absence, got %v", err)
	}
}
