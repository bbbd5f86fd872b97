package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis I/O failure surfaced by [Store].
var ErrRedisUnavailable = errors.New("redis unavailable")

const scanPageSize = 1000

// Store is the thin Redis client behind the session registry: get,
// set-with-TTL, delete, batch delete, and cursor-based key scans.
// Safe for concurrent use; go-redis serializes individual commands.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] backed by the given Redis client. prefix
// sets the key namespace and defaults to "session" when empty.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "session"
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

// Key returns the store key for a (user, device) pair. IDs must not
// contain ':' or the key becomes ambiguous; see the package doc.
func (s *Store) Key(userID, deviceID string) string {
	return s.prefix + ":" + userID + ":" + deviceID
}

// UserPattern returns the scan pattern matching all of a user's sessions.
func (s *Store) UserPattern(userID string) string {
	return s.prefix + ":" + userID + ":*"
}

// Pattern returns the scan pattern matching the whole session namespace.
func (s *Store) Pattern() string {
	return s.prefix + ":*"
}

// Get retrieves and decodes one session. Returns redis.Nil when the key
// is absent so callers can distinguish "no session" from store failure.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, key string) (*Session, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(data)
}

// GetMany retrieves multiple sessions in one pipelined round trip.
// Duplicate keys yield one session; keys that expired between scan and
// read are skipped silently.
func (s *Store) GetMany(ctx context.Context, keys []string) ([]*Session, error) {
	if len(keys) == 0 {
		return []*Session{}, nil
	}

	seen := make(map[string]struct{}, len(keys))
	unique := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(unique))
	for i, key := range unique {
		cmds[i] = pipe.Get(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(unique))
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		sess, decErr := Decode(data)
		if decErr != nil {
			return nil, decErr
		}
		sessions = append(sessions, sess)
	}

	return sessions, nil
}

// Save encodes and writes a session under key with the given TTL,
// overwriting any existing record unconditionally.
//
//	Performance: 1 Redis SET.
func (s *Store) Save(ctx context.Context, key string, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes one key. The boolean reports whether a record existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	deleted, err := s.redis.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return deleted > 0, nil
}

// DeleteMany removes a batch of keys and returns how many existed.
func (s *Store) DeleteMany(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := s.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return deleted, nil
}

// keyScanner is a restartable cursor over an incremental SCAN of the
// key space. Each next call fetches one page; done reports exhaustion.
type keyScanner struct {
	redis   redis.UniversalClient
	pattern string
	cursor  uint64
	started bool
}

func (k *keyScanner) next(ctx context.Context) ([]string, error) {
	keys, cursor, err := k.redis.Scan(ctx, k.cursor, k.pattern, scanPageSize).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	k.started = true
	k.cursor = cursor
	return keys, nil
}

func (k *keyScanner) done() bool {
	return k.started && k.cursor == 0
}

// ScanKeys enumerates the set of keys matching pattern with an
// incremental cursor scan. SCAN delivers keys at least once, not
// exactly once, so pages are deduplicated before returning. When SCAN
// itself is unavailable (some hosted or embedded backends), the store
// degrades to a best-effort KEYS listing; the boolean reports that
// degradation so the caller can observe it without the result changing.
//
//	Performance: O(keyspace / page) SCAN round trips.
func (s *Store) ScanKeys(ctx context.Context, pattern string) ([]string, bool, error) {
	scanner := &keyScanner{redis: s.redis, pattern: pattern}

	seen := make(map[string]struct{})
	var keys []string
	for !scanner.done() {
		page, err := scanner.next(ctx)
		if err != nil {
			if !scanner.started {
				listed, listErr := s.listKeys(ctx, pattern, err)
				return listed, listErr == nil, listErr
			}
			return nil, false, err
		}
		for _, key := range page {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	return keys, false, nil
}

func (s *Store) listKeys(ctx context.Context, pattern string, scanErr error) ([]string, error) {
	keys, err := s.redis.Keys(ctx, pattern).Result()
	if err != nil {
		// Report the original scan failure; the fallback failing too
		// means the store is down, not that SCAN is unsupported.
		return nil, scanErr
	}
	return keys, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
