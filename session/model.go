package session

import "time"

// SlidingTTL is the sliding-expiration window applied to every session
// write. Each successful read or touch of an active session resets the
// window to its full duration; a session untouched for this long is
// expired by Redis itself.
const SlidingTTL = 2 * time.Hour

// Session is one live session for a (user, device) pair. At most one
// record per pair exists in the store at any time; the last writer wins.
//
// CreatedAt and LastActivity are Unix milliseconds. Active is preserved
// exactly as written: inactive records may exist in the store but are
// invisible to readers.
type Session struct {
	UserID       string
	DeviceID     string
	IPAddress    string
	CreatedAt    int64
	LastActivity int64
	Active       bool
}

// CreatedTime returns CreatedAt as a time.Time.
func (s *Session) CreatedTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// LastActivityTime returns LastActivity as a time.Time.
func (s *Session) LastActivityTime() time.Time {
	return time.UnixMilli(s.LastActivity)
}
