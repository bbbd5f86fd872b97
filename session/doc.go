// Package session provides the session record model, a compact binary
// codec for it, and the thin Redis client used by the registry.
//
// # Key layout
//
// Sessions live under one key per (user, device) pair:
//
//	{prefix}:{userID}:{deviceID}
//
// The prefix defaults to "session" and the namespace {prefix}:* is
// reserved for this subsystem. Keys are colon-delimited without
// escaping, so IDs must not themselves contain ':'. This is a
// documented design constraint, not something the store detects.
//
// # Binary encoding
//
// Records are stored as a compact binary blob (version byte,
// length-prefixed strings, big-endian integers). The encoder is
// append-only: new schema versions add fields but never reinterpret
// old ones.
//
// # Architecture boundaries
//
// The [Store] is a deliberately thin contract over Redis: get,
// set-with-TTL, delete, batch delete, cursor scan. It reports every
// failure to its caller; the fail-open policy (degrading store errors
// to safe defaults) belongs to the Engine, which keeps the
// absent-versus-unavailable distinction observable down here.
package session
