// Package authcore issues signed session tokens for authenticated users
// and tracks live sessions per (user, device) pair in a TTL-expiring
// Redis store.
//
// The package is designed for concurrent server workloads: Engine
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. There is no in-process
// locking; the Redis store is the sole synchronization point, and
// concurrent writers for the same key race last-writer-wins by design.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config] and value types. Token construction lives in the jwt
// subpackage; the session model, codec and store client live in the
// session subpackage. User and role persistence, password hashing,
// request validation and HTTP routing are the embedding application's
// responsibility — the Engine consumes a [User] value and nothing else.
//
// # Failure policy
//
// Token issuance errors propagate to the caller: they indicate a
// programming or configuration fault. Session registry operations fail
// open: any store failure degrades to the operation's safe default
// (nil, empty, zero, no-op) so that a Redis outage never breaks the
// surrounding authentication flow. The erased failures stay observable
// through audit events and the store-failure counter.
package authcore
