// Package jwt builds and signs the access and refresh tokens issued by
// authcore, and parses previously issued tokens.
//
// # Token format
//
// Tokens are compact JWS: three base64url segments joined by ".". The
// header is {"alg":"HS256","typ":"JWT"}; the payload carries sub, iat,
// exp plus the flat custom claims user_id, device_id, roles, token_type
// and, for access tokens only, ip_address and user_agent. The signature
// is HMAC-SHA256 over the first two segments.
//
// # Architecture boundaries
//
// This package is pure computation: no Redis, no clock injection, no
// upward import of authcore. Identity arrives as plain strings and a
// role-name slice; the Engine owns nil-user validation and error
// wrapping.
package jwt
