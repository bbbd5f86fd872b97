package jwt

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type claim values.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Config holds the signing secret and per-kind token lifetimes.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the payload of every token issued by [Manager]. All custom
// claims are flat top-level keys so any standard JWT verifier can read
// them without unwrapping.
//
// Roles is always present in the encoded payload, even when empty.
// IPAddress and UserAgent are always present in access token payloads,
// carrying the supplied values even when those are empty; refresh
// token payloads never contain the keys at all.
type Claims struct {
	UserID    string   `json:"user_id"`
	DeviceID  string   `json:"device_id"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"token_type"`
	IPAddress string   `json:"ip_address"`
	UserAgent string   `json:"user_agent"`
	jwt.RegisteredClaims
}

// refreshClaims is the encoded form of refresh tokens: the same flat
// claim set minus the client-binding keys, which must be absent rather
// than empty.
type refreshClaims struct {
	UserID    string   `json:"user_id"`
	DeviceID  string   `json:"device_id"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager signs and parses tokens with a single symmetric HS256 key.
// Safe for concurrent use after construction.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a signing secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	return &Manager{config: cfg}, nil
}

// CreateAccess signs an access token. subject is the user's email; ip and
// userAgent bind the token to the requesting client. roles is normalized
// via [NormalizeRoles] before encoding.
//
// Given identical inputs and clock value the produced claim set, and
// therefore the HMAC signature, is deterministic.
func (m *Manager) CreateAccess(subject, userID, deviceID, ip, userAgent string, roles []string) (string, error) {
	claims := m.claims(subject, userID, deviceID, roles, TokenTypeAccess, m.config.AccessTTL)
	claims.IPAddress = ip
	claims.UserAgent = userAgent
	return m.sign(claims)
}

// CreateRefresh signs a refresh token. Refresh claims never include
// ip_address or user_agent.
func (m *Manager) CreateRefresh(subject, userID, deviceID string, roles []string) (string, error) {
	claims := m.claims(subject, userID, deviceID, roles, TokenTypeRefresh, m.config.RefreshTTL)
	return m.sign(&refreshClaims{
		UserID:           claims.UserID,
		DeviceID:         claims.DeviceID,
		Roles:            claims.Roles,
		TokenType:        claims.TokenType,
		RegisteredClaims: claims.RegisteredClaims,
	})
}

// Parse verifies the signature and expiry of a previously issued token
// and returns its claims. Expired tokens fail with [jwt.ErrTokenExpired];
// tampered tokens fail with [jwt.ErrTokenSignatureInvalid]. The two are
// distinguishable via errors.Is.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (m *Manager) claims(subject, userID, deviceID string, roles []string, tokenType string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		UserID:    userID,
		DeviceID:  deviceID,
		Roles:     NormalizeRoles(roles),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// NormalizeRoles is a pure transform from a raw role-name set to the
// claim list: whitespace is trimmed, empty names and duplicates are
// dropped, and the result is sorted so issuance never depends on the
// caller's iteration order. The result is never nil.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		name := strings.TrimSpace(role)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
