package authcore

import (
	"context"
	"fmt"

	"github.com/bojanp/authcore/jwt"
	"github.com/bojanp/authcore/session"
	"github.com/google/uuid"
)

// Token issuance. Unlike the session registry, these operations
// propagate their errors: a nil user or a failed sign indicates a
// programming or configuration fault in the caller, not an outage to
// degrade around.

// IssueAccessToken signs an access token for user bound to the device,
// client IP and user agent of the request. Returns [ErrUserRequired]
// when user is nil and a wrapped [ErrTokenSigningFailed] when the sign
// operation cannot complete.
func (e *Engine) IssueAccessToken(user *User, deviceID, ipAddress, userAgent string) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	if user == nil {
		return "", ErrUserRequired
	}

	token, err := e.jwtManager.CreateAccess(user.Email, user.ID, deviceID, ipAddress, userAgent, user.Roles)
	if err != nil {
		e.metricInc(MetricTokenSigningFailure)
		return "", fmt.Errorf("%w: %v", ErrTokenSigningFailed, err)
	}

	e.metricInc(MetricAccessTokenIssued)
	return token, nil
}

// IssueRefreshToken signs a refresh token for user on the given device.
// Refresh tokens carry no client IP or user agent.
func (e *Engine) IssueRefreshToken(user *User, deviceID string) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	if user == nil {
		return "", ErrUserRequired
	}

	token, err := e.jwtManager.CreateRefresh(user.Email, user.ID, deviceID, user.Roles)
	if err != nil {
		e.metricInc(MetricTokenSigningFailure)
		return "", fmt.Errorf("%w: %v", ErrTokenSigningFailed, err)
	}

	e.metricInc(MetricRefreshTokenIssued)
	return token, nil
}

// ParseAccessToken verifies a previously issued token and returns its
// claims, for embedders building verification middleware.
func (e *Engine) ParseAccessToken(tokenStr string) (*jwt.Claims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	return e.jwtManager.Parse(tokenStr)
}

// EstablishSession is the login-time composition: it mints both tokens
// for user and records the session under (user, device). When deviceID
// is empty a fresh identifier is generated. Token errors propagate; the
// session write itself fails open like every registry operation.
func (e *Engine) EstablishSession(ctx context.Context, user *User, deviceID, ipAddress, userAgent string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if user == nil {
		return nil, ErrUserRequired
	}
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	access, err := e.IssueAccessToken(user, deviceID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	refresh, err := e.IssueRefreshToken(user, deviceID)
	if err != nil {
		return nil, err
	}

	e.CreateSession(ctx, &session.Session{
		UserID:    user.ID,
		DeviceID:  deviceID,
		IPAddress: ipAddress,
		Active:    true,
	})

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		DeviceID:     deviceID,
	}, nil
}
