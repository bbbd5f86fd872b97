package authcore

// User is the identity input to token issuance: a stable identifier,
// the email used as the token subject, and the user's role-name set.
// The Engine requires nothing else from the upstream identity source.
type User struct {
	ID    string
	Email string
	Roles []string
}

// TokenPair is returned by [Engine.EstablishSession]: the freshly
// minted access and refresh tokens plus the device identifier the
// session was recorded under (generated when the caller passed none).
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	DeviceID     string
}
