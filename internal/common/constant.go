package common

import "time"

const (
	// SessionCookieName holds the encrypted provider access credential.
	SessionCookieName = "liveon_session"
	// ProfileCookieName holds the signed cached user profile.
	ProfileCookieName = "liveon_user"

	// CredentialKey is the session value key for the provider access token.
	CredentialKey = "fb_token"

	// SessionMaxAge is the lifetime of both auth cookies.
	SessionMaxAge = 7 * 24 * time.Hour

	// StateMaxAge bounds how old a login state token may be at callback time.
	StateMaxAge = 600 * time.Second
)
