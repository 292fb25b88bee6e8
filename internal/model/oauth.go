package model

import "time"

// OAuthToken is one row per discovery source that authenticates via
// OAuth2 (device-code flow against an IMAP provider).
type OAuthToken struct {
	Source       string
	Provider     string
	AccessToken  string
	RefreshToken *string
	ExpiresAt    time.Time
}

// IsExpired reports whether the token would expire within buffer of
// now. A malformed/zero ExpiresAt is treated as already expired —
// callers should never silently proceed on unparsable expiry data.
func (t OAuthToken) IsExpired(now time.Time, buffer time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(buffer).After(t.ExpiresAt)
}
