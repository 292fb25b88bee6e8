package model

import (
	"testing"
	"time"
)

func TestOAuthTokenIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		token  OAuthToken
		buffer time.Duration
		want   bool
	}{
		{"future expiry, no buffer", OAuthToken{ExpiresAt: now.Add(time.Hour)}, 0, false},
		{"past expiry", OAuthToken{ExpiresAt: now.Add(-time.Minute)}, 0, true},
		{"zero expiry treated as expired", OAuthToken{}, 0, true},
		{"within buffer window counts as expired", OAuthToken{ExpiresAt: now.Add(time.Minute)}, 5 * time.Minute, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.token.IsExpired(now, c.buffer); got != c.want {
				t.Errorf("IsExpired = %v, want %v", got, c.want)
			}
		})
	}
}
