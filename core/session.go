package core

import (
	"context"
	"time"
)

// User account behind an access token
type User struct {
	Account   string    `json:"account"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session user session
type Session interface {
	// Login resolve the account an access token was issued to
	Login(ctx context.Context, accessToken string) (*User, error)
	// Issue sign a token for account valid for ttl
	Issue(ctx context.Context, account string, ttl time.Duration) (string, error)
}
