// Package session issues and verifies HS256 access tokens. The token subject
// is the ledger account the bearer acts as.
package session

import (
	"context"
	"errors"
	"time"

	"lending/core"

	"github.com/bluele/gcache"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// ErrEmptySecret tokens can't be signed or verified without a secret
var ErrEmptySecret = errors.New("session: empty secret")

// Config session config
type Config struct {
	Secret string
	Issuer string
	// Capacity of the verified token cache, disabled when zero
	Capacity int
}

// New new session
func New(cfg Config) (core.Session, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}

	var s core.Session = &session{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}

	if cfg.Capacity > 0 {
		s = &cacheSession{
			Session: s,
			tokens:  gcache.New(cfg.Capacity).LRU().Build(),
			sf:      &singleflight.Group{},
		}
	}

	return s, nil
}

type session struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func (s *session) Issue(ctx context.Context, account string, ttl time.Duration) (string, error) {
	if account == "" {
		return "", errors.New("session: empty account")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Issuer:    s.issuer,
		Subject:   account,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *session) Login(ctx context.Context, accessToken string) (*core.User, error) {
	var claims jwt.RegisteredClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}

	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	if _, err := jwt.ParseWithClaims(accessToken, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...); err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errors.New("session: token without subject")
	}

	return &core.User{
		Account:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
