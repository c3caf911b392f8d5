package session

import (
	"context"
	"time"

	"lending/core"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

type cacheSession struct {
	core.Session
	tokens gcache.Cache
	sf     *singleflight.Group
}

func (s *cacheSession) Login(ctx context.Context, accessToken string) (*core.User, error) {
	if v, err := s.tokens.Get(accessToken); err == nil {
		if user := v.(*core.User); time.Now().Before(user.ExpiresAt) {
			return user, nil
		}
	}

	v, err, _ := s.sf.Do(accessToken, func() (interface{}, error) {
		user, err := s.Session.Login(ctx, accessToken)
		if err != nil {
			return nil, err
		}

		if ttl := time.Until(user.ExpiresAt); ttl > 0 {
			_ = s.tokens.SetWithExpire(accessToken, user, ttl)
		}

		return user, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*core.User), nil
}
