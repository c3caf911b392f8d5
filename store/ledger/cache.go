package ledger

import (
	"context"
	"fmt"
	"time"

	"lending/core"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// Cache keeps created markets in memory. Entries may lag behind writes made by
// other processes; such a stale market fails its commit with core.ErrConflict
// and is evicted, so the next read goes to the store.
func Cache(store core.LedgerStore, exp time.Duration) core.LedgerStore {
	return &cacheLedgerStore{
		LedgerStore: store,
		cache:       gcache.New(1024).LRU().Expiration(exp).Build(),
		sf:          &singleflight.Group{},
	}
}

type cacheLedgerStore struct {
	core.LedgerStore
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheLedgerStore) FindMarket(ctx context.Context, id core.ID) (*core.Market, error) {
	key := s.marketKey(id)
	if v, err := s.cache.Get(key); err == nil {
		if m, ok := v.(*core.Market); ok {
			return m.Clone(), nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		m, err := s.LedgerStore.FindMarket(ctx, id)
		if err != nil {
			return nil, err
		}

		if m.Created() {
			_ = s.cache.Set(key, m.Clone())
		}

		return m, nil
	})

	if err != nil {
		return nil, err
	}

	// shared with other callers of the same flight
	m := v.(*core.Market)
	if !m.Created() {
		return &core.Market{}, nil
	}

	return m.Clone(), nil
}

func (s *cacheLedgerStore) Commit(ctx context.Context, cs *core.ChangeSet) error {
	if err := s.LedgerStore.Commit(ctx, cs); err != nil {
		for _, m := range append(cs.Created, cs.Markets...) {
			s.cache.Remove(s.marketKey(m.ID))
		}

		return err
	}

	for _, m := range append(cs.Created, cs.Markets...) {
		_ = s.cache.Set(s.marketKey(m.ID), m.Clone())
	}

	return nil
}

func (s *cacheLedgerStore) marketKey(id core.ID) string {
	return fmt.Sprintf("market:%s", id)
}
