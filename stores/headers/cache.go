package headers

import (
	"context"
	"net/http"
	"time"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/jellydator/ttlcache/v3"
)

// CachedStore is a read-through ttl cache in front of a Store. Headers are immutable, so entries
// are never invalidated, only expired or evicted.
type CachedStore struct {
	store Store
	cache *ttlcache.Cache[chainhash.Hash, *model.ChainedHeader]
	unsub func()
}

func NewCachedStore(store Store, ttl time.Duration, capacity int) *CachedStore {
	opts := []ttlcache.Option[chainhash.Hash, *model.ChainedHeader]{
		ttlcache.WithTTL[chainhash.Hash, *model.ChainedHeader](ttl),
		ttlcache.WithDisableTouchOnHit[chainhash.Hash, *model.ChainedHeader](),
	}

	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[chainhash.Hash, *model.ChainedHeader](uint64(capacity)))
	}

	c := &CachedStore{
		store: store,
		cache: ttlcache.New[chainhash.Hash, *model.ChainedHeader](opts...),
	}

	// headers added through other handles of the store still land in the cache
	c.unsub = store.Subscribe(func(ch *model.ChainedHeader) {
		c.cache.Set(*ch.Hash(), ch, ttlcache.DefaultTTL)
	})

	go c.cache.Start()

	return c
}

func (c *CachedStore) Get(ctx context.Context, hash *chainhash.Hash) (*model.ChainedHeader, error) {
	if item := c.cache.Get(*hash); item != nil {
		return item.Value(), nil
	}

	ch, err := c.store.Get(ctx, hash)
	if err != nil || ch == nil {
		return ch, err
	}

	c.cache.Set(*hash, ch, ttlcache.DefaultTTL)

	return ch, nil
}

func (c *CachedStore) Add(ctx context.Context, ch *model.ChainedHeader) (bool, error) {
	return c.store.Add(ctx, ch)
}

func (c *CachedStore) Tips(ctx context.Context) ([]*model.ChainedHeader, error) {
	return c.store.Tips(ctx)
}

func (c *CachedStore) Subscribe(fn func(*model.ChainedHeader)) func() {
	return c.store.Subscribe(fn)
}

func (c *CachedStore) Len() int {
	return c.cache.Len()
}

func (c *CachedStore) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	code, details, err := c.store.Health(ctx, checkLiveness)
	if err != nil || code != http.StatusOK {
		return code, details, err
	}

	return http.StatusOK, details + " (cached)", nil
}

func (c *CachedStore) Close() error {
	c.unsub()
	c.cache.Stop()

	return c.store.Close()
}
