// Package invalidblocks remembers the blocks that failed validation, and the blocks poisoned by
// building on one.
package invalidblocks

import (
	"sync"

	"github.com/bsv-blockchain/chainstate/util/notify"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
)

// InvalidBlock is the payload delivered to subscribers.
type InvalidBlock struct {
	Hash   chainhash.Hash
	Reason string
}

type Cache struct {
	mu        sync.RWMutex
	blocks    *swiss.Map[chainhash.Hash, string]
	listeners notify.Listeners[InvalidBlock]
}

func New() *Cache {
	return &Cache{
		blocks: swiss.NewMap[chainhash.Hash, string](64),
	}
}

// TryAdd marks hash invalid and fires the subscriptions. It returns false, without firing, when the
// block was already marked.
func (c *Cache) TryAdd(hash chainhash.Hash, reason string) bool {
	c.mu.Lock()

	if c.blocks.Has(hash) {
		c.mu.Unlock()
		return false
	}

	c.blocks.Put(hash, reason)
	c.mu.Unlock()

	c.listeners.Fire(InvalidBlock{Hash: hash, Reason: reason})

	return true
}

func (c *Cache) Contains(hash chainhash.Hash) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks.Has(hash)
}

// Reason returns why hash was marked invalid.
func (c *Cache) Reason(hash chainhash.Hash) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks.Get(hash)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks.Count()
}

func (c *Cache) Subscribe(fn func(InvalidBlock)) func() {
	return c.listeners.Subscribe(fn)
}
