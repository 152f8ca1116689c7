// Package memory is an in memory chainstate.Store backed by swiss maps.
package memory

import (
	"context"
	"net/http"
	"sync"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
)

const initialCapacity = 1024

type Memory struct {
	logger ulogger.Logger

	txLock *chainstate.TxLock
	mu     sync.RWMutex

	chain     []*model.ChainedHeader
	unspent   *swiss.Map[chainhash.Hash, *model.UnspentTx]
	spentTxes *swiss.Map[uint32, model.BlockSpentTxes]
	unminted  *swiss.Map[chainhash.Hash, []*model.UnmintedTx]
	counters  model.UtxoCounters
}

func New(logger ulogger.Logger) *Memory {
	return &Memory{
		logger:    logger,
		txLock:    chainstate.NewTxLock(),
		unspent:   swiss.NewMap[chainhash.Hash, *model.UnspentTx](initialCapacity),
		spentTxes: swiss.NewMap[uint32, model.BlockSpentTxes](initialCapacity),
		unminted:  swiss.NewMap[chainhash.Hash, []*model.UnmintedTx](initialCapacity),
	}
}

func (m *Memory) OpenCursor(_ context.Context) (chainstate.Cursor, error) {
	return &Cursor{store: m}, nil
}

func (m *Memory) Health(_ context.Context, _ bool) (int, string, error) {
	return http.StatusOK, "Memory Store available", nil
}

func (m *Memory) Close() error {
	return nil
}

// Cursor mutates the store in place and keeps an undo journal for rollback. Reads from other cursors
// see uncommitted changes.
type Cursor struct {
	store *Memory

	inTx     bool
	undo     []func()
	counters model.UtxoCounters
}

func (c *Cursor) BeginTransaction(ctx context.Context) error {
	if c.inTx {
		return chainstate.ErrAlreadyInTransaction
	}

	if err := c.store.txLock.Lock(ctx); err != nil {
		return err
	}

	c.store.mu.RLock()
	c.counters = c.store.counters
	c.store.mu.RUnlock()

	c.inTx = true
	c.undo = c.undo[:0]

	return nil
}

func (c *Cursor) CommitTransaction(_ context.Context) error {
	if !c.inTx {
		return chainstate.ErrNotInTransaction
	}

	c.store.mu.Lock()
	c.store.counters = c.counters
	c.store.mu.Unlock()

	c.endTransaction()

	return nil
}

func (c *Cursor) RollbackTransaction() error {
	if !c.inTx {
		return chainstate.ErrNotInTransaction
	}

	c.store.mu.Lock()
	for i := len(c.undo) - 1; i >= 0; i-- {
		c.undo[i]()
	}
	c.store.mu.Unlock()

	c.endTransaction()

	return nil
}

func (c *Cursor) endTransaction() {
	c.undo = nil
	c.inTx = false
	c.store.txLock.Unlock()
}

func (c *Cursor) InTransaction() bool {
	return c.inTx
}

func (c *Cursor) Counters() *model.UtxoCounters {
	if c.inTx {
		return &c.counters
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	counters := c.store.counters

	return &counters
}

func (c *Cursor) UnspentTxCount(_ context.Context) (int64, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	return int64(c.store.unspent.Count()), nil
}

func (c *Cursor) Close() error {
	if c.inTx {
		return c.RollbackTransaction()
	}

	return nil
}

// mutate runs fn under the write lock. fn returns the undo function of its change, or nil when
// nothing changed.
func (c *Cursor) mutate(fn func() (func(), bool)) (bool, error) {
	if !c.inTx {
		return false, chainstate.ErrNotInTransaction
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	undo, ok := fn()
	if undo != nil {
		c.undo = append(c.undo, undo)
	}

	return ok, nil
}

func (c *Cursor) ChainTip() (*model.ChainedHeader, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if len(c.store.chain) == 0 {
		return nil, nil
	}

	return c.store.chain[len(c.store.chain)-1], nil
}

func (c *Cursor) ReadChain() ([]*model.ChainedHeader, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	chain := make([]*model.ChainedHeader, len(c.store.chain))
	copy(chain, c.store.chain)

	return chain, nil
}

func (c *Cursor) TryAddHeader(ch *model.ChainedHeader) (bool, error) {
	return c.mutate(func() (func(), bool) {
		s := c.store

		if n := len(s.chain); n == 0 {
			if ch.Height != 0 {
				return nil, false
			}
		} else if tip := s.chain[n-1]; !ch.PreviousHash().IsEqual(tip.Hash()) || ch.Height != tip.Height+1 {
			return nil, false
		}

		s.chain = append(s.chain, ch)

		return func() { s.chain = s.chain[:len(s.chain)-1] }, true
	})
}

func (c *Cursor) TryRemoveHeader(ch *model.ChainedHeader) (bool, error) {
	return c.mutate(func() (func(), bool) {
		s := c.store

		n := len(s.chain)
		if n == 0 || !s.chain[n-1].IsEqual(ch) {
			return nil, false
		}

		removed := s.chain[n-1]
		s.chain = s.chain[:n-1]

		return func() { s.chain = append(s.chain, removed) }, true
	})
}

func (c *Cursor) TryAddUnspentTx(tx *model.UnspentTx) (bool, error) {
	return c.mutate(func() (func(), bool) {
		s := c.store

		if s.unspent.Has(tx.TxHash) {
			return nil, false
		}

		s.unspent.Put(tx.TxHash, tx)

		return func() { s.unspent.Delete(tx.TxHash) }, true
	})
}

func (c *Cursor) TryGetUnspentTx(hash *chainhash.Hash) (*model.UnspentTx, bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	tx, ok := c.store.unspent.Get(*hash)

	return tx, ok, nil
}

func (c *Cursor) TryUpdateUnspentTx(tx *model.UnspentTx) (bool, error) {
	return c.mutate(func() (func(), bool) {
		s := c.store

		previous, ok := s.unspent.Get(tx.TxHash)
		if !ok {
			return nil, false
		}

		s.unspent.Put(tx.TxHash, tx)

		return func() { s.unspent.Put(previous.TxHash, previous) }, true
	})
}

func (c *Cursor) TryRemoveUnspentTx(hash *chainhash.Hash) (bool, error) {
	return c.mutate(func() (func(), bool) {
		s := c.store

		previous, ok := s.unspent.Get(*hash)
		if !ok {
			return nil, false
		}

		s.unspent.Delete(*hash)

		return func() { s.unspent.Put(previous.TxHash, previous) }, true
	})
}

func (c *Cursor) TryAddBlockSpentTxes(height uint32, spentTxes model.BlockSpentTxes) (bool, error) {
	return c.mutate(func() (func(), bool) {
		s := c.store

		if s.spentTxes.Has(height) {
			return nil, false
		}

		s.spentTxes.Put(height, spentTxes)

		return func() { s.spentTxes.Delete(height) }, true
	})
}

func (c *Cursor) TryGetBlockSpentTxes(height uint32) (model.BlockSpentTxes, bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	spentTxes, ok := c.store.spentTxes.Get(height)

	return spentTxes, ok, nil
}

func (c *Cursor) TryRemoveBlockSpentTxes(height uint32) (bool, error) {
	return c.mutate(func() (func(), bool) {
		s := c.store

		previous, ok := s.spentTxes.Get(height)
		if !ok {
			return nil, false
		}

		s.spentTxes.Delete(height)

		return func() { s.spentTxes.Put(height, previous) }, true
	})
}

func (c *Cursor) TryAddBlockUnmintedTxes(hash *chainhash.Hash, txs []*model.UnmintedTx) (bool, error) {
	key := *hash

	return c.mutate(func() (func(), bool) {
		s := c.store

		if s.unminted.Has(key) {
			return nil, false
		}

		s.unminted.Put(key, txs)

		return func() { s.unminted.Delete(key) }, true
	})
}

func (c *Cursor) TryGetBlockUnmintedTxes(hash *chainhash.Hash) ([]*model.UnmintedTx, bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	txs, ok := c.store.unminted.Get(*hash)

	return txs, ok, nil
}

func (c *Cursor) TryRemoveBlockUnmintedTxes(hash *chainhash.Hash) (bool, error) {
	key := *hash

	return c.mutate(func() (func(), bool) {
		s := c.store

		previous, ok := s.unminted.Get(key)
		if !ok {
			return nil, false
		}

		s.unminted.Delete(key)

		return func() { s.unminted.Put(key, previous) }, true
	})
}
