package leveldb

import (
	"context"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/util"
)

type Cursor struct {
	store    *LevelDB
	tx       *leveldb.Transaction
	counters model.UtxoCounters
}

func (c *Cursor) r() reader {
	if c.tx != nil {
		return c.tx
	}

	return c.store.db
}

func (c *Cursor) BeginTransaction(ctx context.Context) error {
	if c.tx != nil {
		return chainstate.ErrAlreadyInTransaction
	}

	if err := c.store.txLock.Lock(ctx); err != nil {
		return err
	}

	tx, err := c.store.db.OpenTransaction()
	if err != nil {
		c.store.txLock.Unlock()
		return convertErr("failed to open transaction", err)
	}

	counters, err := readCounters(tx)
	if err != nil {
		tx.Discard()
		c.store.txLock.Unlock()

		return err
	}

	c.tx = tx
	c.counters = *counters

	return nil
}

func (c *Cursor) CommitTransaction(_ context.Context) error {
	if c.tx == nil {
		return chainstate.ErrNotInTransaction
	}

	defer c.endTransaction()

	if err := c.counters.Validate(); err != nil {
		c.tx.Discard()
		return err
	}

	if err := c.tx.Put(keyCounters, c.counters.Bytes(), nil); err != nil {
		c.tx.Discard()
		return convertErr("failed to write utxo counters", err)
	}

	if err := c.tx.Commit(); err != nil {
		c.tx.Discard()
		return convertErr("failed to commit transaction", err)
	}

	return nil
}

func (c *Cursor) RollbackTransaction() error {
	if c.tx == nil {
		return chainstate.ErrNotInTransaction
	}

	c.tx.Discard()
	c.endTransaction()

	return nil
}

func (c *Cursor) endTransaction() {
	c.tx = nil
	c.store.txLock.Unlock()
}

func (c *Cursor) InTransaction() bool {
	return c.tx != nil
}

func (c *Cursor) Counters() *model.UtxoCounters {
	if c.tx != nil {
		return &c.counters
	}

	counters, err := readCounters(c.store.db)
	if err != nil {
		c.store.logger.Errorf("[ChainStateLevelDB] failed to read counters: %v", err)
		return &model.UtxoCounters{}
	}

	return counters
}

func (c *Cursor) UnspentTxCount(ctx context.Context) (int64, error) {
	iter := c.store.db.NewIterator(util.BytesPrefix(prefixUnspent), nil)
	defer iter.Release()

	var count int64

	for iter.Next() {
		count++

		if count%10000 == 0 && ctx.Err() != nil {
			return 0, errors.NewContextCanceledError("unspent tx count canceled", ctx.Err())
		}
	}

	if err := iter.Error(); err != nil {
		return 0, convertErr("failed to count unspent txes", err)
	}

	return count, nil
}

func (c *Cursor) Close() error {
	if c.tx != nil {
		return c.RollbackTransaction()
	}

	return nil
}

func (c *Cursor) get(key []byte) ([]byte, bool, error) {
	data, err := c.r().Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, convertErr("failed to read key", err)
	}

	return data, true, nil
}

func (c *Cursor) has(key []byte) (bool, error) {
	_, ok, err := c.get(key)
	return ok, err
}

// add writes key only when it is not present.
func (c *Cursor) add(key, value []byte) (bool, error) {
	if c.tx == nil {
		return false, chainstate.ErrNotInTransaction
	}

	exists, err := c.has(key)
	if err != nil || exists {
		return false, err
	}

	if err = c.tx.Put(key, value, nil); err != nil {
		return false, convertErr("failed to write key", err)
	}

	return true, nil
}

// update writes key only when it is present.
func (c *Cursor) update(key, value []byte) (bool, error) {
	if c.tx == nil {
		return false, chainstate.ErrNotInTransaction
	}

	exists, err := c.has(key)
	if err != nil || !exists {
		return false, err
	}

	if err = c.tx.Put(key, value, nil); err != nil {
		return false, convertErr("failed to write key", err)
	}

	return true, nil
}

func (c *Cursor) remove(key []byte) (bool, error) {
	if c.tx == nil {
		return false, chainstate.ErrNotInTransaction
	}

	exists, err := c.has(key)
	if err != nil || !exists {
		return false, err
	}

	if err = c.tx.Delete(key, nil); err != nil {
		return false, convertErr("failed to delete key", err)
	}

	return true, nil
}

func (c *Cursor) ChainTip() (*model.ChainedHeader, error) {
	iter := c.r().NewIterator(util.BytesPrefix(prefixHeader), nil)
	defer iter.Release()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return nil, convertErr("failed to read chain tip", err)
		}

		return nil, nil
	}

	return model.NewChainedHeaderFromBytes(iter.Value())
}

func (c *Cursor) ReadChain() ([]*model.ChainedHeader, error) {
	iter := c.r().NewIterator(util.BytesPrefix(prefixHeader), nil)
	defer iter.Release()

	var chain []*model.ChainedHeader

	for iter.Next() {
		ch, err := model.NewChainedHeaderFromBytes(iter.Value())
		if err != nil {
			return nil, errors.NewCorruptionError("invalid header at height %d", len(chain), err)
		}

		chain = append(chain, ch)
	}

	if err := iter.Error(); err != nil {
		return nil, convertErr("failed to read chain", err)
	}

	return chain, nil
}

func (c *Cursor) TryAddHeader(ch *model.ChainedHeader) (bool, error) {
	if c.tx == nil {
		return false, chainstate.ErrNotInTransaction
	}

	tip, err := c.ChainTip()
	if err != nil {
		return false, err
	}

	if tip == nil {
		if ch.Height != 0 {
			return false, nil
		}
	} else if !ch.PreviousHash().IsEqual(tip.Hash()) || ch.Height != tip.Height+1 {
		return false, nil
	}

	return c.add(heightKey(prefixHeader, ch.Height), ch.Bytes())
}

func (c *Cursor) TryRemoveHeader(ch *model.ChainedHeader) (bool, error) {
	if c.tx == nil {
		return false, chainstate.ErrNotInTransaction
	}

	tip, err := c.ChainTip()
	if err != nil {
		return false, err
	}

	if tip == nil || !tip.IsEqual(ch) {
		return false, nil
	}

	return c.remove(heightKey(prefixHeader, ch.Height))
}

func (c *Cursor) TryAddUnspentTx(tx *model.UnspentTx) (bool, error) {
	return c.add(hashKey(prefixUnspent, tx.TxHash[:]), tx.Bytes())
}

func (c *Cursor) TryGetUnspentTx(hash *chainhash.Hash) (*model.UnspentTx, bool, error) {
	data, ok, err := c.get(hashKey(prefixUnspent, hash[:]))
	if err != nil || !ok {
		return nil, false, err
	}

	tx, err := model.NewUnspentTxFromBytes(data)
	if err != nil {
		return nil, false, errors.NewCorruptionError("invalid unspent tx %s", hash, err)
	}

	return tx, true, nil
}

func (c *Cursor) TryUpdateUnspentTx(tx *model.UnspentTx) (bool, error) {
	return c.update(hashKey(prefixUnspent, tx.TxHash[:]), tx.Bytes())
}

func (c *Cursor) TryRemoveUnspentTx(hash *chainhash.Hash) (bool, error) {
	return c.remove(hashKey(prefixUnspent, hash[:]))
}

func (c *Cursor) TryAddBlockSpentTxes(height uint32, spentTxes model.BlockSpentTxes) (bool, error) {
	return c.add(heightKey(prefixSpentTxes, height), spentTxes.Bytes())
}

func (c *Cursor) TryGetBlockSpentTxes(height uint32) (model.BlockSpentTxes, bool, error) {
	data, ok, err := c.get(heightKey(prefixSpentTxes, height))
	if err != nil || !ok {
		return nil, false, err
	}

	spentTxes, err := model.NewBlockSpentTxesFromBytes(data)
	if err != nil {
		return nil, false, errors.NewCorruptionError("invalid spent txes at height %d", height, err)
	}

	return spentTxes, true, nil
}

func (c *Cursor) TryRemoveBlockSpentTxes(height uint32) (bool, error) {
	return c.remove(heightKey(prefixSpentTxes, height))
}

func (c *Cursor) TryAddBlockUnmintedTxes(hash *chainhash.Hash, txs []*model.UnmintedTx) (bool, error) {
	return c.add(hashKey(prefixUnminted, hash[:]), model.UnmintedTxesBytes(txs))
}

func (c *Cursor) TryGetBlockUnmintedTxes(hash *chainhash.Hash) ([]*model.UnmintedTx, bool, error) {
	data, ok, err := c.get(hashKey(prefixUnminted, hash[:]))
	if err != nil || !ok {
		return nil, false, err
	}

	txs, err := model.NewUnmintedTxesFromBytes(data)
	if err != nil {
		return nil, false, errors.NewCorruptionError("invalid unminted txes for block %s", hash, err)
	}

	return txs, true, nil
}

func (c *Cursor) TryRemoveBlockUnmintedTxes(hash *chainhash.Hash) (bool, error) {
	return c.remove(hashKey(prefixUnminted, hash[:]))
}
