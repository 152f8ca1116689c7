package sql

import (
	"context"
	"database/sql"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/util/usql"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type Cursor struct {
	store *SQL

	// ctx is the context of the current transaction
	ctx      context.Context
	tx       *usql.Tx
	counters model.UtxoCounters
}

func (c *Cursor) q() querier {
	if c.tx != nil {
		return c.tx
	}

	return c.store.db
}

func (c *Cursor) context() context.Context {
	if c.ctx != nil {
		return c.ctx
	}

	return context.Background()
}

func (c *Cursor) BeginTransaction(ctx context.Context) error {
	if c.tx != nil {
		return chainstate.ErrAlreadyInTransaction
	}

	if err := c.store.txLock.Lock(ctx); err != nil {
		return err
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		c.store.txLock.Unlock()
		return errors.NewStorageError("failed to begin transaction", err)
	}

	counters, err := c.readCounters(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		c.store.txLock.Unlock()

		return err
	}

	c.ctx = ctx
	c.tx = tx
	c.counters = *counters

	return nil
}

func (c *Cursor) CommitTransaction(ctx context.Context) error {
	if c.tx == nil {
		return chainstate.ErrNotInTransaction
	}

	defer c.endTransaction()

	if err := c.counters.Validate(); err != nil {
		_ = c.tx.Rollback()
		return err
	}

	if _, err := c.tx.ExecContext(ctx, `
		INSERT INTO state (key, data) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET data = excluded.data
	`, countersKey, c.counters.Bytes()); err != nil {
		_ = c.tx.Rollback()
		return errors.NewStorageError("failed to write utxo counters", err)
	}

	if err := c.tx.Commit(); err != nil {
		return errors.NewStorageError("failed to commit transaction", err)
	}

	return nil
}

func (c *Cursor) RollbackTransaction() error {
	if c.tx == nil {
		return chainstate.ErrNotInTransaction
	}

	defer c.endTransaction()

	if err := c.tx.Rollback(); err != nil {
		return errors.NewStorageError("failed to roll back transaction", err)
	}

	return nil
}

func (c *Cursor) endTransaction() {
	c.tx = nil
	c.ctx = nil
	c.store.txLock.Unlock()

	if counters, err := c.readCounters(context.Background(), c.store.db); err == nil {
		c.counters = *counters
	} else {
		c.store.logger.Errorf("[ChainStateSQL] failed to reload counters: %v", err)
	}
}

func (c *Cursor) InTransaction() bool {
	return c.tx != nil
}

func (c *Cursor) Counters() *model.UtxoCounters {
	if c.tx != nil {
		return &c.counters
	}

	counters, err := c.readCounters(context.Background(), c.store.db)
	if err != nil {
		c.store.logger.Errorf("[ChainStateSQL] failed to read counters: %v", err)

		counters = &model.UtxoCounters{}
		*counters = c.counters
	}

	return counters
}

func (c *Cursor) UnspentTxCount(ctx context.Context) (int64, error) {
	var count int64

	if err := c.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM unspent_txes`).Scan(&count); err != nil {
		return 0, errors.NewStorageError("failed to count unspent txes", err)
	}

	return count, nil
}

func (c *Cursor) Close() error {
	if c.tx != nil {
		return c.RollbackTransaction()
	}

	return nil
}

func (c *Cursor) exec(query string, args ...interface{}) (bool, error) {
	if c.tx == nil {
		return false, chainstate.ErrNotInTransaction
	}

	result, err := c.tx.ExecContext(c.context(), query, args...)
	if err != nil {
		return false, errors.NewStorageError("failed to execute %q", query, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStorageError("failed to read affected rows", err)
	}

	return rows > 0, nil
}

func (c *Cursor) get(query string, args ...interface{}) ([]byte, bool, error) {
	var data []byte

	if err := c.q().QueryRowContext(c.context(), query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, errors.NewStorageError("failed to query %q", query, err)
	}

	return data, true, nil
}

func (c *Cursor) ChainTip() (*model.ChainedHeader, error) {
	data, ok, err := c.get(`SELECT data FROM headers ORDER BY height DESC LIMIT 1`)
	if err != nil || !ok {
		return nil, err
	}

	return model.NewChainedHeaderFromBytes(data)
}

func (c *Cursor) ReadChain() ([]*model.ChainedHeader, error) {
	rows, err := c.q().QueryContext(c.context(), `SELECT data FROM headers ORDER BY height ASC`)
	if err != nil {
		return nil, errors.NewStorageError("failed to read chain", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var chain []*model.ChainedHeader

	for rows.Next() {
		var data []byte
		if err = rows.Scan(&data); err != nil {
			return nil, errors.NewStorageError("failed to scan header", err)
		}

		ch, err := model.NewChainedHeaderFromBytes(data)
		if err != nil {
			return nil, errors.NewCorruptionError("invalid header at height %d", len(chain), err)
		}

		chain = append(chain, ch)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read chain", err)
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

	return c.exec(`INSERT INTO headers (height, hash, data) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		int64(ch.Height), ch.Hash().CloneBytes(), ch.Bytes())
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

	return c.exec(`DELETE FROM headers WHERE height = $1`, int64(ch.Height))
}

func (c *Cursor) TryAddUnspentTx(tx *model.UnspentTx) (bool, error) {
	return c.exec(`INSERT INTO unspent_txes (hash, data) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		tx.TxHash.CloneBytes(), tx.Bytes())
}

func (c *Cursor) TryGetUnspentTx(hash *chainhash.Hash) (*model.UnspentTx, bool, error) {
	data, ok, err := c.get(`SELECT data FROM unspent_txes WHERE hash = $1`, hash.CloneBytes())
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
	return c.exec(`UPDATE unspent_txes SET data = $2 WHERE hash = $1`, tx.TxHash.CloneBytes(), tx.Bytes())
}

func (c *Cursor) TryRemoveUnspentTx(hash *chainhash.Hash) (bool, error) {
	return c.exec(`DELETE FROM unspent_txes WHERE hash = $1`, hash.CloneBytes())
}

func (c *Cursor) TryAddBlockSpentTxes(height uint32, spentTxes model.BlockSpentTxes) (bool, error) {
	return c.exec(`INSERT INTO block_spent_txes (height, data) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		int64(height), spentTxes.Bytes())
}

func (c *Cursor) TryGetBlockSpentTxes(height uint32) (model.BlockSpentTxes, bool, error) {
	data, ok, err := c.get(`SELECT data FROM block_spent_txes WHERE height = $1`, int64(height))
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
	return c.exec(`DELETE FROM block_spent_txes WHERE height = $1`, int64(height))
}

func (c *Cursor) TryAddBlockUnmintedTxes(hash *chainhash.Hash, txs []*model.UnmintedTx) (bool, error) {
	return c.exec(`INSERT INTO block_unminted_txes (hash, data) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		hash.CloneBytes(), model.UnmintedTxesBytes(txs))
}

func (c *Cursor) TryGetBlockUnmintedTxes(hash *chainhash.Hash) ([]*model.UnmintedTx, bool, error) {
	data, ok, err := c.get(`SELECT data FROM block_unminted_txes WHERE hash = $1`, hash.CloneBytes())
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
	return c.exec(`DELETE FROM block_unminted_txes WHERE hash = $1`, hash.CloneBytes())
}
