// Package chainstate defines the persistent state a chain state builder works on: the chain of applied
// headers, the UTXO set, the per block spent tx ledgers and unminted tx replay data, and the UTXO counters.
//
// All mutations go through a Cursor inside a transaction; one transaction covers exactly one block.
// The bool results of the Try methods report the logical outcome (false for a duplicate add, or for
// an update or remove of a missing entry); the error result is reserved for storage failures.
package chainstate

import (
	"context"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type Store interface {
	// OpenCursor returns a new cursor. Only one cursor may hold a transaction at a time.
	OpenCursor(ctx context.Context) (Cursor, error)
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	Close() error
}

type Cursor interface {
	// BeginTransaction starts a transaction, waiting for any other cursor's transaction to finish.
	BeginTransaction(ctx context.Context) error
	// CommitTransaction persists every mutation since BeginTransaction, counters included, atomically.
	CommitTransaction(ctx context.Context) error
	// RollbackTransaction discards every mutation since BeginTransaction, counters included.
	RollbackTransaction() error
	InTransaction() bool

	// ChainTip returns the last applied header, or nil when nothing has been applied yet.
	ChainTip() (*model.ChainedHeader, error)
	// ReadChain returns the applied headers, genesis first.
	ReadChain() ([]*model.ChainedHeader, error)
	// TryAddHeader appends ch; it must build on the current tip.
	TryAddHeader(ch *model.ChainedHeader) (bool, error)
	// TryRemoveHeader removes ch; it must be the current tip.
	TryRemoveHeader(ch *model.ChainedHeader) (bool, error)

	TryAddUnspentTx(tx *model.UnspentTx) (bool, error)
	TryGetUnspentTx(hash *chainhash.Hash) (*model.UnspentTx, bool, error)
	TryUpdateUnspentTx(tx *model.UnspentTx) (bool, error)
	TryRemoveUnspentTx(hash *chainhash.Hash) (bool, error)

	TryAddBlockSpentTxes(height uint32, spentTxes model.BlockSpentTxes) (bool, error)
	TryGetBlockSpentTxes(height uint32) (model.BlockSpentTxes, bool, error)
	TryRemoveBlockSpentTxes(height uint32) (bool, error)

	TryAddBlockUnmintedTxes(hash *chainhash.Hash, txs []*model.UnmintedTx) (bool, error)
	TryGetBlockUnmintedTxes(hash *chainhash.Hash) ([]*model.UnmintedTx, bool, error)
	TryRemoveBlockUnmintedTxes(hash *chainhash.Hash) (bool, error)

	// Counters returns the counters of the cursor. Inside a transaction the returned value is the
	// transaction's working copy and may be modified in place.
	Counters() *model.UtxoCounters

	// UnspentTxCount returns the number of entries in the committed UTXO set, for consistency checks.
	UnspentTxCount(ctx context.Context) (int64, error)

	Close() error
}
