// Package tests holds the behaviour every chainstate.Store backend must share. Backends call these
// functions from their own tests.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewStoreFunc returns a new, empty store. The store is closed by the caller.
type NewStoreFunc func(t *testing.T) chainstate.Store

// RunAll runs every shared test against stores created by newStore.
func RunAll(t *testing.T, newStore NewStoreFunc) {
	tests := map[string]func(t *testing.T, store chainstate.Store){
		"headers":               Headers,
		"unspent txes":          UnspentTxes,
		"block spent txes":      BlockSpentTxes,
		"block unminted txes":   BlockUnmintedTxes,
		"counters":              Counters,
		"rollback":              Rollback,
		"outside transaction":   OutsideTransaction,
		"single transaction":    SingleTransaction,
		"close rolls back":      CloseRollsBack,
		"committed across open": CommittedAcrossCursors,
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			defer func() {
				require.NoError(t, store.Close())
			}()

			fn(t, store)
		})
	}
}

func openCursor(t *testing.T, store chainstate.Store) chainstate.Cursor {
	t.Helper()

	cursor, err := store.OpenCursor(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cursor.Close()
	})

	return cursor
}

func begin(t *testing.T, cursor chainstate.Cursor) {
	t.Helper()
	require.NoError(t, cursor.BeginTransaction(context.Background()))
}

func commit(t *testing.T, cursor chainstate.Cursor) {
	t.Helper()
	require.NoError(t, cursor.CommitTransaction(context.Background()))
}

func unspentTx(height uint32, outputs int) *model.UnspentTx {
	tx := test.CoinbaseTx(height, 0, outputs)

	return model.NewUnspentTx(*tx.TxIDChainHash(), height, 0, tx.Version, true, tx.Outputs)
}

func Headers(t *testing.T, store chainstate.Store) {
	cursor := openCursor(t, store)

	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	headers := fake.Extend(genesis, 2)

	tip, err := cursor.ChainTip()
	require.NoError(t, err)
	assert.Nil(t, tip)

	begin(t, cursor)

	ok, err := cursor.TryAddHeader(headers[0])
	require.NoError(t, err)
	assert.False(t, ok, "only genesis can start the chain")

	for _, h := range append([]*model.ChainedHeader{genesis}, headers...) {
		ok, err = cursor.TryAddHeader(h)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err = cursor.TryAddHeader(fake.Next(headers[0]))
	require.NoError(t, err)
	assert.False(t, ok, "a header must build on the tip")

	ok, err = cursor.TryRemoveHeader(headers[0])
	require.NoError(t, err)
	assert.False(t, ok, "only the tip can be removed")

	commit(t, cursor)

	tip, err = cursor.ChainTip()
	require.NoError(t, err)
	assert.True(t, tip.IsEqual(headers[1]))
	assert.Equal(t, 0, tip.ChainWork.Cmp(headers[1].ChainWork))

	chain, err := cursor.ReadChain()
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.True(t, chain[0].IsEqual(genesis))
	assert.Equal(t, uint32(2), chain[2].Height)

	begin(t, cursor)

	ok, err = cursor.TryRemoveHeader(headers[1])
	require.NoError(t, err)
	assert.True(t, ok)

	commit(t, cursor)

	tip, err = cursor.ChainTip()
	require.NoError(t, err)
	assert.True(t, tip.IsEqual(headers[0]))
}

func UnspentTxes(t *testing.T, store chainstate.Store) {
	cursor := openCursor(t, store)

	u := unspentTx(1, 3)

	begin(t, cursor)

	ok, err := cursor.TryAddUnspentTx(u)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cursor.TryAddUnspentTx(u)
	require.NoError(t, err)
	assert.False(t, ok, "duplicate add")

	got, ok, err := cursor.TryGetUnspentTx(&u.TxHash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.TxHash, got.TxHash)
	assert.Equal(t, u.OutputStates, got.OutputStates)
	assert.True(t, got.IsCoinbase)
	require.Len(t, got.Outputs, 3)
	assert.Equal(t, u.Outputs[2].Satoshis, got.Outputs[2].Satoshis)

	updated := u.SetOutputState(1, model.OutputStateSpent)

	ok, err = cursor.TryUpdateUnspentTx(updated)
	require.NoError(t, err)
	assert.True(t, ok)

	got, ok, err = cursor.TryGetUnspentTx(&u.TxHash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.OutputStateSpent, got.OutputStates[1])

	missing := unspentTx(2, 1)

	ok, err = cursor.TryUpdateUnspentTx(missing)
	require.NoError(t, err)
	assert.False(t, ok, "update of a missing entry")

	ok, err = cursor.TryRemoveUnspentTx(&missing.TxHash)
	require.NoError(t, err)
	assert.False(t, ok, "remove of a missing entry")

	_, ok, err = cursor.TryGetUnspentTx(&missing.TxHash)
	require.NoError(t, err)
	assert.False(t, ok)

	commit(t, cursor)

	count, err := cursor.UnspentTxCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	begin(t, cursor)

	ok, err = cursor.TryRemoveUnspentTx(&u.TxHash)
	require.NoError(t, err)
	assert.True(t, ok)

	commit(t, cursor)

	_, ok, err = cursor.TryGetUnspentTx(&u.TxHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func BlockSpentTxes(t *testing.T, store chainstate.Store) {
	cursor := openCursor(t, store)

	builder := model.NewBlockSpentTxesBuilder()
	builder.AddSpentTx(unspentTx(1, 2).ToSpentTx())
	builder.AddSpentTx(unspentTx(2, 1).ToSpentTx())

	spentTxes := builder.ToImmutable()

	begin(t, cursor)

	ok, err := cursor.TryAddBlockSpentTxes(5, spentTxes)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cursor.TryAddBlockSpentTxes(5, spentTxes)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cursor.TryAddBlockSpentTxes(6, model.BlockSpentTxes{})
	require.NoError(t, err)
	assert.True(t, ok, "an empty ledger is still a ledger")

	commit(t, cursor)

	got, ok, err := cursor.TryGetBlockSpentTxes(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, spentTxes[1].TxHash, got[1].TxHash)
	assert.Len(t, got[0].Outputs, 2)

	got, ok, err = cursor.TryGetBlockSpentTxes(6)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	_, ok, err = cursor.TryGetBlockSpentTxes(7)
	require.NoError(t, err)
	assert.False(t, ok)

	begin(t, cursor)

	ok, err = cursor.TryRemoveBlockSpentTxes(5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cursor.TryRemoveBlockSpentTxes(5)
	require.NoError(t, err)
	assert.False(t, ok)

	commit(t, cursor)
}

func BlockUnmintedTxes(t *testing.T, store chainstate.Store) {
	cursor := openCursor(t, store)

	u := unspentTx(1, 2)

	prev, err := u.GetPrevTxOutput(model.TxOutputKey{TxHash: u.TxHash, TxOutputIndex: 1})
	require.NoError(t, err)

	blockHash := test.NewFakeHeaders().Genesis().Hash()

	txs := []*model.UnmintedTx{
		{TxHash: *test.SpendTx(nil, 1).TxIDChainHash(), PrevTxOutputs: []*model.PrevTxOutput{prev}},
		{TxHash: u.TxHash},
	}

	begin(t, cursor)

	ok, err := cursor.TryAddBlockUnmintedTxes(blockHash, txs)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cursor.TryAddBlockUnmintedTxes(blockHash, txs)
	require.NoError(t, err)
	assert.False(t, ok)

	commit(t, cursor)

	got, ok, err := cursor.TryGetBlockUnmintedTxes(blockHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	require.Len(t, got[0].PrevTxOutputs, 1)
	assert.Equal(t, prev.Key, got[0].PrevTxOutputs[0].Key)
	assert.Equal(t, prev.Output.Satoshis, got[0].PrevTxOutputs[0].Output.Satoshis)

	begin(t, cursor)

	ok, err = cursor.TryRemoveBlockUnmintedTxes(blockHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cursor.TryRemoveBlockUnmintedTxes(blockHash)
	require.NoError(t, err)
	assert.False(t, ok)

	commit(t, cursor)

	_, ok, err = cursor.TryGetBlockUnmintedTxes(blockHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func Counters(t *testing.T, store chainstate.Store) {
	cursor := openCursor(t, store)

	assert.Equal(t, model.UtxoCounters{}, *cursor.Counters())

	begin(t, cursor)

	counters := cursor.Counters()
	counters.UnspentTxCount = 2
	counters.UnspentOutputCount = 5
	counters.TotalTxCount = 3
	counters.TotalInputCount = 1
	counters.TotalOutputCount = 6

	assert.Equal(t, int64(5), cursor.Counters().UnspentOutputCount, "in transaction counters are the working copy")

	commit(t, cursor)

	assert.Equal(t, model.UtxoCounters{
		UnspentTxCount:     2,
		UnspentOutputCount: 5,
		TotalTxCount:       3,
		TotalInputCount:    1,
		TotalOutputCount:   6,
	}, *cursor.Counters())

	begin(t, cursor)
	cursor.Counters().UnspentTxCount = 100
	require.NoError(t, cursor.RollbackTransaction())

	assert.Equal(t, int64(2), cursor.Counters().UnspentTxCount)
}

func Rollback(t *testing.T, store chainstate.Store) {
	cursor := openCursor(t, store)

	genesis := test.NewFakeHeaders().Genesis()
	kept := unspentTx(1, 2)
	added := unspentTx(2, 1)

	begin(t, cursor)

	_, err := cursor.TryAddUnspentTx(kept)
	require.NoError(t, err)

	commit(t, cursor)

	begin(t, cursor)

	ok, err := cursor.TryAddHeader(genesis)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cursor.TryAddUnspentTx(added)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cursor.TryUpdateUnspentTx(kept.SetOutputState(0, model.OutputStateSpent))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cursor.TryRemoveUnspentTx(&kept.TxHash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cursor.TryAddBlockSpentTxes(0, model.BlockSpentTxes{kept.ToSpentTx()})
	require.NoError(t, err)
	require.True(t, ok)

	cursor.Counters().TotalTxCount = 7

	require.NoError(t, cursor.RollbackTransaction())
	assert.False(t, cursor.InTransaction())

	tip, err := cursor.ChainTip()
	require.NoError(t, err)
	assert.Nil(t, tip)

	_, ok, err = cursor.TryGetUnspentTx(&added.TxHash)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := cursor.TryGetUnspentTx(&kept.TxHash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.IsFullyUnspent())

	_, ok, err = cursor.TryGetBlockSpentTxes(0)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int64(0), cursor.Counters().TotalTxCount)
}

func OutsideTransaction(t *testing.T, store chainstate.Store) {
	cursor := openCursor(t, store)

	_, err := cursor.TryAddUnspentTx(unspentTx(1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStateError))

	_, err = cursor.TryAddHeader(test.NewFakeHeaders().Genesis())
	assert.True(t, errors.Is(err, errors.ErrStateError))

	_, err = cursor.TryAddBlockSpentTxes(1, nil)
	assert.True(t, errors.Is(err, errors.ErrStateError))

	assert.True(t, errors.Is(cursor.CommitTransaction(context.Background()), errors.ErrStateError))
	assert.True(t, errors.Is(cursor.RollbackTransaction(), errors.ErrStateError))

	begin(t, cursor)
	assert.True(t, cursor.InTransaction())
	assert.True(t, errors.Is(cursor.BeginTransaction(context.Background()), errors.ErrStateError))
	require.NoError(t, cursor.RollbackTransaction())
}

// SingleTransaction checks that a second cursor waits for the first cursor's transaction.
func SingleTransaction(t *testing.T, store chainstate.Store) {
	first := openCursor(t, store)
	second := openCursor(t, store)

	begin(t, first)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := second.BeginTransaction(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsContextError(err))
	assert.False(t, second.InTransaction())

	require.NoError(t, first.RollbackTransaction())

	begin(t, second)
	require.NoError(t, second.RollbackTransaction())
}

func CloseRollsBack(t *testing.T, store chainstate.Store) {
	cursor, err := store.OpenCursor(context.Background())
	require.NoError(t, err)

	u := unspentTx(1, 1)

	begin(t, cursor)

	_, err = cursor.TryAddUnspentTx(u)
	require.NoError(t, err)

	require.NoError(t, cursor.Close())

	other := openCursor(t, store)

	_, ok, err := other.TryGetUnspentTx(&u.TxHash)
	require.NoError(t, err)
	assert.False(t, ok)

	begin(t, other)
	require.NoError(t, other.RollbackTransaction())
}

func CommittedAcrossCursors(t *testing.T, store chainstate.Store) {
	writer := openCursor(t, store)

	u := model.NewUnspentTx(*test.SpendTx(nil, 2).TxIDChainHash(), 3, 1, 2, false, []*bt.Output{test.Output(1), test.Output(2)})

	begin(t, writer)

	_, err := writer.TryAddUnspentTx(u)
	require.NoError(t, err)

	writer.Counters().UnspentTxCount = 1

	commit(t, writer)

	reader := openCursor(t, store)

	got, ok, err := reader.TryGetUnspentTx(&u.TxHash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.IsCoinbase)
	assert.Equal(t, uint32(1), got.TxIndex)
	assert.Equal(t, int64(1), reader.Counters().UnspentTxCount)
}
