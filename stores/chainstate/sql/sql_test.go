package sql

import (
	"context"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/tests"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteMemory(t *testing.T) {
	tests.RunAll(t, func(t *testing.T) chainstate.Store {
		storeURL, err := url.Parse("sqlitememory:///chainstate")
		require.NoError(t, err)

		store, err := New(context.Background(), ulogger.TestLogger{}, storeURL, "")
		require.NoError(t, err)

		return store
	})
}

func TestSQLitePersistence(t *testing.T) {
	ctx := context.Background()
	dataFolder := t.TempDir()

	storeURL, err := url.Parse("sqlite:///chainstate")
	require.NoError(t, err)

	store, err := New(ctx, ulogger.TestLogger{}, storeURL, dataFolder)
	require.NoError(t, err)

	genesis := test.NewFakeHeaders().Genesis()
	coinbase := test.CoinbaseTx(0, 0, 2)
	u := model.NewUnspentTx(*coinbase.TxIDChainHash(), 0, 0, coinbase.Version, true, coinbase.Outputs)

	cursor, err := store.OpenCursor(ctx)
	require.NoError(t, err)
	require.NoError(t, cursor.BeginTransaction(ctx))

	ok, err := cursor.TryAddHeader(genesis)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cursor.TryAddUnspentTx(u)
	require.NoError(t, err)
	require.True(t, ok)

	cursor.Counters().UnspentTxCount = 1
	cursor.Counters().UnspentOutputCount = 2

	require.NoError(t, cursor.CommitTransaction(ctx))
	require.NoError(t, cursor.Close())
	require.NoError(t, store.Close())

	store, err = New(ctx, ulogger.TestLogger{}, storeURL, dataFolder)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, store.Close())
	}()

	cursor, err = store.OpenCursor(ctx)
	require.NoError(t, err)

	tip, err := cursor.ChainTip()
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.True(t, tip.IsEqual(genesis))
	assert.Equal(t, 0, tip.ChainWork.Cmp(genesis.ChainWork))

	got, ok, err := cursor.TryGetUnspentTx(&u.TxHash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.OutputStates, got.OutputStates)

	assert.Equal(t, int64(1), cursor.Counters().UnspentTxCount)
	assert.Equal(t, int64(2), cursor.Counters().UnspentOutputCount)

	code, _, err := store.Health(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 200, code)
}
