package leveldb

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/tests"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDB(t *testing.T) {
	tests.RunAll(t, func(t *testing.T) chainstate.Store {
		store, err := New(ulogger.TestLogger{}, t.TempDir(), "chainstate")
		require.NoError(t, err)

		return store
	})
}

func TestLevelDBMemory(t *testing.T) {
	tests.RunAll(t, func(t *testing.T) chainstate.Store {
		store, err := NewMemory(ulogger.TestLogger{})
		require.NoError(t, err)

		return store
	})
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	dataFolder := t.TempDir()

	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	headers := fake.Extend(genesis, 300)

	store, err := New(ulogger.TestLogger{}, dataFolder, "chainstate")
	require.NoError(t, err)

	cursor, err := store.OpenCursor(ctx)
	require.NoError(t, err)

	for _, h := range append([]*model.ChainedHeader{genesis}, headers...) {
		require.NoError(t, cursor.BeginTransaction(ctx))

		ok, err := cursor.TryAddHeader(h)
		require.NoError(t, err)
		require.True(t, ok)

		cursor.Counters().TotalTxCount++

		require.NoError(t, cursor.CommitTransaction(ctx))
	}

	require.NoError(t, store.Close())

	store, err = New(ulogger.TestLogger{}, dataFolder, "chainstate")
	require.NoError(t, err)

	defer func() {
		require.NoError(t, store.Close())
	}()

	cursor, err = store.OpenCursor(ctx)
	require.NoError(t, err)

	// height keys are big endian so iteration order is height order past 255
	tip, err := cursor.ChainTip()
	require.NoError(t, err)
	assert.True(t, tip.IsEqual(headers[len(headers)-1]))

	chain, err := cursor.ReadChain()
	require.NoError(t, err)
	require.Len(t, chain, 301)

	for i, ch := range chain {
		assert.Equal(t, uint32(i), ch.Height)
	}

	assert.Equal(t, int64(301), cursor.Counters().TotalTxCount)
}
