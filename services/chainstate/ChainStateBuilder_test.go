package chainstate

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/memory"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T, store *memory.Memory, genesis *model.ChainedHeader) *ChainStateBuilder {
	t.Helper()

	builder, err := NewChainStateBuilder(context.Background(), ulogger.TestLogger{}, settings.NewSettings(), store, genesis)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = builder.Close()
	})

	return builder
}

func TestChainStateBuilder(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes with genesis", func(t *testing.T) {
		fake := test.NewFakeHeaders()
		genesis := fake.Genesis()

		builder := newTestBuilder(t, memory.New(ulogger.TestLogger{}), genesis)

		assert.Equal(t, 0, builder.Chain().Height())
		assert.True(t, builder.Chain().LastBlock().IsEqual(genesis))
		assert.Equal(t, model.UtxoCounters{}, *builder.Counters())
	})

	t.Run("add and roll back", func(t *testing.T) {
		fake := test.NewFakeHeaders()
		genesis := fake.Genesis()

		builder := newTestBuilder(t, memory.New(ulogger.TestLogger{}), genesis)

		coinbase := test.CoinbaseTx(1, 0, 2)
		header1 := fake.Next(genesis)

		_, err := builder.AddBlock(ctx, header1, test.BlockTxs(coinbase))
		require.NoError(t, err)

		spend := test.SpendTx(test.Keys(coinbase), 1)
		header2 := fake.Next(header1)
		block2Txs := test.BlockTxs(test.CoinbaseTx(2, 0, 1), spend)

		validatableTxs, err := builder.AddBlock(ctx, header2, block2Txs)
		require.NoError(t, err)
		require.Len(t, validatableTxs, 2)
		assert.Equal(t, 2, builder.Chain().Height())

		err = builder.RollbackBlock(ctx, header1, test.BlockTxs(coinbase))
		require.Error(t, err, "only the tip can be rolled back")
		assert.Equal(t, 2, builder.Chain().Height())

		require.NoError(t, builder.RollbackBlock(ctx, header2, block2Txs))
		assert.True(t, builder.Chain().LastBlock().IsEqual(header1))

		unmintedTxs, ok, err := builder.UnmintedTxes(header2.Hash())
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, unmintedTxs, 2)
		assert.Equal(t, *spend.TxIDChainHash(), unmintedTxs[0].TxHash)
		require.Len(t, unmintedTxs[0].PrevTxOutputs, 2)

		assert.Equal(t, model.UtxoCounters{
			UnspentTxCount:     1,
			UnspentOutputCount: 2,
			TotalTxCount:       1,
			TotalInputCount:    1,
			TotalOutputCount:   2,
		}, *builder.Counters())

		// applying the block again drops its replay records
		_, err = builder.AddBlock(ctx, header2, block2Txs)
		require.NoError(t, err)

		_, ok, err = builder.UnmintedTxes(header2.Hash())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid block leaves state untouched", func(t *testing.T) {
		fake := test.NewFakeHeaders()
		genesis := fake.Genesis()

		builder := newTestBuilder(t, memory.New(ulogger.TestLogger{}), genesis)

		coinbase := test.CoinbaseTx(1, 0, 1)
		header1 := fake.Next(genesis)

		_, err := builder.AddBlock(ctx, header1, test.BlockTxs(coinbase))
		require.NoError(t, err)

		before := *builder.Counters()

		header2 := fake.Next(header1)
		keys := test.Keys(coinbase)

		_, err = builder.AddBlock(ctx, header2, test.BlockTxs(test.CoinbaseTx(2, 0, 1), test.SpendTx(keys, 1), test.SpendTx(keys, 2)))
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))

		assert.True(t, builder.Chain().LastBlock().IsEqual(header1))
		assert.Equal(t, before, *builder.Counters())

		// the block after the failed one can still be applied
		_, err = builder.AddBlock(ctx, header2, test.BlockTxs(test.CoinbaseTx(2, 0, 1), test.SpendTx(keys, 1)))
		require.NoError(t, err)
	})

	t.Run("block must extend the chain", func(t *testing.T) {
		fake := test.NewFakeHeaders()
		genesis := fake.Genesis()

		builder := newTestBuilder(t, memory.New(ulogger.TestLogger{}), genesis)

		orphan := fake.Next(fake.Next(genesis))

		_, err := builder.AddBlock(ctx, orphan, test.BlockTxs(test.CoinbaseTx(2, 0, 1)))
		require.Error(t, err)
		assert.Equal(t, 0, builder.Chain().Height())
	})

	t.Run("genesis cannot be rolled back", func(t *testing.T) {
		fake := test.NewFakeHeaders()
		genesis := fake.Genesis()

		builder := newTestBuilder(t, memory.New(ulogger.TestLogger{}), genesis)

		err := builder.RollbackBlock(ctx, genesis, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidOperation)
	})

	t.Run("reload", func(t *testing.T) {
		fake := test.NewFakeHeaders()
		genesis := fake.Genesis()
		store := memory.New(ulogger.TestLogger{})

		builder := newTestBuilder(t, store, genesis)

		headers := fake.Extend(genesis, 3)
		for i, header := range headers {
			_, err := builder.AddBlock(ctx, header, test.BlockTxs(test.CoinbaseTx(uint32(i+1), 0, 1))) //nolint:gosec // small
			require.NoError(t, err)
		}

		reloaded := newTestBuilder(t, store, genesis)
		assert.Equal(t, 3, reloaded.Chain().Height())
		assert.True(t, reloaded.Chain().LastBlock().IsEqual(headers[2]))
		assert.Equal(t, *builder.Counters(), *reloaded.Counters())

		_, err := NewChainStateBuilder(ctx, ulogger.TestLogger{}, settings.NewSettings(), store, fake.Genesis())
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	})
}
