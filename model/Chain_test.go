package model_test

import (
	"testing"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainBuilder(t *testing.T) {
	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	headers := fake.Extend(genesis, 3)

	t.Run("add and remove", func(t *testing.T) {
		builder := model.NewChainForGenesis(genesis).ToBuilder()

		for _, h := range headers {
			require.NoError(t, builder.AddBlock(h))
		}

		chain := builder.ToImmutable()
		assert.Equal(t, 3, chain.Height())
		assert.True(t, chain.LastBlock().IsEqual(headers[2]))
		assert.True(t, chain.Genesis().IsEqual(genesis))
		assert.Equal(t, 0, headers[2].ChainWork.Cmp(chain.TotalWork()))
		assert.True(t, chain.Contains(headers[1]))

		require.NoError(t, builder.RemoveBlock(headers[2]))
		assert.Equal(t, 2, builder.Height())

		// the published chain is unaffected
		assert.Equal(t, 3, chain.Height())
	})

	t.Run("add must extend the tip", func(t *testing.T) {
		builder := model.NewChainForGenesis(genesis).ToBuilder()

		err := builder.AddBlock(headers[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidOperation))
		assert.Equal(t, 0, builder.Height())
	})

	t.Run("empty builder only accepts genesis", func(t *testing.T) {
		builder := model.NewChainBuilder()

		require.Error(t, builder.AddBlock(headers[0]))
		require.NoError(t, builder.AddBlock(genesis))
		assert.Equal(t, 1, builder.Count())
	})

	t.Run("remove must be the tip", func(t *testing.T) {
		builder := model.NewChainForGenesis(genesis).ToBuilder()
		require.NoError(t, builder.AddBlock(headers[0]))

		err := builder.RemoveBlock(genesis)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidOperation))

		require.Error(t, model.NewChainBuilder().RemoveBlock(genesis))
	})

	t.Run("published chains never observe later mutations", func(t *testing.T) {
		builder := model.NewChainForGenesis(genesis).ToBuilder()
		require.NoError(t, builder.AddBlock(headers[0]))
		require.NoError(t, builder.AddBlock(headers[1]))

		published := builder.ToImmutable()

		fork := fake.Next(headers[0])

		require.NoError(t, builder.RemoveBlock(headers[1]))
		require.NoError(t, builder.AddBlock(fork))

		b, ok := published.BlockAtHeight(2)
		require.True(t, ok)
		assert.True(t, b.IsEqual(headers[1]))
		assert.False(t, published.Contains(fork))

		forked := builder.ToImmutable()
		assert.True(t, forked.Contains(fork))
		assert.False(t, forked.Contains(headers[1]))
	})

	t.Run("two builders from the same chain", func(t *testing.T) {
		base := model.NewChainForGenesis(genesis)

		b1 := base.ToBuilder()
		b2 := base.ToBuilder()

		other := fake.Next(genesis)

		require.NoError(t, b1.AddBlock(headers[0]))
		require.NoError(t, b2.AddBlock(other))

		assert.True(t, b1.ToImmutable().Contains(headers[0]))
		assert.True(t, b2.ToImmutable().Contains(other))
		assert.Equal(t, 0, base.Height())
	})
}

func TestChain(t *testing.T) {
	var nilChain *model.Chain

	assert.Nil(t, nilChain.LastBlock())
	assert.Equal(t, -1, nilChain.Height())
	assert.Equal(t, int64(0), nilChain.TotalWork().Int64())

	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	chain := model.NewChainForGenesis(genesis)

	_, ok := chain.BlockAtHeight(1)
	assert.False(t, ok)

	blocks := chain.Blocks()
	blocks[0] = nil
	assert.NotNil(t, chain.Genesis())
}

func TestChainedHeader(t *testing.T) {
	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	next := fake.Next(genesis)

	assert.Equal(t, uint32(1), next.Height)
	assert.Equal(t, int64(4), next.ChainWork.Int64())

	t.Run("must build on parent", func(t *testing.T) {
		other := fake.Next(next)
		_, err := model.NewChainedHeader(other.Header, genesis)
		require.Error(t, err)
	})

	t.Run("bytes", func(t *testing.T) {
		decoded, err := model.NewChainedHeaderFromBytes(next.Bytes())
		require.NoError(t, err)

		assert.True(t, decoded.IsEqual(next))
		assert.Equal(t, next.Height, decoded.Height)
		assert.Equal(t, 0, next.ChainWork.Cmp(decoded.ChainWork))
	})
}
