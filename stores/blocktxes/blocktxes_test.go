package blocktxes

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	source := NewMemory()

	header := test.NewFakeHeaders().Genesis().Header
	block := &model.Block{
		Header:       header,
		Transactions: []*bt.Tx{test.CoinbaseTx(0, 0, 1), test.SpendTx(nil, 2)},
	}

	_, err := source.GetBlockTxes(ctx, header.Hash())
	assert.True(t, errors.IsMissingDataError(err))

	source.AddBlock(block)

	blockTxs, err := source.GetBlockTxes(ctx, header.Hash())
	require.NoError(t, err)
	require.Len(t, blockTxs, 2)
	assert.Equal(t, uint32(1), blockTxs[1].Index)

	source.Remove(*header.Hash())

	_, err = source.GetBlockTxes(ctx, header.Hash())
	assert.True(t, errors.IsMissingDataError(err))

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = source.GetBlockTxes(canceled, header.Hash())
	assert.True(t, errors.IsContextError(err))
}
