package main

import (
	"testing"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockGenerator(t *testing.T) {
	gen := newBlockGenerator(7, 4)
	parent := gen.fake.Genesis()

	var pool []model.TxOutputKey

	for i := 0; i < 10; i++ {
		block, header, next := gen.next(parent, pool)

		require.True(t, block.Header.HashPrevBlock.IsEqual(parent.Hash()))
		require.True(t, block.Transactions[0].IsCoinbase())

		spent := make(map[model.TxOutputKey]struct{})
		created := 0

		for _, tx := range block.Transactions[1:] {
			for _, in := range tx.Inputs {
				key := model.TxOutputKey{TxHash: *in.PreviousTxIDChainHash(), TxOutputIndex: in.PreviousTxOutIndex}
				assert.Contains(t, pool, key)

				_, dup := spent[key]
				assert.False(t, dup, "%v spent twice", key)
				spent[key] = struct{}{}
			}

			created += len(tx.Outputs)
		}

		assert.Len(t, next, len(pool)-len(spent)+1+created)

		for _, key := range next {
			_, ok := spent[key]
			assert.False(t, ok)
		}

		parent, pool = header, next
	}
}
