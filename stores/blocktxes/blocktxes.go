// Package blocktxes supplies the transactions of a block to the chain state worker.
package blocktxes

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
)

type Source interface {
	// GetBlockTxes returns the transactions of block hash in block order. Blocks that have not been
	// fetched yet return an ERR_MISSING_DATA error.
	GetBlockTxes(ctx context.Context, hash *chainhash.Hash) ([]*model.BlockTx, error)
}

// Memory is a Source over blocks held in memory.
type Memory struct {
	mu     sync.RWMutex
	blocks *swiss.Map[chainhash.Hash, []*model.BlockTx]
}

func NewMemory() *Memory {
	return &Memory{
		blocks: swiss.NewMap[chainhash.Hash, []*model.BlockTx](64),
	}
}

func (m *Memory) AddBlock(block *model.Block) {
	m.Add(*block.Header.Hash(), block.BlockTxs())
}

func (m *Memory) Add(hash chainhash.Hash, blockTxs []*model.BlockTx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks.Put(hash, blockTxs)
}

func (m *Memory) Remove(hash chainhash.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks.Delete(hash)
}

func (m *Memory) GetBlockTxes(ctx context.Context, hash *chainhash.Hash) ([]*model.BlockTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewContextCanceledError("get block txes %s", hash, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	blockTxs, ok := m.blocks.Get(*hash)
	if !ok {
		return nil, errors.NewMissingDataError("transactions of block %s are not available", hash)
	}

	return blockTxs, nil
}
