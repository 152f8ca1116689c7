package model

import (
	"bytes"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-wire"
)

// Block is a header with its full list of transactions, coinbase first.
type Block struct {
	Header       *BlockHeader
	Transactions []*bt.Tx
}

// BlockTx is a transaction together with its position in the block.
type BlockTx struct {
	Index uint32
	Tx    *bt.Tx
}

func NewBlockFromBytes(blockBytes []byte) (*Block, error) {
	if len(blockBytes) < BlockHeaderSize {
		return nil, errors.NewInvalidArgumentError("block should be at least %d bytes long", BlockHeaderSize)
	}

	header, err := NewBlockHeaderFromBytes(blockBytes[:BlockHeaderSize])
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(blockBytes[BlockHeaderSize:])

	txCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read transaction count", err)
	}

	offset := len(blockBytes) - r.Len()

	block := &Block{
		Header:       header,
		Transactions: make([]*bt.Tx, 0, min(txCount, uint64(r.Len()))),
	}

	for i := uint64(0); i < txCount; i++ {
		tx, size, err := bt.NewTxFromStream(blockBytes[offset:])
		if err != nil {
			return nil, errors.NewProcessingError("failed to read transaction %d of block %s", i, header.Hash(), err)
		}

		block.Transactions = append(block.Transactions, tx)
		offset += size
	}

	return block, nil
}

func (b *Block) Hash() string {
	return b.Header.Hash().String()
}

func (b *Block) Bytes() []byte {
	var buf bytes.Buffer

	buf.Write(b.Header.Bytes())
	_ = wire.WriteVarInt(&buf, 0, uint64(len(b.Transactions)))

	for _, tx := range b.Transactions {
		buf.Write(tx.Bytes())
	}

	return buf.Bytes()
}

func (b *Block) BlockTxs() []*BlockTx {
	blockTxs := make([]*BlockTx, len(b.Transactions))

	for i, tx := range b.Transactions {
		blockTxs[i] = &BlockTx{
			Index: uint32(i), //nolint:gosec // bounded by the block size
			Tx:    tx,
		}
	}

	return blockTxs
}
