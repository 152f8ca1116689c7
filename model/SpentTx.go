package model

import (
	"bytes"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-wire"
)

// SpentTx is a transaction that became fully spent. It is kept in the spent tx ledger of the block
// that spent its last output, for pruning, and so that rolling that block back can restore the entry.
type SpentTx struct {
	TxHash      chainhash.Hash
	BlockHeight uint32
	TxIndex     uint32
	TxVersion   uint32
	IsCoinbase  bool
	Outputs     []*bt.Output
}

func (s *SpentTx) OutputCount() int {
	return len(s.Outputs)
}

// ToUnspentTx rebuilds the UTXO entry with every output marked spent.
func (s *SpentTx) ToUnspentTx() *UnspentTx {
	return &UnspentTx{
		TxHash:       s.TxHash,
		BlockHeight:  s.BlockHeight,
		TxIndex:      s.TxIndex,
		TxVersion:    s.TxVersion,
		IsCoinbase:   s.IsCoinbase,
		OutputStates: NewOutputStates(len(s.Outputs), OutputStateSpent),
		Outputs:      s.Outputs,
	}
}

// BlockSpentTxes lists the transactions fully spent by one block, in the order they became fully spent.
type BlockSpentTxes []*SpentTx

func (b BlockSpentTxes) Find(txHash *chainhash.Hash) (*SpentTx, bool) {
	for _, spentTx := range b {
		if spentTx.TxHash.IsEqual(txHash) {
			return spentTx, true
		}
	}

	return nil, false
}

func (b BlockSpentTxes) Bytes() []byte {
	var buf bytes.Buffer

	_ = wire.WriteVarInt(&buf, 0, uint64(len(b)))

	for _, spentTx := range b {
		entry := spentTx.ToUnspentTx().Bytes()
		_ = wire.WriteVarInt(&buf, 0, uint64(len(entry)))
		buf.Write(entry)
	}

	return buf.Bytes()
}

func NewBlockSpentTxesFromBytes(b []byte) (BlockSpentTxes, error) {
	r := bytes.NewReader(b)

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read spent tx count", err)
	}

	if count > uint64(len(b)) {
		return nil, errors.NewProcessingError("spent tx count %d exceeds data length", count)
	}

	spentTxes := make(BlockSpentTxes, 0, count)

	for i := uint64(0); i < count; i++ {
		entry, err := readLengthPrefixed(r)
		if err != nil {
			return nil, errors.NewProcessingError("failed to read spent tx %d", i, err)
		}

		unspentTx, err := NewUnspentTxFromBytes(entry)
		if err != nil {
			return nil, err
		}

		spentTxes = append(spentTxes, unspentTx.ToSpentTx())
	}

	return spentTxes, nil
}

// BlockSpentTxesBuilder collects the spent tx ledger of a block while it is being applied.
type BlockSpentTxesBuilder struct {
	spentTxes BlockSpentTxes
}

func NewBlockSpentTxesBuilder() *BlockSpentTxesBuilder {
	return &BlockSpentTxesBuilder{}
}

func (b *BlockSpentTxesBuilder) AddSpentTx(spentTx *SpentTx) {
	b.spentTxes = append(b.spentTxes, spentTx)
}

func (b *BlockSpentTxesBuilder) Len() int {
	return len(b.spentTxes)
}

func (b *BlockSpentTxesBuilder) ToImmutable() BlockSpentTxes {
	spentTxes := make(BlockSpentTxes, len(b.spentTxes))
	copy(spentTxes, b.spentTxes)

	return spentTxes
}
