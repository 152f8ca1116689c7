package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// TxOutputKey identifies a single transaction output.
type TxOutputKey struct {
	TxHash        chainhash.Hash
	TxOutputIndex uint32
}

func NewTxOutputKeyFromInput(input *bt.Input) TxOutputKey {
	return TxOutputKey{
		TxHash:        *input.PreviousTxIDChainHash(),
		TxOutputIndex: input.PreviousTxOutIndex,
	}
}

func (k TxOutputKey) String() string {
	return fmt.Sprintf("%s:%d", k.TxHash, k.TxOutputIndex)
}

// PrevTxOutput is an output as it was when it got spent, together with the metadata of the
// transaction that created it, so script validation does not need to go back to the UTXO set.
type PrevTxOutput struct {
	Key         TxOutputKey
	Output      *bt.Output
	BlockHeight uint32
	TxIndex     uint32
	TxVersion   uint32
	IsCoinbase  bool
}

func (p *PrevTxOutput) write(buf *bytes.Buffer) {
	buf.Write(p.Key.TxHash[:])
	_ = binary.Write(buf, binary.LittleEndian, p.Key.TxOutputIndex)
	_ = binary.Write(buf, binary.LittleEndian, p.BlockHeight)
	_ = binary.Write(buf, binary.LittleEndian, p.TxIndex)
	_ = binary.Write(buf, binary.LittleEndian, p.TxVersion)

	if p.IsCoinbase {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	buf.Write(p.Output.Bytes())
}

func readPrevTxOutput(b []byte) (*PrevTxOutput, int, error) {
	const fixedSize = 32 + 4*4 + 1

	if len(b) < fixedSize {
		return nil, 0, errors.NewProcessingError("prev tx output needs at least %d bytes, got %d", fixedSize, len(b))
	}

	r := bytes.NewReader(b[:fixedSize])
	p := &PrevTxOutput{}

	_, _ = io.ReadFull(r, p.Key.TxHash[:])

	for _, field := range []*uint32{&p.Key.TxOutputIndex, &p.BlockHeight, &p.TxIndex, &p.TxVersion} {
		_ = binary.Read(r, binary.LittleEndian, field)
	}

	coinbase, _ := r.ReadByte()
	p.IsCoinbase = coinbase == 1

	output, size, err := readOutput(b[fixedSize:])
	if err != nil {
		return nil, 0, errors.NewProcessingError("failed to read output of %s", p.Key, err)
	}

	p.Output = output

	return p, fixedSize + size, nil
}
