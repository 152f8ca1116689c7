package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-wire"
)

type OutputState byte

const (
	OutputStateUnspent OutputState = iota
	OutputStateSpent
)

func (s OutputState) String() string {
	switch s {
	case OutputStateUnspent:
		return "unspent"
	case OutputStateSpent:
		return "spent"
	default:
		return fmt.Sprintf("OutputState(%d)", byte(s))
	}
}

type OutputStates []OutputState

func NewOutputStates(n int, state OutputState) OutputStates {
	states := make(OutputStates, n)
	for i := range states {
		states[i] = state
	}

	return states
}

func (s OutputStates) All(state OutputState) bool {
	for _, st := range s {
		if st != state {
			return false
		}
	}

	return true
}

func (s OutputStates) Count(state OutputState) int {
	n := 0

	for _, st := range s {
		if st == state {
			n++
		}
	}

	return n
}

// UnspentTx is the UTXO set entry of one transaction. It stays in the set while at least one of its
// outputs is unspent. UnspentTx values are treated as immutable; SetOutputState returns a copy.
type UnspentTx struct {
	TxHash       chainhash.Hash
	BlockHeight  uint32
	TxIndex      uint32
	TxVersion    uint32
	IsCoinbase   bool
	OutputStates OutputStates
	Outputs      []*bt.Output
}

// NewUnspentTx creates the entry for a freshly minted transaction, all outputs unspent.
func NewUnspentTx(txHash chainhash.Hash, blockHeight, txIndex, txVersion uint32, isCoinbase bool, outputs []*bt.Output) *UnspentTx {
	return &UnspentTx{
		TxHash:       txHash,
		BlockHeight:  blockHeight,
		TxIndex:      txIndex,
		TxVersion:    txVersion,
		IsCoinbase:   isCoinbase,
		OutputStates: NewOutputStates(len(outputs), OutputStateUnspent),
		Outputs:      outputs,
	}
}

func (u *UnspentTx) OutputCount() int {
	return len(u.OutputStates)
}

func (u *UnspentTx) IsFullySpent() bool {
	return u.OutputStates.All(OutputStateSpent)
}

func (u *UnspentTx) IsFullyUnspent() bool {
	return u.OutputStates.All(OutputStateUnspent)
}

func (u *UnspentTx) SetOutputState(index int, state OutputState) *UnspentTx {
	clone := *u
	clone.OutputStates = make(OutputStates, len(u.OutputStates))
	copy(clone.OutputStates, u.OutputStates)
	clone.OutputStates[index] = state

	return &clone
}

func (u *UnspentTx) GetPrevTxOutput(key TxOutputKey) (*PrevTxOutput, error) {
	if !key.TxHash.IsEqual(&u.TxHash) {
		return nil, errors.NewInvalidArgumentError("output %s does not belong to tx %s", key, u.TxHash)
	}

	if int64(key.TxOutputIndex) >= int64(len(u.Outputs)) {
		return nil, errors.NewTxOutputOutOfRangeError("output %s out of range, tx has %d outputs", key, len(u.Outputs))
	}

	return &PrevTxOutput{
		Key:         key,
		Output:      u.Outputs[key.TxOutputIndex],
		BlockHeight: u.BlockHeight,
		TxIndex:     u.TxIndex,
		TxVersion:   u.TxVersion,
		IsCoinbase:  u.IsCoinbase,
	}, nil
}

func (u *UnspentTx) ToSpentTx() *SpentTx {
	return &SpentTx{
		TxHash:      u.TxHash,
		BlockHeight: u.BlockHeight,
		TxIndex:     u.TxIndex,
		TxVersion:   u.TxVersion,
		IsCoinbase:  u.IsCoinbase,
		Outputs:     u.Outputs,
	}
}

func (u *UnspentTx) String() string {
	return fmt.Sprintf("%s@%d:%d %v", u.TxHash, u.BlockHeight, u.TxIndex, u.OutputStates)
}

func (u *UnspentTx) Bytes() []byte {
	var buf bytes.Buffer

	buf.Write(u.TxHash[:])
	_ = binary.Write(&buf, binary.LittleEndian, u.BlockHeight)
	_ = binary.Write(&buf, binary.LittleEndian, u.TxIndex)
	_ = binary.Write(&buf, binary.LittleEndian, u.TxVersion)

	if u.IsCoinbase {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	_ = wire.WriteVarInt(&buf, 0, uint64(len(u.OutputStates)))

	for _, state := range u.OutputStates {
		buf.WriteByte(byte(state))
	}

	for _, output := range u.Outputs {
		buf.Write(output.Bytes())
	}

	return buf.Bytes()
}

func NewUnspentTxFromBytes(b []byte) (*UnspentTx, error) {
	r := bytes.NewReader(b)

	u := &UnspentTx{}

	if _, err := io.ReadFull(r, u.TxHash[:]); err != nil {
		return nil, errors.NewProcessingError("failed to read tx hash", err)
	}

	for _, field := range []*uint32{&u.BlockHeight, &u.TxIndex, &u.TxVersion} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return nil, errors.NewProcessingError("failed to read unspent tx %s", u.TxHash, err)
		}
	}

	coinbase, err := r.ReadByte()
	if err != nil {
		return nil, errors.NewProcessingError("failed to read coinbase flag", err)
	}

	u.IsCoinbase = coinbase == 1

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read output count", err)
	}

	if count > uint64(r.Len()) {
		return nil, errors.NewProcessingError("output count %d exceeds remaining %d bytes", count, r.Len())
	}

	u.OutputStates = make(OutputStates, count)

	for i := range u.OutputStates {
		state, err := r.ReadByte()
		if err != nil {
			return nil, errors.NewProcessingError("failed to read output state %d", i, err)
		}

		u.OutputStates[i] = OutputState(state)
	}

	u.Outputs, err = readOutputs(b[len(b)-r.Len():], int(count))
	if err != nil {
		return nil, err
	}

	return u, nil
}

func readOutputs(b []byte, count int) ([]*bt.Output, error) {
	outputs := make([]*bt.Output, 0, count)

	offset := 0

	for i := 0; i < count; i++ {
		output, size, err := readOutput(b[offset:])
		if err != nil {
			return nil, errors.NewProcessingError("failed to read output %d", i, err)
		}

		outputs = append(outputs, output)
		offset += size
	}

	if offset != len(b) {
		return nil, errors.NewProcessingError("%d trailing bytes after outputs", len(b)-offset)
	}

	return outputs, nil
}

// readOutput decodes one output from the front of b and returns the bytes it used.
func readOutput(b []byte) (*bt.Output, int, error) {
	output := &bt.Output{}

	n, err := output.ReadFrom(bytes.NewReader(b))
	if err != nil {
		return nil, 0, err
	}

	return output, int(n), nil
}
