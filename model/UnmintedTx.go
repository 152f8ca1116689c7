package model

import (
	"bytes"
	"io"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-wire"
)

// UnmintedTx is the replay record of a rolled back transaction: the outputs its inputs had spent,
// in input order.
type UnmintedTx struct {
	TxHash        chainhash.Hash
	PrevTxOutputs []*PrevTxOutput
}

func (u *UnmintedTx) Bytes() []byte {
	var buf bytes.Buffer

	buf.Write(u.TxHash[:])
	_ = wire.WriteVarInt(&buf, 0, uint64(len(u.PrevTxOutputs)))

	for _, prevTxOutput := range u.PrevTxOutputs {
		prevTxOutput.write(&buf)
	}

	return buf.Bytes()
}

func NewUnmintedTxFromBytes(b []byte) (*UnmintedTx, error) {
	if len(b) < 32 {
		return nil, errors.NewProcessingError("unminted tx needs at least 32 bytes, got %d", len(b))
	}

	u := &UnmintedTx{}
	copy(u.TxHash[:], b[:32])

	r := bytes.NewReader(b[32:])

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read prev tx output count of %s", u.TxHash, err)
	}

	offset := len(b) - r.Len()

	for i := uint64(0); i < count; i++ {
		prevTxOutput, size, err := readPrevTxOutput(b[offset:])
		if err != nil {
			return nil, err
		}

		u.PrevTxOutputs = append(u.PrevTxOutputs, prevTxOutput)
		offset += size
	}

	return u, nil
}

func UnmintedTxesBytes(txs []*UnmintedTx) []byte {
	var buf bytes.Buffer

	_ = wire.WriteVarInt(&buf, 0, uint64(len(txs)))

	for _, tx := range txs {
		b := tx.Bytes()
		_ = wire.WriteVarInt(&buf, 0, uint64(len(b)))
		buf.Write(b)
	}

	return buf.Bytes()
}

func NewUnmintedTxesFromBytes(b []byte) ([]*UnmintedTx, error) {
	r := bytes.NewReader(b)

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read unminted tx count", err)
	}

	if count > uint64(len(b)) {
		return nil, errors.NewProcessingError("unminted tx count %d exceeds data length", count)
	}

	txs := make([]*UnmintedTx, 0, count)

	for i := uint64(0); i < count; i++ {
		entry, err := readLengthPrefixed(r)
		if err != nil {
			return nil, errors.NewProcessingError("failed to read unminted tx %d", i, err)
		}

		tx, err := NewUnmintedTxFromBytes(entry)
		if err != nil {
			return nil, err
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

func readLengthPrefixed(r *bytes.Reader) ([]byte, error) {
	size, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}

	if size > uint64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}

	b := make([]byte, size)
	if _, err = io.ReadFull(r, b); err != nil {
		return nil, err
	}

	return b, nil
}
