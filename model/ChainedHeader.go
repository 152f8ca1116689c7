package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/go-wire"
)

// ChainedHeader is a block header placed in a chain: it knows its height and the cumulative
// work of every block up to and including itself. ChainedHeaders are never modified after creation.
type ChainedHeader struct {
	Header    *BlockHeader
	Height    uint32
	ChainWork *big.Int

	hash *chainhash.Hash
}

func NewGenesisChainedHeader(header *BlockHeader) *ChainedHeader {
	return &ChainedHeader{
		Header:    header,
		Height:    0,
		ChainWork: header.Bits.CalculateWork(),
		hash:      header.Hash(),
	}
}

// GenesisChainedHeader builds the chained genesis header for the given network.
func GenesisChainedHeader(params *chaincfg.Params) (*ChainedHeader, error) {
	header, err := NewGenesisBlockHeader(params)
	if err != nil {
		return nil, err
	}

	return NewGenesisChainedHeader(header), nil
}

// NewChainedHeader chains header on top of parent.
func NewChainedHeader(header *BlockHeader, parent *ChainedHeader) (*ChainedHeader, error) {
	if parent == nil {
		return nil, errors.NewInvalidArgumentError("parent of %s is nil", header.Hash())
	}

	if !header.HashPrevBlock.IsEqual(parent.Hash()) {
		return nil, errors.NewInvalidArgumentError("header %s does not build on %s", header.Hash(), parent.Hash())
	}

	return &ChainedHeader{
		Header:    header,
		Height:    parent.Height + 1,
		ChainWork: new(big.Int).Add(parent.ChainWork, header.Bits.CalculateWork()),
		hash:      header.Hash(),
	}, nil
}

func (ch *ChainedHeader) Hash() *chainhash.Hash {
	if ch.hash == nil {
		ch.hash = ch.Header.Hash()
	}

	return ch.hash
}

func (ch *ChainedHeader) PreviousHash() *chainhash.Hash {
	return ch.Header.HashPrevBlock
}

func (ch *ChainedHeader) IsEqual(other *ChainedHeader) bool {
	if ch == nil || other == nil {
		return ch == other
	}

	return ch.Hash().IsEqual(other.Hash())
}

func (ch *ChainedHeader) String() string {
	return fmt.Sprintf("%s@%d", ch.Hash(), ch.Height)
}

// Bytes serializes the header as: 80 byte header, uint32 height, varint length prefixed big endian chain work.
func (ch *ChainedHeader) Bytes() []byte {
	var buf bytes.Buffer

	buf.Write(ch.Header.Bytes())
	_ = binary.Write(&buf, binary.LittleEndian, ch.Height)

	work := ch.ChainWork.Bytes()
	_ = wire.WriteVarInt(&buf, 0, uint64(len(work)))
	buf.Write(work)

	return buf.Bytes()
}

func NewChainedHeaderFromBytes(b []byte) (*ChainedHeader, error) {
	if len(b) < BlockHeaderSize+4 {
		return nil, errors.NewInvalidArgumentError("chained header should be at least %d bytes, got %d", BlockHeaderSize+4, len(b))
	}

	header, err := NewBlockHeaderFromBytes(b[:BlockHeaderSize])
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(b[BlockHeaderSize:])

	var height uint32
	if err = binary.Read(r, binary.LittleEndian, &height); err != nil {
		return nil, errors.NewProcessingError("failed to read height", err)
	}

	workLen, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewProcessingError("failed to read chain work length", err)
	}

	work := make([]byte, workLen)
	if _, err = io.ReadFull(r, work); err != nil {
		return nil, errors.NewProcessingError("failed to read chain work", err)
	}

	return &ChainedHeader{
		Header:    header,
		Height:    height,
		ChainWork: new(big.Int).SetBytes(work),
		hash:      header.Hash(),
	}, nil
}
