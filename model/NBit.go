package model

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/go-bt/v2"
)

// NBit is the compact difficulty target in its on-the-wire, little endian byte order.
type NBit [4]byte

var (
	oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)
	// target of difficulty 1 (0x1d00ffff)
	maxTarget = new(big.Int).Lsh(big.NewInt(0xffff), 208)
)

func NewNBitFromSlice(nBits []byte) (*NBit, error) {
	if len(nBits) != 4 {
		return nil, errors.NewInvalidArgumentError("nBits should be 4 bytes, got %d", len(nBits))
	}

	nb := NBit{}
	copy(nb[:], nBits)

	return &nb, nil
}

// NewNBitFromString parses the big endian hex notation used by RPC, e.g. "207fffff".
func NewNBitFromString(nBits string) (*NBit, error) {
	b, err := hex.DecodeString(nBits)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("invalid nBits %q", nBits, err)
	}

	return NewNBitFromSlice(bt.ReverseBytes(b))
}

func (b NBit) String() string {
	return hex.EncodeToString(bt.ReverseBytes(b[:]))
}

func (b NBit) CloneBytes() []byte {
	bytes := make([]byte, 4)
	copy(bytes, b[:])

	return bytes
}

func (b NBit) CalculateTarget() *big.Int {
	nb := binary.LittleEndian.Uint32(b[:])

	exponent := nb >> 24
	mantissa := int64(nb & 0x007fffff)

	if exponent <= 3 {
		return big.NewInt(mantissa >> (8 * (3 - exponent)))
	}

	target := big.NewInt(mantissa)

	return target.Lsh(target, uint(8*(exponent-3)))
}

func (b NBit) CalculateDifficulty() *big.Float {
	target := b.CalculateTarget()
	if target.Sign() <= 0 {
		return new(big.Float)
	}

	return new(big.Float).Quo(new(big.Float).SetInt(maxTarget), new(big.Float).SetInt(target))
}

// CalculateWork returns the expected number of hashes needed to meet the target, 2^256 / (target+1).
func (b NBit) CalculateWork() *big.Int {
	target := b.CalculateTarget()
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	return new(big.Int).Div(oneLsh256, new(big.Int).Add(target, big.NewInt(1)))
}
