package model

import (
	"encoding/binary"

	"github.com/bsv-blockchain/chainstate/errors"
)

// UtxoCounters are the running totals of a chain state. They always describe the literal contents
// of the UTXO set.
type UtxoCounters struct {
	UnspentTxCount     int64 `json:"unspentTxCount"`
	UnspentOutputCount int64 `json:"unspentOutputCount"`
	TotalTxCount       int64 `json:"totalTxCount"`
	TotalInputCount    int64 `json:"totalInputCount"`
	TotalOutputCount   int64 `json:"totalOutputCount"`
}

const utxoCountersSize = 5 * 8

func (c *UtxoCounters) fields() []*int64 {
	return []*int64{&c.UnspentTxCount, &c.UnspentOutputCount, &c.TotalTxCount, &c.TotalInputCount, &c.TotalOutputCount}
}

func (c *UtxoCounters) Clone() *UtxoCounters {
	clone := *c
	return &clone
}

// Validate returns a corruption error when a counter went negative.
func (c *UtxoCounters) Validate() error {
	for _, f := range c.fields() {
		if *f < 0 {
			return errors.NewCorruptionError("negative utxo counter in %+v", *c)
		}
	}

	return nil
}

func (c *UtxoCounters) Bytes() []byte {
	b := make([]byte, utxoCountersSize)

	for i, f := range c.fields() {
		binary.LittleEndian.PutUint64(b[i*8:], uint64(*f)) //nolint:gosec // two's complement round trip
	}

	return b
}

func NewUtxoCountersFromBytes(b []byte) (*UtxoCounters, error) {
	if len(b) != utxoCountersSize {
		return nil, errors.NewProcessingError("utxo counters should be %d bytes, got %d", utxoCountersSize, len(b))
	}

	c := &UtxoCounters{}

	for i, f := range c.fields() {
		*f = int64(binary.LittleEndian.Uint64(b[i*8:])) //nolint:gosec // two's complement round trip
	}

	return c, nil
}
