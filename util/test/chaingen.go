// Package test provides deterministic header, block and transaction fixtures for tests.
package test

import (
	"encoding/binary"
	"sync"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// RegtestBits has a work of 2 per block.
const RegtestBits = "207fffff"

// FakeHeaders creates chained headers that are unique across calls on the same instance.
type FakeHeaders struct {
	mu      sync.Mutex
	counter uint32
	bits    model.NBit
}

func NewFakeHeaders() *FakeHeaders {
	bits, _ := model.NewNBitFromString(RegtestBits)

	return &FakeHeaders{bits: *bits}
}

func (f *FakeHeaders) next() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counter++

	return f.counter
}

func (f *FakeHeaders) header(prev *chainhash.Hash, bits model.NBit) *model.BlockHeader {
	n := f.next()

	var merkle chainhash.Hash
	binary.LittleEndian.PutUint32(merkle[:], n)

	return &model.BlockHeader{
		Version:        1,
		HashPrevBlock:  prev,
		HashMerkleRoot: &merkle,
		Timestamp:      1_600_000_000 + n,
		Bits:           bits,
		Nonce:          n,
	}
}

func (f *FakeHeaders) Genesis() *model.ChainedHeader {
	return model.NewGenesisChainedHeader(f.header(&chainhash.Hash{}, f.bits))
}

// Next returns a new header on top of parent.
func (f *FakeHeaders) Next(parent *model.ChainedHeader) *model.ChainedHeader {
	return f.NextWithBits(parent, f.bits)
}

// NextWithBits returns a new header on top of parent with the given difficulty.
func (f *FakeHeaders) NextWithBits(parent *model.ChainedHeader, bits model.NBit) *model.ChainedHeader {
	ch, err := model.NewChainedHeader(f.header(parent.Hash(), bits), parent)
	if err != nil {
		panic(err)
	}

	return ch
}

// Extend returns n new headers, each on top of the previous one, starting on top of parent.
func (f *FakeHeaders) Extend(parent *model.ChainedHeader, n int) []*model.ChainedHeader {
	headers := make([]*model.ChainedHeader, 0, n)

	for i := 0; i < n; i++ {
		parent = f.Next(parent)
		headers = append(headers, parent)
	}

	return headers
}

// MustNBit parses bits or panics.
func MustNBit(bits string) model.NBit {
	nb, err := model.NewNBitFromString(bits)
	if err != nil {
		panic(err)
	}

	return *nb
}

// Lookup is a model.HeaderLookup over an in memory set of headers.
type Lookup struct {
	mu      sync.RWMutex
	headers map[chainhash.Hash]*model.ChainedHeader
}

func NewLookup(headers ...*model.ChainedHeader) *Lookup {
	l := &Lookup{headers: make(map[chainhash.Hash]*model.ChainedHeader)}
	l.Add(headers...)

	return l
}

func (l *Lookup) Add(headers ...*model.ChainedHeader) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range headers {
		l.headers[*h.Hash()] = h
	}
}

func (l *Lookup) Remove(hash *chainhash.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.headers, *hash)
}

func (l *Lookup) Get(hash *chainhash.Hash) (*model.ChainedHeader, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.headers[*hash]
	if !ok {
		return nil, nil
	}

	return h, nil
}

// CoinbaseTx returns a coinbase transaction with the given number of outputs. extraNonce keeps
// coinbase hashes unique between blocks at the same height.
func CoinbaseTx(height uint32, extraNonce uint32, outputs int) *bt.Tx {
	tx := bt.NewTx()
	tx.Version = 1

	script := make([]byte, 8)
	binary.LittleEndian.PutUint32(script[:4], height)
	binary.LittleEndian.PutUint32(script[4:], extraNonce)

	input := &bt.Input{
		PreviousTxOutIndex: 0xffffffff,
		SequenceNumber:     0xffffffff,
		UnlockingScript:    bscript.NewFromBytes(script),
	}
	_ = input.PreviousTxIDAdd(&chainhash.Hash{})

	tx.Inputs = append(tx.Inputs, input)

	for i := 0; i < outputs; i++ {
		tx.Outputs = append(tx.Outputs, Output(50_0000_0000))
	}

	return tx
}

// SpendTx returns a transaction spending the given outputs into n new outputs.
func SpendTx(spends []model.TxOutputKey, outputs int) *bt.Tx {
	tx := bt.NewTx()
	tx.Version = 1

	for _, key := range spends {
		hash := key.TxHash
		input := &bt.Input{
			PreviousTxOutIndex: key.TxOutputIndex,
			SequenceNumber:     0xffffffff,
			UnlockingScript:    bscript.NewFromBytes([]byte{0x51}),
		}
		_ = input.PreviousTxIDAdd(&hash)

		tx.Inputs = append(tx.Inputs, input)
	}

	for i := 0; i < outputs; i++ {
		tx.Outputs = append(tx.Outputs, Output(uint64(1000+i)))
	}

	return tx
}

// Output returns an OP_TRUE output.
func Output(satoshis uint64) *bt.Output {
	return &bt.Output{
		Satoshis:      satoshis,
		LockingScript: bscript.NewFromBytes([]byte{0x51}),
	}
}

// Keys returns the output keys of every output of tx.
func Keys(tx *bt.Tx) []model.TxOutputKey {
	keys := make([]model.TxOutputKey, len(tx.Outputs))
	for i := range tx.Outputs {
		keys[i] = model.TxOutputKey{TxHash: *tx.TxIDChainHash(), TxOutputIndex: uint32(i)} //nolint:gosec // test fixture
	}

	return keys
}

// BlockTxs numbers txs in block order.
func BlockTxs(txs ...*bt.Tx) []*model.BlockTx {
	return (&model.Block{Transactions: txs}).BlockTxs()
}
