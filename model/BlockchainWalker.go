package model

import (
	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// HeaderLookup resolves a block hash to its chained header. Implementations return an error
// (or a nil header) when the header is not known locally.
type HeaderLookup func(hash *chainhash.Hash) (*ChainedHeader, error)

// BlockchainPath describes how to move a chain from FromBlock to ToBlock: rewind RewindBlocks in
// order (tip first), then advance AdvanceBlocks in order (lowest first).
type BlockchainPath struct {
	FromBlock       *ChainedHeader
	ToBlock         *ChainedHeader
	LastCommonBlock *ChainedHeader
	RewindBlocks    []*ChainedHeader
	AdvanceBlocks   []*ChainedHeader
}

// GetBlockchainPath finds the last common ancestor of from and to by walking both back through lookup.
// When an ancestor cannot be resolved an ERR_MISSING_DATA error is returned; the caller should retry
// once the header arrives.
func GetBlockchainPath(from, to *ChainedHeader, lookup HeaderLookup) (*BlockchainPath, error) {
	if from == nil || to == nil {
		return nil, errors.NewInvalidArgumentError("from and to headers are required")
	}

	var (
		rewind  []*ChainedHeader
		advance []*ChainedHeader
		err     error
	)

	fromCurrent := from
	toCurrent := to

	for fromCurrent.Height > toCurrent.Height {
		rewind = append(rewind, fromCurrent)

		if fromCurrent, err = parentOf(fromCurrent, lookup); err != nil {
			return nil, err
		}
	}

	for toCurrent.Height > fromCurrent.Height {
		advance = append(advance, toCurrent)

		if toCurrent, err = parentOf(toCurrent, lookup); err != nil {
			return nil, err
		}
	}

	for !fromCurrent.IsEqual(toCurrent) {
		if fromCurrent.Height == 0 {
			return nil, errors.NewInvalidArgumentError("%s and %s do not share a genesis block", from, to)
		}

		rewind = append(rewind, fromCurrent)
		advance = append(advance, toCurrent)

		if fromCurrent, err = parentOf(fromCurrent, lookup); err != nil {
			return nil, err
		}

		if toCurrent, err = parentOf(toCurrent, lookup); err != nil {
			return nil, err
		}
	}

	// advance was collected tip first
	for i, j := 0, len(advance)-1; i < j; i, j = i+1, j-1 {
		advance[i], advance[j] = advance[j], advance[i]
	}

	return &BlockchainPath{
		FromBlock:       from,
		ToBlock:         to,
		LastCommonBlock: fromCurrent,
		RewindBlocks:    rewind,
		AdvanceBlocks:   advance,
	}, nil
}

func parentOf(ch *ChainedHeader, lookup HeaderLookup) (*ChainedHeader, error) {
	if ch.Height == 0 {
		return nil, errors.NewInvalidArgumentError("genesis block %s has no parent", ch.Hash())
	}

	parent, err := lookup(ch.PreviousHash())
	if err != nil {
		return nil, errors.NewMissingDataError("parent %s of block %s is not available", ch.PreviousHash(), ch, err)
	}

	if parent == nil {
		return nil, errors.NewMissingDataError("parent %s of block %s is not available", ch.PreviousHash(), ch)
	}

	if parent.Height+1 != ch.Height {
		return nil, errors.NewCorruptionError("parent %s of block %s has height %d", parent, ch, parent.Height)
	}

	return parent, nil
}
