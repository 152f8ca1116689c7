package model

import (
	"github.com/bsv-blockchain/chainstate/errors"
)

// ChainBuilder is the mutable counterpart of Chain. It is not safe for concurrent use.
//
// The builder shares its backing array with the chains it publishes. Appends only ever write past the
// length of every published chain, and RemoveBlock clips the capacity, so a published chain never
// observes a later mutation.
type ChainBuilder struct {
	blocks []*ChainedHeader
}

func NewChainBuilder() *ChainBuilder {
	return &ChainBuilder{}
}

func (b *ChainBuilder) LastBlock() *ChainedHeader {
	if len(b.blocks) == 0 {
		return nil
	}

	return b.blocks[len(b.blocks)-1]
}

func (b *ChainBuilder) Height() int {
	return len(b.blocks) - 1
}

func (b *ChainBuilder) Count() int {
	return len(b.blocks)
}

// AddBlock appends ch to the tip. ch must build on the current tip, or be a height 0 header on an empty builder.
func (b *ChainBuilder) AddBlock(ch *ChainedHeader) error {
	tip := b.LastBlock()

	if tip == nil {
		if ch.Height != 0 {
			return errors.NewInvalidOperationError("cannot add block %s at height %d to an empty chain", ch.Hash(), ch.Height)
		}
	} else if !ch.PreviousHash().IsEqual(tip.Hash()) || ch.Height != tip.Height+1 {
		return errors.NewInvalidOperationError("block %s does not extend tip %s", ch, tip)
	}

	b.blocks = append(b.blocks, ch)

	return nil
}

// RemoveBlock removes ch, which must be the current tip.
func (b *ChainBuilder) RemoveBlock(ch *ChainedHeader) error {
	tip := b.LastBlock()
	if tip == nil || !tip.IsEqual(ch) {
		return errors.NewInvalidOperationError("block %s is not the tip %s", ch, tip)
	}

	n := len(b.blocks) - 1
	b.blocks = b.blocks[:n:n]

	return nil
}

func (b *ChainBuilder) ToImmutable() *Chain {
	n := len(b.blocks)
	return &Chain{blocks: b.blocks[:n:n]}
}
