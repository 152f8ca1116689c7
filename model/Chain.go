package model

import (
	"math/big"
)

// Chain is an immutable list of chained headers from genesis (index 0) to tip.
// Chains are safe to share between goroutines; a new Chain is produced by a ChainBuilder.
type Chain struct {
	blocks []*ChainedHeader
}

func NewChainForGenesis(genesis *ChainedHeader) *Chain {
	return &Chain{blocks: []*ChainedHeader{genesis}}
}

func (c *Chain) Genesis() *ChainedHeader {
	if c == nil || len(c.blocks) == 0 {
		return nil
	}

	return c.blocks[0]
}

// LastBlock returns the tip of the chain.
func (c *Chain) LastBlock() *ChainedHeader {
	if c == nil || len(c.blocks) == 0 {
		return nil
	}

	return c.blocks[len(c.blocks)-1]
}

// Height returns the height of the tip, or -1 for an empty chain.
func (c *Chain) Height() int {
	if c == nil {
		return -1
	}

	return len(c.blocks) - 1
}

func (c *Chain) TotalWork() *big.Int {
	tip := c.LastBlock()
	if tip == nil {
		return big.NewInt(0)
	}

	return new(big.Int).Set(tip.ChainWork)
}

func (c *Chain) BlockAtHeight(height uint32) (*ChainedHeader, bool) {
	if c == nil || int(height) >= len(c.blocks) {
		return nil, false
	}

	return c.blocks[height], true
}

// Contains reports whether ch is part of this chain, in constant time.
func (c *Chain) Contains(ch *ChainedHeader) bool {
	b, ok := c.BlockAtHeight(ch.Height)
	return ok && b.IsEqual(ch)
}

// Blocks returns a copy of the headers, genesis first.
func (c *Chain) Blocks() []*ChainedHeader {
	if c == nil {
		return nil
	}

	blocks := make([]*ChainedHeader, len(c.blocks))
	copy(blocks, c.blocks)

	return blocks
}

// ToBuilder returns a builder starting from this chain. The chain itself is not affected by the builder.
func (c *Chain) ToBuilder() *ChainBuilder {
	if c == nil {
		return NewChainBuilder()
	}

	// clip capacity so the first append in the builder reallocates
	return &ChainBuilder{blocks: c.blocks[:len(c.blocks):len(c.blocks)]}
}
