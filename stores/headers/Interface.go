// Package headers stores chained block headers: every header whose ancestry back to genesis is known
// locally. The target block and target chain workers find candidate tips and walk chains through it.
package headers

import (
	"context"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type Store interface {
	// Get returns the chained header for hash, or nil when it is not known.
	Get(ctx context.Context, hash *chainhash.Hash) (*model.ChainedHeader, error)
	// Add stores ch and fires the subscriptions. It returns false when ch was already known.
	Add(ctx context.Context, ch *model.ChainedHeader) (bool, error)
	// Tips returns every stored header that has no stored child.
	Tips(ctx context.Context) ([]*model.ChainedHeader, error)
	// Subscribe registers fn for every header added from now on.
	Subscribe(fn func(*model.ChainedHeader)) func()
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	Close() error
}

// Lookup adapts store to a model.HeaderLookup bound to ctx.
func Lookup(ctx context.Context, store Store) model.HeaderLookup {
	return func(hash *chainhash.Hash) (*model.ChainedHeader, error) {
		return store.Get(ctx, hash)
	}
}

// AddHeader chains header on its stored parent and adds the result. Headers whose parent is not
// known yet return an ERR_MISSING_DATA error.
func AddHeader(ctx context.Context, store Store, header *model.BlockHeader) (*model.ChainedHeader, error) {
	if existing, err := store.Get(ctx, header.Hash()); err != nil || existing != nil {
		return existing, err
	}

	parent, err := store.Get(ctx, header.HashPrevBlock)
	if err != nil {
		return nil, err
	}

	if parent == nil {
		return nil, errors.NewMissingDataError("parent %s of header %s is not known", header.HashPrevBlock, header.Hash())
	}

	ch, err := model.NewChainedHeader(header, parent)
	if err != nil {
		return nil, err
	}

	if _, err = store.Add(ctx, ch); err != nil {
		return nil, err
	}

	return ch, nil
}
