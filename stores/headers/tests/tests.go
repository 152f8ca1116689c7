// Package tests holds the behaviour every headers.Store backend must share.
package tests

import (
	"context"
	"sync"
	"testing"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/headers"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type NewStoreFunc func(t *testing.T) headers.Store

func RunAll(t *testing.T, newStore NewStoreFunc) {
	tests := map[string]func(t *testing.T, store headers.Store){
		"get and add":   GetAndAdd,
		"tips":          Tips,
		"subscribe":     Subscribe,
		"add header":    AddHeader,
		"lookup walker": LookupWalker,
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			defer func() {
				require.NoError(t, store.Close())
			}()

			fn(t, store)
		})
	}
}

func GetAndAdd(t *testing.T, store headers.Store) {
	ctx := context.Background()
	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()

	got, err := store.Get(ctx, genesis.Hash())
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err := store.Add(ctx, genesis)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Add(ctx, genesis)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = store.Get(ctx, genesis.Hash())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsEqual(genesis))
	assert.Equal(t, 0, got.ChainWork.Cmp(genesis.ChainWork))
}

func Tips(t *testing.T, store headers.Store) {
	ctx := context.Background()
	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	common := fake.Extend(genesis, 2)
	branchA := fake.Extend(common[1], 2)
	branchB := fake.Extend(common[1], 1)

	for _, ch := range append(append(append([]*model.ChainedHeader{genesis}, common...), branchA...), branchB...) {
		_, err := store.Add(ctx, ch)
		require.NoError(t, err)
	}

	tips, err := store.Tips(ctx)
	require.NoError(t, err)
	require.Len(t, tips, 2)

	hashes := map[string]bool{}
	for _, tip := range tips {
		hashes[tip.Hash().String()] = true
	}

	assert.True(t, hashes[branchA[1].Hash().String()])
	assert.True(t, hashes[branchB[0].Hash().String()])
}

func Subscribe(t *testing.T, store headers.Store) {
	ctx := context.Background()
	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	next := fake.Next(genesis)

	var (
		mu    sync.Mutex
		added []*model.ChainedHeader
	)

	unsubscribe := store.Subscribe(func(ch *model.ChainedHeader) {
		mu.Lock()
		added = append(added, ch)
		mu.Unlock()
	})

	_, err := store.Add(ctx, genesis)
	require.NoError(t, err)

	_, err = store.Add(ctx, genesis)
	require.NoError(t, err)

	unsubscribe()

	_, err = store.Add(ctx, next)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, added, 1, "duplicates and adds after unsubscribe are not delivered")
	assert.True(t, added[0].IsEqual(genesis))
}

func AddHeader(t *testing.T, store headers.Store) {
	ctx := context.Background()
	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	chain := fake.Extend(genesis, 2)

	_, err := headers.AddHeader(ctx, store, chain[1].Header)
	require.Error(t, err)
	assert.True(t, errors.IsMissingDataError(err))

	_, err = store.Add(ctx, genesis)
	require.NoError(t, err)

	ch, err := headers.AddHeader(ctx, store, chain[0].Header)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ch.Height)
	assert.Equal(t, 0, ch.ChainWork.Cmp(chain[0].ChainWork))

	ch, err = headers.AddHeader(ctx, store, chain[1].Header)
	require.NoError(t, err)
	assert.True(t, ch.IsEqual(chain[1]))

	again, err := headers.AddHeader(ctx, store, chain[1].Header)
	require.NoError(t, err)
	assert.True(t, again.IsEqual(chain[1]))
}

func LookupWalker(t *testing.T, store headers.Store) {
	ctx := context.Background()
	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()
	common := fake.Extend(genesis, 1)
	branchA := fake.Extend(common[0], 2)
	branchB := fake.Extend(common[0], 3)

	for _, ch := range append(append(append([]*model.ChainedHeader{genesis}, common...), branchA...), branchB...) {
		_, err := store.Add(ctx, ch)
		require.NoError(t, err)
	}

	path, err := model.GetBlockchainPath(branchA[1], branchB[2], headers.Lookup(ctx, store))
	require.NoError(t, err)
	assert.True(t, path.LastCommonBlock.IsEqual(common[0]))
	assert.Len(t, path.RewindBlocks, 2)
	assert.Len(t, path.AdvanceBlocks, 3)
}
