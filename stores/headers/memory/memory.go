// Package memory is an in memory headers.Store.
package memory

import (
	"context"
	"net/http"
	"sync"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/util/notify"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
)

type Memory struct {
	mu sync.RWMutex

	headers *swiss.Map[chainhash.Hash, *model.ChainedHeader]
	// hashes that are the parent of at least one stored header
	parents *swiss.Map[chainhash.Hash, struct{}]
	tips    *swiss.Map[chainhash.Hash, *model.ChainedHeader]

	listeners notify.Listeners[*model.ChainedHeader]
}

func New() *Memory {
	return &Memory{
		headers: swiss.NewMap[chainhash.Hash, *model.ChainedHeader](1024),
		parents: swiss.NewMap[chainhash.Hash, struct{}](1024),
		tips:    swiss.NewMap[chainhash.Hash, *model.ChainedHeader](16),
	}
}

func (m *Memory) Get(_ context.Context, hash *chainhash.Hash) (*model.ChainedHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, _ := m.headers.Get(*hash)

	return ch, nil
}

func (m *Memory) Add(_ context.Context, ch *model.ChainedHeader) (bool, error) {
	hash := *ch.Hash()

	m.mu.Lock()

	if m.headers.Has(hash) {
		m.mu.Unlock()
		return false, nil
	}

	m.headers.Put(hash, ch)

	if ch.Height > 0 {
		prev := *ch.PreviousHash()
		m.parents.Put(prev, struct{}{})
		m.tips.Delete(prev)
	}

	if !m.parents.Has(hash) {
		m.tips.Put(hash, ch)
	}

	m.mu.Unlock()

	m.listeners.Fire(ch)

	return true, nil
}

func (m *Memory) Tips(_ context.Context) ([]*model.ChainedHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tips := make([]*model.ChainedHeader, 0, m.tips.Count())

	m.tips.Iter(func(_ chainhash.Hash, ch *model.ChainedHeader) bool {
		tips = append(tips, ch)
		return false
	})

	return tips, nil
}

func (m *Memory) Subscribe(fn func(*model.ChainedHeader)) func() {
	return m.listeners.Subscribe(fn)
}

func (m *Memory) Health(_ context.Context, _ bool) (int, string, error) {
	return http.StatusOK, "Memory Store available", nil
}

func (m *Memory) Close() error {
	m.listeners.Clear()
	return nil
}
