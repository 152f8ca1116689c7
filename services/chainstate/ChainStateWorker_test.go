package chainstate

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/stores/blocktxes"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/memory"
	headersmemory "github.com/bsv-blockchain/chainstate/stores/headers/memory"
	"github.com/bsv-blockchain/chainstate/stores/invalidblocks"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/notify"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/bsv-blockchain/chainstate/util/worker"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeTargetChain struct {
	chain   *atomic.Pointer[model.Chain]
	changed notify.Listeners[*model.Chain]
}

func (f *fakeTargetChain) TargetChain() *model.Chain {
	return f.chain.Load()
}

func (f *fakeTargetChain) SubscribeTargetChainChanged(fn func(*model.Chain)) func() {
	return f.changed.Subscribe(fn)
}

func (f *fakeTargetChain) publish(chain *model.Chain) {
	f.chain.Store(chain)
	f.changed.Fire(chain)
}

type workerEnv struct {
	t             *testing.T
	ctx           context.Context
	fake          *test.FakeHeaders
	genesis       *model.ChainedHeader
	headers       *headersmemory.Memory
	blockTxes     *blocktxes.Memory
	invalidBlocks *invalidblocks.Cache
	builder       *ChainStateBuilder
	target        *fakeTargetChain
	worker        *ChainStateWorker
	extraNonce    uint32
	stateChanges  atomic.Int64
}

func newWorkerEnv(t *testing.T) *workerEnv {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()

	env := &workerEnv{
		t:             t,
		ctx:           ctx,
		fake:          fake,
		genesis:       genesis,
		headers:       headersmemory.New(),
		blockTxes:     blocktxes.NewMemory(),
		invalidBlocks: invalidblocks.New(),
		target:        &fakeTargetChain{chain: atomic.NewPointer[model.Chain](nil)},
	}

	_, err := env.headers.Add(ctx, genesis)
	require.NoError(t, err)

	env.builder = newTestBuilder(t, memory.New(ulogger.TestLogger{}), genesis)
	env.worker = NewChainStateWorker(ulogger.TestLogger{}, settings.NewSettings(), env.builder, env.target,
		env.headers, env.blockTxes, env.invalidBlocks, worker.WithMaxIdleTime(0))

	env.worker.SubscribeChainStateChanged(func(*model.Chain) {
		env.stateChanges.Inc()
	})

	require.NoError(t, env.worker.Start(ctx))

	t.Cleanup(func() {
		_ = env.worker.Close()
	})

	return env
}

// block adds a header on top of parent with the given txs after a fresh coinbase.
func (e *workerEnv) block(parent *model.ChainedHeader, txs ...*bt.Tx) *model.ChainedHeader {
	header := e.fake.Next(parent)

	e.extraNonce++
	coinbase := test.CoinbaseTx(header.Height, e.extraNonce, 1)

	_, err := e.headers.Add(e.ctx, header)
	require.NoError(e.t, err)

	e.blockTxes.Add(*header.Hash(), test.BlockTxs(append([]*bt.Tx{coinbase}, txs...)...))

	return header
}

func (e *workerEnv) extend(parent *model.ChainedHeader, n int) []*model.ChainedHeader {
	headers := make([]*model.ChainedHeader, 0, n)

	for i := 0; i < n; i++ {
		parent = e.block(parent)
		headers = append(headers, parent)
	}

	return headers
}

func (e *workerEnv) publish(headers ...*model.ChainedHeader) {
	builder := model.NewChainForGenesis(e.genesis).ToBuilder()

	for _, header := range headers {
		require.NoError(e.t, builder.AddBlock(header))
	}

	e.target.publish(builder.ToImmutable())

	require.NoError(e.t, e.worker.WaitForIdle(e.ctx))
}

func TestChainStateWorker(t *testing.T) {
	t.Run("follows the target chain", func(t *testing.T) {
		env := newWorkerEnv(t)

		a := env.extend(env.genesis, 3)
		env.publish(a...)

		assert.True(t, env.worker.Chain().LastBlock().IsEqual(a[2]))
		assert.Equal(t, int64(3), env.builder.Counters().UnspentTxCount)
		assert.Positive(t, env.stateChanges.Load())
	})

	t.Run("reorganizes", func(t *testing.T) {
		env := newWorkerEnv(t)

		a := env.extend(env.genesis, 3)
		env.publish(a...)

		b := env.extend(a[0], 3)
		env.publish(append([]*model.ChainedHeader{a[0]}, b...)...)

		assert.True(t, env.worker.Chain().LastBlock().IsEqual(b[2]))
		assert.Equal(t, int64(4), env.builder.Counters().UnspentTxCount)

		for _, header := range a[1:] {
			_, ok, err := env.builder.UnmintedTxes(header.Hash())
			require.NoError(t, err)
			assert.True(t, ok, "rolled back block %s keeps its replay records", header)
		}
	})

	t.Run("marks invalid blocks", func(t *testing.T) {
		env := newWorkerEnv(t)

		a := env.extend(env.genesis, 1)
		spend := test.SpendTx([]model.TxOutputKey{{TxOutputIndex: 7}}, 1)
		bad := env.block(a[0], spend)
		after := env.block(bad)

		env.publish(a[0], bad, after)

		assert.True(t, env.worker.Chain().LastBlock().IsEqual(a[0]))
		assert.True(t, env.invalidBlocks.Contains(*bad.Hash()))

		reason, ok := env.invalidBlocks.Reason(*bad.Hash())
		require.True(t, ok)
		assert.NotEmpty(t, reason)

		// the next cycle stops in front of the known invalid block
		env.worker.NotifyWork()
		require.NoError(t, env.worker.WaitForIdle(env.ctx))
		assert.True(t, env.worker.Chain().LastBlock().IsEqual(a[0]))
	})

	t.Run("waits for missing block txes", func(t *testing.T) {
		env := newWorkerEnv(t)

		a := env.extend(env.genesis, 2)
		env.blockTxes.Remove(*a[1].Hash())

		env.publish(a...)
		assert.True(t, env.worker.Chain().LastBlock().IsEqual(a[0]))

		env.extraNonce++
		env.blockTxes.Add(*a[1].Hash(), test.BlockTxs(test.CoinbaseTx(a[1].Height, env.extraNonce, 1)))

		env.worker.NotifyWork()
		require.NoError(t, env.worker.WaitForIdle(env.ctx))
		assert.True(t, env.worker.Chain().LastBlock().IsEqual(a[1]))
	})

	t.Run("waits for missing headers", func(t *testing.T) {
		env := newWorkerEnv(t)

		a := env.extend(env.genesis, 2)
		env.publish(a...)

		// a fork whose headers never reached the header store
		x := env.fake.Next(a[0])
		y := env.fake.Next(x)

		builder := model.NewChainForGenesis(env.genesis).ToBuilder()
		for _, header := range []*model.ChainedHeader{a[0], x, y} {
			require.NoError(t, builder.AddBlock(header))
		}

		env.target.publish(builder.ToImmutable())
		require.NoError(t, env.worker.WaitForIdle(env.ctx))

		assert.True(t, env.worker.Chain().LastBlock().IsEqual(a[1]))
	})
}
