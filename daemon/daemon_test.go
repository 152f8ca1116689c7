package daemon

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/bsv-blockchain/chainstate/util/worker"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSettings keeps every store of a test daemon in memory.
func testSettings(t *testing.T) *settings.Settings {
	t.Helper()

	tSettings := settings.NewSettings()
	tSettings.DataFolder = t.TempDir()

	var err error

	tSettings.ChainState.StoreURL, err = url.Parse("sqlitememory:///chainstate")
	require.NoError(t, err)

	tSettings.Headers.StoreURL, err = url.Parse("memory:///")
	require.NoError(t, err)

	tSettings.Kafka.TargetChainURL = nil
	tSettings.Tracing.Enabled = false

	return tSettings
}

type daemonEnv struct {
	t          *testing.T
	ctx        context.Context
	fake       *test.FakeHeaders
	daemon     *Daemon
	extraNonce uint32
}

func newDaemonEnv(t *testing.T) *daemonEnv {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)

	fake := test.NewFakeHeaders()

	d, err := New(ctx, ulogger.TestLogger{}, testSettings(t),
		WithGenesis(fake.Genesis()), WithWorkerOptions(worker.WithMaxIdleTime(0)))
	require.NoError(t, err)

	require.NoError(t, d.Start(ctx))

	t.Cleanup(func() {
		require.NoError(t, d.Close(context.Background()))
	})

	return &daemonEnv{t: t, ctx: ctx, fake: fake, daemon: d}
}

func (e *daemonEnv) block(parent *model.ChainedHeader, txs ...*bt.Tx) *model.ChainedHeader {
	e.t.Helper()

	header := e.fake.Next(parent)
	e.extraNonce++

	added, err := e.daemon.AddBlock(e.ctx, &model.Block{
		Header:       header.Header,
		Transactions: append([]*bt.Tx{test.CoinbaseTx(header.Height, e.extraNonce, 1)}, txs...),
	})
	require.NoError(e.t, err)
	require.True(e.t, added.IsEqual(header))

	return header
}

func (e *daemonEnv) extend(parent *model.ChainedHeader, n int) []*model.ChainedHeader {
	headers := make([]*model.ChainedHeader, 0, n)
	for i := 0; i < n; i++ {
		parent = e.block(parent)
		headers = append(headers, parent)
	}

	return headers
}

func TestDaemon(t *testing.T) {
	t.Run("starts on the network genesis", func(t *testing.T) {
		ctx := context.Background()
		tSettings := testSettings(t)

		d, err := New(ctx, ulogger.TestLogger{}, tSettings)
		require.NoError(t, err)

		defer func() {
			require.NoError(t, d.Close(ctx))
		}()

		assert.Equal(t, *tSettings.ChainCfgParams.GenesisHash, *d.ChainState().LastBlock().Hash())
		assert.Equal(t, model.UtxoCounters{}, *d.Counters())
	})

	t.Run("follows blocks and reorganizations", func(t *testing.T) {
		env := newDaemonEnv(t)
		genesis := env.daemon.Genesis()

		a := env.extend(genesis, 3)
		require.NoError(t, env.daemon.WaitForIdle(env.ctx))

		assert.True(t, env.daemon.ChainState().LastBlock().IsEqual(a[2]))
		assert.True(t, env.daemon.TargetChain().LastBlock().IsEqual(a[2]))
		assert.Equal(t, int64(3), env.daemon.Counters().UnspentTxCount)

		b := env.extend(a[0], 3)
		require.NoError(t, env.daemon.WaitForIdle(env.ctx))

		chain := env.daemon.ChainState()
		assert.True(t, chain.LastBlock().IsEqual(b[2]))
		assert.False(t, chain.Contains(a[1]))
		assert.Equal(t, int64(4), env.daemon.Counters().UnspentTxCount)
	})

	t.Run("rejects invalid blocks", func(t *testing.T) {
		env := newDaemonEnv(t)
		genesis := env.daemon.Genesis()

		a := env.extend(genesis, 2)
		require.NoError(t, env.daemon.WaitForIdle(env.ctx))

		missing := test.SpendTx([]model.TxOutputKey{{TxOutputIndex: 7}}, 1)
		bad := env.block(a[1], missing)
		child := env.block(bad)

		require.NoError(t, env.daemon.WaitForIdle(env.ctx))

		assert.True(t, env.daemon.InvalidBlocks().Contains(*bad.Hash()))
		assert.True(t, env.daemon.ChainState().LastBlock().IsEqual(a[1]))

		assert.Eventually(t, func() bool {
			return env.daemon.InvalidBlocks().Contains(*child.Hash()) &&
				env.daemon.TargetChain().LastBlock().IsEqual(a[1])
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("unknown parent", func(t *testing.T) {
		env := newDaemonEnv(t)

		orphan := env.fake.Next(env.fake.Next(env.daemon.Genesis()))

		_, err := env.daemon.AddBlock(env.ctx, &model.Block{
			Header:       orphan.Header,
			Transactions: []*bt.Tx{test.CoinbaseTx(orphan.Height, 1, 1)},
		})
		require.Error(t, err)
	})

	t.Run("stores are not shared between daemons", func(t *testing.T) {
		ctx := context.Background()

		network, err := New(ctx, ulogger.TestLogger{}, testSettings(t))
		require.NoError(t, err)
		require.NoError(t, network.Close(ctx))

		env := newDaemonEnv(t)
		assert.True(t, env.daemon.ChainState().LastBlock().IsEqual(env.fake.Genesis()))
	})

	t.Run("health", func(t *testing.T) {
		env := newDaemonEnv(t)

		status, message, err := env.daemon.Health(env.ctx, true)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, message, "ChainStateStore")
	})
}
