package main

import (
	"context"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/bsv-blockchain/chainstate/daemon"
	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/atomic"
)

type simulateResult struct {
	Genesis        string              `json:"genesis"`
	Tip            string              `json:"tip"`
	Height         uint32              `json:"height"`
	TargetTip      string              `json:"targetTip"`
	BlocksAdded    int                 `json:"blocksAdded"`
	Reorganized    bool                `json:"reorganized"`
	StateChanges   int64               `json:"stateChanges"`
	InvalidBlocks  int                 `json:"invalidBlocks"`
	Counters       *model.UtxoCounters `json:"counters"`
	TargetFSMState string              `json:"targetChainState"`
}

// blockGenerator builds blocks that spend random outputs of their ancestors.
type blockGenerator struct {
	rng        *rand.Rand
	fake       *test.FakeHeaders
	maxSpends  int
	extraNonce uint32
}

func newBlockGenerator(seed uint64, maxSpends int) *blockGenerator {
	return &blockGenerator{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // simulation only
		fake:      test.NewFakeHeaders(),
		maxSpends: maxSpends,
	}
}

// next returns a block on top of parent spending outputs from pool, and the pool of spendable
// outputs after it. pool is not modified.
func (g *blockGenerator) next(parent *model.ChainedHeader, pool []model.TxOutputKey) (*model.Block, *model.ChainedHeader, []model.TxOutputKey) {
	header := g.fake.Next(parent)

	g.extraNonce++
	coinbase := test.CoinbaseTx(header.Height, g.extraNonce, 1)

	remaining := append([]model.TxOutputKey(nil), pool...)
	txs := []*bt.Tx{coinbase}

	var created []model.TxOutputKey

	for i := g.rng.IntN(g.maxSpends + 1); i > 0 && len(remaining) > 0; i-- {
		inputs := 1 + g.rng.IntN(2)

		var spends []model.TxOutputKey

		for j := 0; j < inputs && len(remaining) > 0; j++ {
			k := g.rng.IntN(len(remaining))
			spends = append(spends, remaining[k])
			remaining[k] = remaining[len(remaining)-1]
			remaining = remaining[:len(remaining)-1]
		}

		tx := test.SpendTx(spends, 1+g.rng.IntN(3))
		txs = append(txs, tx)
		created = append(created, test.Keys(tx)...)
	}

	remaining = append(remaining, test.Keys(coinbase)...)
	remaining = append(remaining, created...)

	return &model.Block{Header: header.Header, Transactions: txs}, header, remaining
}

func simulate(c *cli.Context, logger ulogger.Logger, tSettings *settings.Settings) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := overrideURL(&tSettings.ChainState.StoreURL, c.String("store")); err != nil {
		return err
	}

	if err := overrideURL(&tSettings.Headers.StoreURL, c.String("headers")); err != nil {
		return err
	}

	blocks := c.Int("blocks")
	depth := c.Int("reorg-depth")

	if blocks < 1 || depth < 0 || depth > blocks {
		return errors.NewInvalidArgumentError("need at least one block and a reorg depth between 0 and %d", blocks)
	}

	d, err := daemon.New(ctx, logger, tSettings)
	if err != nil {
		return err
	}

	defer func() {
		if err := d.Close(context.Background()); err != nil {
			logger.Errorf("[simulate] %v", err)
		}
	}()

	var stateChanges atomic.Int64

	unsubscribe := d.SubscribeChainStateChanged(func(*model.Chain) {
		stateChanges.Inc()
	})
	defer unsubscribe()

	if err = d.Start(ctx); err != nil {
		return err
	}

	gen := newBlockGenerator(c.Uint64("seed"), c.Int("spends"))

	start := d.ChainState().LastBlock()
	headers := make([]*model.ChainedHeader, 0, blocks)
	pools := make([][]model.TxOutputKey, 0, blocks)

	parent, pool := start, []model.TxOutputKey(nil)

	for i := 0; i < blocks; i++ {
		block, header, next := gen.next(parent, pool)
		if _, err = d.AddBlock(ctx, block); err != nil {
			return err
		}

		headers = append(headers, header)
		pools = append(pools, next)
		parent, pool = header, next
	}

	if err = d.WaitForIdle(ctx); err != nil {
		return err
	}

	added := blocks

	if depth > 0 {
		fork := blocks - depth

		parent, pool = start, nil
		if fork > 0 {
			parent, pool = headers[fork-1], pools[fork-1]
		}

		logger.Infof("[simulate] replacing %d blocks on top of %s", depth, parent)

		for i := 0; i <= depth; i++ {
			block, header, next := gen.next(parent, pool)
			if _, err = d.AddBlock(ctx, block); err != nil {
				return err
			}

			parent, pool = header, next
			added++
		}

		if err = d.WaitForIdle(ctx); err != nil {
			return err
		}
	}

	chain := d.ChainState()
	tip := chain.LastBlock()

	result := simulateResult{
		Genesis:        d.Genesis().Hash().String(),
		Tip:            tip.Hash().String(),
		Height:         tip.Height,
		BlocksAdded:    added,
		Reorganized:    depth > 0,
		StateChanges:   stateChanges.Load(),
		InvalidBlocks:  d.InvalidBlocks().Len(),
		Counters:       d.Counters(),
		TargetFSMState: d.TargetChainState(),
	}

	if target := d.TargetChain(); target != nil {
		result.TargetTip = target.LastBlock().Hash().String()
	}

	if err = printJSON(&result); err != nil {
		return err
	}

	if result.TargetTip != result.Tip {
		return errors.NewStateError("chain state %s did not reach target chain %s", result.Tip, result.TargetTip)
	}

	return nil
}

func overrideURL(dst **url.URL, value string) error {
	if value == "" {
		return nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return errors.NewConfigurationError("invalid store url %s", value, err)
	}

	*dst = u

	return nil
}
