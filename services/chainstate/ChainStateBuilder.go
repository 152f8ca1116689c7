package chainstate

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/tracing"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"go.uber.org/atomic"
)

// ChainStateBuilder owns the cursor of a chain state store and moves the chain state one block at a
// time. Every block is applied or rolled back in its own cursor transaction.
type ChainStateBuilder struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	cursor      chainstate.Cursor
	utxoBuilder *UtxoBuilder

	// serializes block operations on the cursor
	mu    sync.Mutex
	chain *atomic.Pointer[model.Chain]
}

// NewChainStateBuilder opens a cursor on store and loads the applied chain. An empty store is
// initialized with genesis; a store built on another genesis is a configuration error.
func NewChainStateBuilder(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, store chainstate.Store, genesis *model.ChainedHeader) (*ChainStateBuilder, error) {
	initPrometheusMetrics()

	cursor, err := store.OpenCursor(ctx)
	if err != nil {
		return nil, err
	}

	b := &ChainStateBuilder{
		logger:      logger,
		settings:    tSettings,
		cursor:      cursor,
		utxoBuilder: NewUtxoBuilder(logger, tSettings.ChainState.PrepareConcurrency, tSettings.ChainState.PrepareBufferSize),
		chain:       atomic.NewPointer[model.Chain](nil),
	}

	if err = b.load(ctx, genesis); err != nil {
		_ = cursor.Close()
		return nil, err
	}

	return b, nil
}

func (b *ChainStateBuilder) load(ctx context.Context, genesis *model.ChainedHeader) error {
	headers, err := b.cursor.ReadChain()
	if err != nil {
		return err
	}

	if len(headers) == 0 {
		b.logger.Infof("[ChainStateBuilder] initializing chain state with genesis %s", genesis)

		chain := model.NewChainForGenesis(genesis)

		if _, err = b.addBlock(ctx, chain, nil); err != nil {
			return err
		}

		return nil
	}

	if !headers[0].IsEqual(genesis) {
		return errors.NewConfigurationError("chain state was built on genesis %s, expected %s", headers[0], genesis)
	}

	builder := model.NewChainBuilder()
	for _, ch := range headers {
		if err = builder.AddBlock(ch); err != nil {
			return errors.NewCorruptionError("stored chain is broken at %s", ch, err)
		}
	}

	chain := builder.ToImmutable()
	b.chain.Store(chain)
	b.updateGauges()

	b.logger.Infof("[ChainStateBuilder] loaded chain state at %s", chain.LastBlock())

	return nil
}

// Chain returns the chain the chain state currently reflects.
func (b *ChainStateBuilder) Chain() *model.Chain {
	return b.chain.Load()
}

// Counters returns a copy of the committed utxo counters.
func (b *ChainStateBuilder) Counters() *model.UtxoCounters {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cursor.Counters().Clone()
}

// AddBlock applies header, which must extend the current chain, with its transactions.
func (b *ChainStateBuilder) AddBlock(ctx context.Context, header *model.ChainedHeader, blockTxs []*model.BlockTx) (validatableTxs []*model.ValidatableTx, err error) {
	ctx, _, endSpan := tracing.Tracer("chainstate").Start(ctx, "ChainStateBuilder:AddBlock",
		tracing.WithHistogram(prometheusChainStateAddBlock),
		tracing.WithTag("block", header.Hash().String()),
	)
	defer func() {
		endSpan(err)
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	builder := b.Chain().ToBuilder()
	if err = builder.AddBlock(header); err != nil {
		return nil, err
	}

	validatableTxs, err = b.addBlock(ctx, builder.ToImmutable(), blockTxs)
	if err != nil {
		return nil, err
	}

	prometheusChainStateBlockTxs.Observe(float64(len(blockTxs)))

	return validatableTxs, nil
}

// addBlock applies the last block of chain. The caller holds mu, or is the constructor.
func (b *ChainStateBuilder) addBlock(ctx context.Context, chain *model.Chain, blockTxs []*model.BlockTx) ([]*model.ValidatableTx, error) {
	header := chain.LastBlock()

	var validatableTxs []*model.ValidatableTx

	err := b.inTransaction(ctx, func() error {
		var err error

		if validatableTxs, err = b.utxoBuilder.CalculateUtxo(ctx, b.cursor, chain, blockTxs); err != nil {
			return err
		}

		ok, err := b.cursor.TryAddHeader(header)
		if err != nil {
			return err
		}

		if !ok {
			return errors.NewStateError("[AddBlock][%s] block does not extend the stored chain", header)
		}

		// the block is applied again, its replay data from an earlier rollback is stale
		if _, err = b.cursor.TryRemoveBlockUnmintedTxes(header.Hash()); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	b.chain.Store(chain)
	b.updateGauges()

	b.logger.Debugf("[ChainStateBuilder][AddBlock] applied %s with %d txs", header, len(blockTxs))

	return validatableTxs, nil
}

// RollbackBlock rolls back header, which must be the tip, using the transactions it was applied with.
// The unminted tx replay records are kept until the block is applied again.
func (b *ChainStateBuilder) RollbackBlock(ctx context.Context, header *model.ChainedHeader, blockTxs []*model.BlockTx) (err error) {
	ctx, _, endSpan := tracing.Tracer("chainstate").Start(ctx, "ChainStateBuilder:RollbackBlock",
		tracing.WithHistogram(prometheusChainStateRollbackBlock),
		tracing.WithTag("block", header.Hash().String()),
	)
	defer func() {
		endSpan(err)
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	if header.Height == 0 {
		return errors.NewInvalidOperationError("[RollbackBlock] cannot roll back genesis %s", header)
	}

	builder := b.Chain().ToBuilder()
	if err = builder.RemoveBlock(header); err != nil {
		return err
	}

	err = b.inTransaction(ctx, func() error {
		unmintedTxs, err := b.utxoBuilder.RollbackUtxo(ctx, b.cursor, header, blockTxs)
		if err != nil {
			return err
		}

		ok, err := b.cursor.TryRemoveBlockSpentTxes(header.Height)
		if err != nil {
			return err
		}

		if !ok {
			return errors.NewCorruptionError("[RollbackBlock][%s] spent txes ledger is missing", header)
		}

		if _, err = b.cursor.TryRemoveBlockUnmintedTxes(header.Hash()); err != nil {
			return err
		}

		if _, err = b.cursor.TryAddBlockUnmintedTxes(header.Hash(), unmintedTxs); err != nil {
			return err
		}

		if ok, err = b.cursor.TryRemoveHeader(header); err != nil {
			return err
		}

		if !ok {
			return errors.NewStateError("[RollbackBlock][%s] block is not the stored tip", header)
		}

		return nil
	})
	if err != nil {
		return err
	}

	b.chain.Store(builder.ToImmutable())
	b.updateGauges()

	b.logger.Debugf("[ChainStateBuilder][RollbackBlock] rolled back %s with %d txs", header, len(blockTxs))

	return nil
}

// UnmintedTxes returns the replay records stored when block hash was rolled back.
func (b *ChainStateBuilder) UnmintedTxes(hash *chainhash.Hash) ([]*model.UnmintedTx, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cursor.TryGetBlockUnmintedTxes(hash)
}

// inTransaction runs fn in a cursor transaction, committing when fn succeeds and rolling back
// otherwise.
func (b *ChainStateBuilder) inTransaction(ctx context.Context, fn func() error) error {
	if err := b.cursor.BeginTransaction(ctx); err != nil {
		return err
	}

	if err := fn(); err != nil {
		if rollbackErr := b.cursor.RollbackTransaction(); rollbackErr != nil {
			b.logger.Errorf("[ChainStateBuilder] failed to roll back transaction after %v: %v", err, rollbackErr)
		}

		return err
	}

	return b.cursor.CommitTransaction(ctx)
}

func (b *ChainStateBuilder) updateGauges() {
	counters := b.cursor.Counters()

	prometheusChainStateUnspentTxs.Set(float64(counters.UnspentTxCount))
	prometheusChainStateUnspentOutputs.Set(float64(counters.UnspentOutputCount))

	if chain := b.chain.Load(); chain != nil {
		prometheusChainStateHeight.Set(float64(chain.Height()))
	}
}

func (b *ChainStateBuilder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cursor.Close()
}
