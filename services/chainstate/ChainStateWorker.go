package chainstate

import (
	"context"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/stores/blocktxes"
	"github.com/bsv-blockchain/chainstate/stores/headers"
	"github.com/bsv-blockchain/chainstate/stores/invalidblocks"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/notify"
	"github.com/bsv-blockchain/chainstate/util/worker"
)

// TargetChainSource publishes the chain the chain state should converge on.
type TargetChainSource interface {
	TargetChain() *model.Chain
	SubscribeTargetChainChanged(fn func(*model.Chain)) func()
}

// ChainStateWorker moves the chain state towards the target chain: it rolls back blocks the
// target chain no longer contains and applies the ones it gained. A block that fails validation
// is marked invalid, which makes the target chain worker pick another chain.
type ChainStateWorker struct {
	logger        ulogger.Logger
	builder       *ChainStateBuilder
	target        TargetChainSource
	headers       headers.Store
	blockTxes     blocktxes.Source
	invalidBlocks *invalidblocks.Cache
	worker        *worker.Worker

	chainStateChanged notify.Listeners[*model.Chain]
	unsubscribe       func()
}

func NewChainStateWorker(logger ulogger.Logger, tSettings *settings.Settings, builder *ChainStateBuilder, target TargetChainSource,
	headerStore headers.Store, blockTxes blocktxes.Source, invalidBlocks *invalidblocks.Cache, opts ...worker.Option) *ChainStateWorker {
	initPrometheusMetrics()

	w := &ChainStateWorker{
		logger:        logger,
		builder:       builder,
		target:        target,
		headers:       headerStore,
		blockTxes:     blockTxes,
		invalidBlocks: invalidBlocks,
	}

	workerOpts := append([]worker.Option{
		worker.WithMinIdleTime(tSettings.ChainState.WorkerMinIdleTime),
		worker.WithMaxIdleTime(tSettings.ChainState.WorkerMaxIdleTime),
		worker.WithInitialNotify(true),
	}, opts...)

	w.worker = worker.New("ChainStateWorker", logger, w.work, workerOpts...)

	return w
}

func (w *ChainStateWorker) Start(ctx context.Context) error {
	w.unsubscribe = w.target.SubscribeTargetChainChanged(func(*model.Chain) {
		w.worker.NotifyWork()
	})

	return w.worker.Start(ctx)
}

func (w *ChainStateWorker) Stop() {
	w.worker.Stop()
}

func (w *ChainStateWorker) Close() error {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}

	w.worker.Stop()

	return nil
}

func (w *ChainStateWorker) NotifyWork() {
	w.worker.NotifyWork()
}

func (w *ChainStateWorker) WaitForIdle(ctx context.Context) error {
	return w.worker.WaitForIdle(ctx)
}

// Chain returns the chain the chain state currently reflects.
func (w *ChainStateWorker) Chain() *model.Chain {
	return w.builder.Chain()
}

// SubscribeChainStateChanged registers fn for every cycle that moved the chain state.
func (w *ChainStateWorker) SubscribeChainStateChanged(fn func(*model.Chain)) func() {
	return w.chainStateChanged.Subscribe(fn)
}

func (w *ChainStateWorker) work(ctx context.Context) error {
	prometheusChainStateWorkerCycles.Inc()

	targetChain := w.target.TargetChain()
	if targetChain == nil || targetChain.LastBlock() == nil {
		return nil
	}

	current := w.builder.Chain()
	if current.LastBlock().IsEqual(targetChain.LastBlock()) {
		return nil
	}

	changed, err := w.follow(ctx, current, targetChain)

	if changed {
		w.chainStateChanged.Fire(w.builder.Chain())
	}

	switch {
	case err == nil:
		return nil
	case errors.IsMissingDataError(err):
		w.logger.Debugf("[ChainStateWorker] waiting for data: %v", err)
		return nil
	case errors.IsValidationError(err):
		return nil
	case errors.IsCorruptionError(err):
		w.logger.Errorf("[ChainStateWorker] chain state is corrupt at %s: %v", w.builder.Chain().LastBlock(), err)
		return err
	default:
		return err
	}
}

// follow walks from current to targetChain and reports whether any block was rolled back or applied.
func (w *ChainStateWorker) follow(ctx context.Context, current, targetChain *model.Chain) (bool, error) {
	path, err := model.GetBlockchainPath(current.LastBlock(), targetChain.LastBlock(), headers.Lookup(ctx, w.headers))
	if err != nil {
		return false, err
	}

	changed := false

	for _, header := range path.RewindBlocks {
		if w.targetChanged(targetChain) {
			return changed, nil
		}

		blockTxs, err := w.blockTxes.GetBlockTxes(ctx, header.Hash())
		if err != nil {
			return changed, err
		}

		if err = w.builder.RollbackBlock(ctx, header, blockTxs); err != nil {
			return changed, err
		}

		changed = true
	}

	for _, header := range path.AdvanceBlocks {
		if w.targetChanged(targetChain) {
			return changed, nil
		}

		if w.invalidBlocks.Contains(*header.Hash()) {
			w.logger.Debugf("[ChainStateWorker] not applying invalid block %s", header)
			return changed, nil
		}

		blockTxs, err := w.blockTxes.GetBlockTxes(ctx, header.Hash())
		if err != nil {
			return changed, err
		}

		if _, err = w.builder.AddBlock(ctx, header, blockTxs); err != nil {
			if errors.IsValidationError(err) {
				w.logger.Warnf("[ChainStateWorker] block %s is invalid: %v", header, err)
				w.invalidBlocks.TryAdd(*header.Hash(), err.Error())
			}

			return changed, err
		}

		changed = true
	}

	return changed, nil
}

// targetChanged reports whether a newer target chain was published, in which case the cycle ends
// early and another is scheduled.
func (w *ChainStateWorker) targetChanged(targetChain *model.Chain) bool {
	if w.target.TargetChain() == targetChain {
		return false
	}

	w.worker.NotifyWork()

	return true
}
