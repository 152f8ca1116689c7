// Package targetchain selects the chain the node converges on: the TargetBlockWorker picks the
// best candidate block, the TargetChainWorker builds and publishes the chain leading to it.
package targetchain

import (
	"context"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/stores/headers"
	"github.com/bsv-blockchain/chainstate/stores/invalidblocks"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/notify"
	"github.com/bsv-blockchain/chainstate/util/tracing"
	"github.com/bsv-blockchain/chainstate/util/worker"
	"github.com/looplab/fsm"
	"go.uber.org/atomic"
)

const (
	StateStable        = "STABLE"
	StateRecomputing   = "RECOMPUTING"
	StateRescanPending = "RESCAN_PENDING"

	EventRecompute = "recompute"
	EventRescan    = "rescan"
	EventSettle    = "settle"
)

// TargetChainWorker maintains the target chain: the chain from genesis to the target block,
// stopping short of any block known to be invalid. Readers get an immutable snapshot.
type TargetChainWorker struct {
	logger        ulogger.Logger
	genesis       *model.ChainedHeader
	headers       headers.Store
	invalidBlocks *invalidblocks.Cache

	targetBlockWorker *TargetBlockWorker
	worker            *worker.Worker
	fsm               *fsm.FSM

	rescan      *atomic.Bool
	targetChain *atomic.Pointer[model.Chain]

	targetBlockChanged notify.Listeners[*model.ChainedHeader]
	targetChainChanged notify.Listeners[*model.Chain]
	unsubscribe        []func()
}

// NewTargetChainWorker creates the worker and the TargetBlockWorker it owns and subscribes to the
// header store and the invalid block cache. opts apply to the target chain worker loop only.
func NewTargetChainWorker(logger ulogger.Logger, tSettings *settings.Settings, genesis *model.ChainedHeader,
	headerStore headers.Store, invalidBlocks *invalidblocks.Cache, opts ...worker.Option) *TargetChainWorker {
	initPrometheusMetrics()

	w := &TargetChainWorker{
		logger:            logger,
		genesis:           genesis,
		headers:           headerStore,
		invalidBlocks:     invalidBlocks,
		targetBlockWorker: NewTargetBlockWorker(logger, headerStore, invalidBlocks),
		rescan:            atomic.NewBool(false),
		targetChain:       atomic.NewPointer[model.Chain](nil),
	}

	w.fsm = fsm.NewFSM(
		StateStable,
		fsm.Events{
			{
				Name: EventRecompute,
				Src:  []string{StateStable, StateRescanPending},
				Dst:  StateRecomputing,
			},
			{
				Name: EventRescan,
				Src:  []string{StateStable, StateRecomputing},
				Dst:  StateRescanPending,
			},
			{
				Name: EventSettle,
				Src:  []string{StateRecomputing, StateRescanPending},
				Dst:  StateStable,
			},
		},
		fsm.Callbacks{},
	)

	workerOpts := append([]worker.Option{
		worker.WithInitialNotify(tSettings.TargetChain.InitialNotify),
		worker.WithMinIdleTime(tSettings.TargetChain.MinIdleTime),
		worker.WithMaxIdleTime(tSettings.TargetChain.MaxIdleTime),
	}, opts...)

	w.worker = worker.New("TargetChainWorker", logger, w.work, workerOpts...)

	w.unsubscribe = []func(){
		w.targetBlockWorker.SubscribeTargetBlockChanged(w.handleTargetBlockChanged),
		headerStore.Subscribe(w.handleChainedHeader),
		invalidBlocks.Subscribe(w.handleInvalidBlock),
	}

	return w
}

// TargetChain returns the published target chain, or nil before the first recomputation.
func (w *TargetChainWorker) TargetChain() *model.Chain {
	return w.targetChain.Load()
}

func (w *TargetChainWorker) TargetBlock() *model.ChainedHeader {
	return w.targetBlockWorker.TargetBlock()
}

func (w *TargetChainWorker) State() string {
	return w.fsm.Current()
}

func (w *TargetChainWorker) SubscribeTargetBlockChanged(fn func(*model.ChainedHeader)) func() {
	return w.targetBlockChanged.Subscribe(fn)
}

// SubscribeTargetChainChanged registers fn for every publication that moved the target chain tip.
func (w *TargetChainWorker) SubscribeTargetChainChanged(fn func(*model.Chain)) func() {
	return w.targetChainChanged.Subscribe(fn)
}

func (w *TargetChainWorker) Start(ctx context.Context) error {
	if err := w.targetBlockWorker.Start(ctx); err != nil {
		return err
	}

	if err := w.worker.Start(ctx); err != nil {
		w.targetBlockWorker.Stop()
		return err
	}

	return nil
}

func (w *TargetChainWorker) Stop() {
	w.targetBlockWorker.Stop()
	w.worker.Stop()
}

func (w *TargetChainWorker) NotifyWork() {
	w.worker.NotifyWork()
}

// WaitForIdle waits until both the target block worker and this worker have nothing left to do.
func (w *TargetChainWorker) WaitForIdle(ctx context.Context) error {
	for {
		before := w.targetBlockWorker.Cycles() + w.worker.Cycles()
		targetBlock, targetChain := w.TargetBlock(), w.TargetChain()

		if err := w.targetBlockWorker.WaitForIdle(ctx); err != nil {
			return err
		}

		if err := w.worker.WaitForIdle(ctx); err != nil {
			return err
		}

		// each wait runs one cycle; anything more was triggered by new work
		if w.targetBlockWorker.Cycles()+w.worker.Cycles()-before <= 2 &&
			w.TargetBlock() == targetBlock && w.TargetChain() == targetChain {
			return nil
		}
	}
}

// Close detaches every subscription before stopping the workers.
func (w *TargetChainWorker) Close() error {
	for _, unsubscribe := range w.unsubscribe {
		unsubscribe()
	}

	w.worker.Stop()

	return w.targetBlockWorker.Close()
}

func (w *TargetChainWorker) handleTargetBlockChanged(targetBlock *model.ChainedHeader) {
	w.worker.NotifyWork()
	w.targetBlockChanged.Fire(targetBlock)
}

func (w *TargetChainWorker) handleChainedHeader(*model.ChainedHeader) {
	w.worker.NotifyWork()
}

func (w *TargetChainWorker) handleInvalidBlock(invalidblocks.InvalidBlock) {
	w.rescan.Store(true)
	w.worker.NotifyWork()
}

// event moves the state machine, ignoring events that do not apply to the current state.
func (w *TargetChainWorker) event(ctx context.Context, event string) {
	if !w.fsm.Can(event) {
		return
	}

	if err := w.fsm.Event(ctx, event); err != nil {
		w.logger.Warnf("[TargetChainWorker] %s from %s failed: %v", event, w.fsm.Current(), err)
	}
}

func (w *TargetChainWorker) work(ctx context.Context) error {
	targetChain := w.targetChain.Load()

	if w.rescan.Swap(false) {
		w.event(ctx, EventRescan)
		prometheusTargetChainRescans.Inc()

		w.logger.Infof("[TargetChainWorker] rescanning target chain from genesis")

		targetChain = nil
	}

	targetBlock := w.targetBlockWorker.TargetBlock()

	if targetBlock == nil || (targetChain != nil && targetBlock.IsEqual(targetChain.LastBlock())) {
		w.event(ctx, EventSettle)
		return nil
	}

	w.event(ctx, EventRecompute)

	newTargetChain, err := w.recompute(ctx, targetChain, targetBlock)
	if err != nil {
		w.event(ctx, EventSettle)

		if errors.IsMissingDataError(err) {
			w.logger.Debugf("[TargetChainWorker] waiting for data: %v", err)
			return nil
		}

		return err
	}

	if newTargetChain == nil {
		// a rescan was requested
		return nil
	}

	previous := w.targetChain.Swap(newTargetChain)

	w.event(ctx, EventSettle)

	prometheusTargetChainHeight.Set(float64(newTargetChain.Height()))

	if previous != nil && previous.LastBlock().IsEqual(newTargetChain.LastBlock()) {
		return nil
	}

	prometheusTargetChainChanged.Inc()

	w.logger.Debugf("[TargetChainWorker] winning block %s at height %d, total work %s",
		newTargetChain.LastBlock().Hash(), newTargetChain.Height(), newTargetChain.TotalWork().Text(16))

	w.targetChainChanged.Fire(newTargetChain)

	return nil
}

// recompute moves targetChain, or a chain holding only genesis, towards targetBlock. It returns nil
// when a rewound block turned out to be invalid and a rescan is needed.
func (w *TargetChainWorker) recompute(ctx context.Context, targetChain *model.Chain, targetBlock *model.ChainedHeader) (_ *model.Chain, err error) {
	_, _, endSpan := tracing.Tracer("targetchain").Start(ctx, "TargetChainWorker:recompute",
		tracing.WithHistogram(prometheusTargetChainRecompute),
		tracing.WithTag("target", targetBlock.Hash().String()),
	)
	defer func() {
		endSpan(err)
	}()

	if targetChain == nil {
		targetChain = model.NewChainForGenesis(w.genesis)
	}

	builder := targetChain.ToBuilder()

	path, err := model.GetBlockchainPath(builder.LastBlock(), targetBlock, headers.Lookup(ctx, w.headers))
	if err != nil {
		return nil, err
	}

	for _, rewindBlock := range path.RewindBlocks {
		if w.invalidBlocks.Contains(*rewindBlock.Hash()) {
			w.rescan.Store(true)
			w.event(ctx, EventRescan)
			w.worker.NotifyWork()

			return nil, nil
		}

		if err = builder.RemoveBlock(rewindBlock); err != nil {
			return nil, err
		}
	}

	var invalidAncestor *model.ChainedHeader

	for _, advanceBlock := range path.AdvanceBlocks {
		if invalidAncestor == nil && w.invalidBlocks.Contains(*advanceBlock.Hash()) {
			invalidAncestor = advanceBlock
		}

		if invalidAncestor == nil {
			if err = builder.AddBlock(advanceBlock); err != nil {
				return nil, err
			}

			continue
		}

		if !advanceBlock.IsEqual(invalidAncestor) &&
			w.invalidBlocks.TryAdd(*advanceBlock.Hash(), "descends from invalid block "+invalidAncestor.Hash().String()) {
			prometheusTargetChainPoisoned.Inc()
		}
	}

	return builder.ToImmutable(), nil
}
