package targetchain

import (
	"context"

	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/headers"
	"github.com/bsv-blockchain/chainstate/stores/invalidblocks"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/notify"
	"github.com/bsv-blockchain/chainstate/util/worker"
	"go.uber.org/atomic"
)

// TargetBlockWorker tracks the candidate block with the most chain work: the best valid header
// among the known tips and the last valid ancestors of invalid tips.
type TargetBlockWorker struct {
	logger        ulogger.Logger
	headers       headers.Store
	invalidBlocks *invalidblocks.Cache
	worker        *worker.Worker

	targetBlock        *atomic.Pointer[model.ChainedHeader]
	targetBlockChanged notify.Listeners[*model.ChainedHeader]
	unsubscribe        []func()
}

func NewTargetBlockWorker(logger ulogger.Logger, headerStore headers.Store, invalidBlocks *invalidblocks.Cache, opts ...worker.Option) *TargetBlockWorker {
	initPrometheusMetrics()

	w := &TargetBlockWorker{
		logger:        logger,
		headers:       headerStore,
		invalidBlocks: invalidBlocks,
		targetBlock:   atomic.NewPointer[model.ChainedHeader](nil),
	}

	w.worker = worker.New("TargetBlockWorker", logger, w.work, append([]worker.Option{worker.WithInitialNotify(true)}, opts...)...)

	w.unsubscribe = []func(){
		headerStore.Subscribe(func(*model.ChainedHeader) {
			w.worker.NotifyWork()
		}),
		invalidBlocks.Subscribe(func(invalidblocks.InvalidBlock) {
			w.worker.NotifyWork()
		}),
	}

	return w
}

// TargetBlock returns the current best candidate, or nil before the first cycle.
func (w *TargetBlockWorker) TargetBlock() *model.ChainedHeader {
	return w.targetBlock.Load()
}

// SubscribeTargetBlockChanged registers fn for every change of the target block.
func (w *TargetBlockWorker) SubscribeTargetBlockChanged(fn func(*model.ChainedHeader)) func() {
	return w.targetBlockChanged.Subscribe(fn)
}

func (w *TargetBlockWorker) Start(ctx context.Context) error {
	return w.worker.Start(ctx)
}

func (w *TargetBlockWorker) Stop() {
	w.worker.Stop()
}

func (w *TargetBlockWorker) NotifyWork() {
	w.worker.NotifyWork()
}

func (w *TargetBlockWorker) WaitForIdle(ctx context.Context) error {
	return w.worker.WaitForIdle(ctx)
}

func (w *TargetBlockWorker) Cycles() uint64 {
	return w.worker.Cycles()
}

func (w *TargetBlockWorker) Close() error {
	for _, unsubscribe := range w.unsubscribe {
		unsubscribe()
	}

	w.worker.Stop()

	return nil
}

func (w *TargetBlockWorker) work(ctx context.Context) error {
	tips, err := w.headers.Tips(ctx)
	if err != nil {
		return err
	}

	current := w.targetBlock.Load()

	var best *model.ChainedHeader

	for _, tip := range tips {
		candidate, err := w.lastValid(ctx, tip)
		if err != nil {
			return err
		}

		if candidate == nil {
			continue
		}

		if best == nil {
			best = candidate
			continue
		}

		switch cmp := candidate.ChainWork.Cmp(best.ChainWork); {
		case cmp > 0:
			best = candidate
		case cmp == 0 && candidate.IsEqual(current):
			// equal work never moves the target away from the current block
			best = candidate
		}
	}

	if best == nil || best.IsEqual(current) {
		return nil
	}

	w.targetBlock.Store(best)

	prometheusTargetBlockChanged.Inc()

	w.logger.Debugf("[TargetBlockWorker] target block changed to %s, chain work %s", best, best.ChainWork.Text(16))

	w.targetBlockChanged.Fire(best)

	return nil
}

// lastValid walks back from tip to the first header that is not marked invalid. It returns nil
// when no such header is stored.
func (w *TargetBlockWorker) lastValid(ctx context.Context, tip *model.ChainedHeader) (*model.ChainedHeader, error) {
	header := tip

	for header != nil && w.invalidBlocks.Contains(*header.Hash()) {
		if header.Height == 0 {
			return nil, nil
		}

		parent, err := w.headers.Get(ctx, header.PreviousHash())
		if err != nil {
			return nil, err
		}

		header = parent
	}

	return header, nil
}
