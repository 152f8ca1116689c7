// Package daemon wires the stores and workers of a chain state node together from settings.
package daemon

import (
	"context"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	chainstateservice "github.com/bsv-blockchain/chainstate/services/chainstate"
	"github.com/bsv-blockchain/chainstate/services/targetchain"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/stores/blocktxes"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	chainstatefactory "github.com/bsv-blockchain/chainstate/stores/chainstate/factory"
	"github.com/bsv-blockchain/chainstate/stores/headers"
	headersfactory "github.com/bsv-blockchain/chainstate/stores/headers/factory"
	"github.com/bsv-blockchain/chainstate/stores/invalidblocks"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/health"
	"github.com/bsv-blockchain/chainstate/util/tracing"
	"github.com/bsv-blockchain/chainstate/util/worker"
)

// Daemon owns every component of a node's chain state. Blocks are handed in with AddBlock; the
// target chain and chain state workers do the rest in the background.
type Daemon struct {
	logger        ulogger.Logger
	loggerFactory func(serviceName string) ulogger.Logger
	settings      *settings.Settings
	genesis       *model.ChainedHeader
	workerOptions []worker.Option

	chainStateStore chainstate.Store
	headers         headers.Store
	invalidBlocks   *invalidblocks.Cache
	blockTxes       *blocktxes.Memory

	builder        *chainstateservice.ChainStateBuilder
	targetChain    *targetchain.TargetChainWorker
	chainState     *chainstateservice.ChainStateWorker
	kafkaPublisher *targetchain.KafkaPublisher
}

// New opens the stores named in tSettings and creates the workers without starting them.
func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, opts ...Option) (_ *Daemon, err error) {
	d := &Daemon{
		logger:        logger,
		settings:      tSettings,
		invalidBlocks: invalidblocks.New(),
		blockTxes:     blocktxes.NewMemory(),
	}

	d.loggerFactory = func(serviceName string) ulogger.Logger {
		return logger.New(serviceName)
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.genesis == nil {
		if d.genesis, err = model.GenesisChainedHeader(tSettings.ChainCfgParams); err != nil {
			return nil, errors.NewConfigurationError("invalid genesis block for %s", tSettings.ChainCfgParams.Name, err)
		}
	}

	defer func() {
		if err != nil {
			d.closeStores()
		}
	}()

	if d.chainStateStore, err = chainstatefactory.NewStore(ctx, d.loggerFactory("csstore"), tSettings.ChainState.StoreURL, tSettings.DataFolder); err != nil {
		return nil, err
	}

	if d.headers, err = headersfactory.NewStore(ctx, d.loggerFactory("headers"), tSettings.Headers.StoreURL, tSettings.DataFolder,
		tSettings.Headers.CacheTTL, tSettings.Headers.CacheCapacity); err != nil {
		return nil, err
	}

	if _, err = d.headers.Add(ctx, d.genesis); err != nil {
		return nil, err
	}

	if d.builder, err = chainstateservice.NewChainStateBuilder(ctx, d.loggerFactory("csbuild"), tSettings, d.chainStateStore, d.genesis); err != nil {
		return nil, err
	}

	d.targetChain = targetchain.NewTargetChainWorker(d.loggerFactory("target"), tSettings, d.genesis, d.headers, d.invalidBlocks, d.workerOptions...)
	d.chainState = chainstateservice.NewChainStateWorker(d.loggerFactory("chainst"), tSettings, d.builder, d.targetChain,
		d.headers, d.blockTxes, d.invalidBlocks, d.workerOptions...)

	if d.kafkaPublisher, err = getKafkaTargetChainPublisher(d.loggerFactory("kafka"), tSettings); err != nil {
		return nil, err
	}

	return d, nil
}

// Start starts tracing, when enabled, and the workers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.settings.Tracing.Enabled {
		if err := tracing.InitTracer(d.loggerFactory("tracing"), d.settings); err != nil {
			return err
		}
	}

	if d.kafkaPublisher != nil {
		d.kafkaPublisher.Start(ctx, d.targetChain)
	}

	if err := d.targetChain.Start(ctx); err != nil {
		return err
	}

	if err := d.chainState.Start(ctx); err != nil {
		d.targetChain.Stop()
		return err
	}

	d.logger.Infof("[Daemon] started at chain state %s", d.builder.Chain().LastBlock())

	return nil
}

// AddBlock makes block available to the workers. Its parent header must already be known.
func (d *Daemon) AddBlock(ctx context.Context, block *model.Block) (*model.ChainedHeader, error) {
	// transactions first, so that the chain state worker never sees a header without them
	d.blockTxes.AddBlock(block)

	header, err := headers.AddHeader(ctx, d.headers, block.Header)
	if err != nil {
		d.blockTxes.Remove(*block.Header.Hash())
		return nil, err
	}

	return header, nil
}

// WaitForIdle waits until the chain state has caught up with the target chain, or a block on the
// way there turned out to be invalid and both workers have settled.
func (d *Daemon) WaitForIdle(ctx context.Context) error {
	for {
		if err := d.targetChain.WaitForIdle(ctx); err != nil {
			return err
		}

		before := d.chainState.Chain()

		if err := d.chainState.WaitForIdle(ctx); err != nil {
			return err
		}

		targetChain := d.targetChain.TargetChain()
		chainState := d.chainState.Chain()

		if targetChain == nil || chainState.LastBlock().IsEqual(targetChain.LastBlock()) || chainState == before {
			return nil
		}
	}
}

func (d *Daemon) Genesis() *model.ChainedHeader {
	return d.genesis
}

func (d *Daemon) TargetChain() *model.Chain {
	return d.targetChain.TargetChain()
}

func (d *Daemon) ChainState() *model.Chain {
	return d.builder.Chain()
}

func (d *Daemon) Counters() *model.UtxoCounters {
	return d.builder.Counters()
}

func (d *Daemon) InvalidBlocks() *invalidblocks.Cache {
	return d.invalidBlocks
}

func (d *Daemon) TargetChainState() string {
	return d.targetChain.State()
}

// SubscribeChainStateChanged registers fn for every change of the chain state.
func (d *Daemon) SubscribeChainStateChanged(fn func(*model.Chain)) func() {
	return d.chainState.SubscribeChainStateChanged(fn)
}

// Health checks the stores.
func (d *Daemon) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	return health.CheckAll(ctx, checkLiveness, []health.Check{
		{Name: "ChainStateStore", Check: d.chainStateStore.Health},
		{Name: "HeaderStore", Check: d.headers.Health},
	})
}

// Close stops the workers, detaching them from the stores first, and closes the stores.
func (d *Daemon) Close(ctx context.Context) error {
	var errs []error

	if d.kafkaPublisher != nil {
		if err := d.kafkaPublisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := d.chainState.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := d.targetChain.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := d.builder.Close(); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, d.closeStores()...)

	if d.settings.Tracing.Enabled {
		if err := tracing.ShutdownTracer(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.NewServiceError("failed to close daemon", errors.Join(errs...))
	}

	return nil
}

func (d *Daemon) closeStores() []error {
	var errs []error

	if d.headers != nil {
		if err := d.headers.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if d.chainStateStore != nil {
		if err := d.chainStateStore.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}
