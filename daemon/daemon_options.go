package daemon

import (
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/worker"
)

// Option is a functional option type for configuring the Daemon.
type Option func(*Daemon)

// WithLoggerFactory provides a custom logger factory for the Daemon and its workers.
func WithLoggerFactory(factory func(serviceName string) ulogger.Logger) Option {
	return func(d *Daemon) {
		d.loggerFactory = factory
	}
}

// WithGenesis starts the chain at genesis instead of the genesis block of the configured network.
func WithGenesis(genesis *model.ChainedHeader) Option {
	return func(d *Daemon) {
		d.genesis = genesis
	}
}

// WithWorkerOptions is applied to both the target chain and the chain state worker loops.
func WithWorkerOptions(opts ...worker.Option) Option {
	return func(d *Daemon) {
		d.workerOptions = append(d.workerOptions, opts...)
	}
}
