package targetchain

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/kafka"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/atomic"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TargetChainMessage is the Kafka payload describing a new target chain tip.
type TargetChainMessage struct {
	Hash      string `json:"hash"`
	Height    uint32 `json:"height"`
	ChainWork string `json:"chainwork"`
}

// KafkaPublisher sends the tip of every published target chain to Kafka, keyed by block hash.
// Tips published faster than they can be sent are coalesced; only the latest is sent.
type KafkaPublisher struct {
	logger   ulogger.Logger
	producer kafka.KafkaProducerI

	latest   *atomic.Pointer[model.Chain]
	notifyCh chan struct{}

	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewKafkaPublisher(logger ulogger.Logger, producer kafka.KafkaProducerI) *KafkaPublisher {
	initPrometheusMetrics()

	return &KafkaPublisher{
		logger:   logger,
		producer: producer,
		latest:   atomic.NewPointer[model.Chain](nil),
		notifyCh: make(chan struct{}, 1),
	}
}

type TargetChainNotifier interface {
	SubscribeTargetChainChanged(fn func(*model.Chain)) func()
}

// Start subscribes to the target chain of source and sends until ctx is done or Close is called.
func (p *KafkaPublisher) Start(ctx context.Context, source TargetChainNotifier) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.unsubscribe = source.SubscribeTargetChainChanged(func(chain *model.Chain) {
		p.latest.Store(chain)

		select {
		case p.notifyCh <- struct{}{}:
		default:
		}
	})

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.notifyCh:
				if err := p.Publish(p.latest.Load()); err != nil {
					p.logger.Errorf("[KafkaPublisher] %v", err)
				}
			}
		}
	}()
}

// Publish sends the tip of chain.
func (p *KafkaPublisher) Publish(chain *model.Chain) error {
	tip := chain.LastBlock()
	if tip == nil {
		return nil
	}

	data, err := json.Marshal(&TargetChainMessage{
		Hash:      tip.Hash().String(),
		Height:    tip.Height,
		ChainWork: tip.ChainWork.Text(16),
	})
	if err != nil {
		return errors.NewProcessingError("failed to encode target chain %s", tip, err)
	}

	if err = p.producer.Send(tip.Hash().CloneBytes(), data); err != nil {
		prometheusTargetChainKafkaErrors.Inc()
		return err
	}

	prometheusTargetChainKafkaPublished.Inc()

	return nil
}

// Close unsubscribes, stops the send loop and closes the producer.
func (p *KafkaPublisher) Close() error {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}

	if p.cancel != nil {
		p.cancel()
	}

	p.wg.Wait()

	return p.producer.Close()
}
