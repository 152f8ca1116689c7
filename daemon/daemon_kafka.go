package daemon

import (
	"github.com/bsv-blockchain/chainstate/services/targetchain"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/kafka"
)

// getKafkaTargetChainPublisher returns nil when no target chain topic is configured.
func getKafkaTargetChainPublisher(logger ulogger.Logger, tSettings *settings.Settings) (*targetchain.KafkaPublisher, error) {
	kafkaURL := tSettings.Kafka.TargetChainURL
	if kafkaURL == nil || kafkaURL.Host == "" {
		return nil, nil
	}

	producer, err := kafka.NewKafkaProducer(logger, kafkaURL)
	if err != nil {
		return nil, err
	}

	logger.Infof("[Daemon] publishing target chain to %s", kafkaURL.Redacted())

	return targetchain.NewKafkaPublisher(logger, producer), nil
}
