// Package kafka holds the sarama producer used to publish chain events.
package kafka

import (
	"encoding/binary"
	"net/url"
	"strings"

	"github.com/IBM/sarama"
	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
)

type KafkaProducerI interface {
	Send(key []byte, data []byte) error
	Close() error
}

// SyncKafkaProducer publishes messages synchronously, partitioned by the first 4 bytes of the key.
type SyncKafkaProducer struct {
	Producer   sarama.SyncProducer
	Topic      string
	Partitions int32
}

func (k *SyncKafkaProducer) Close() error {
	if err := k.Producer.Close(); err != nil {
		return errors.NewKafkaError("failed to close Kafka producer", err)
	}

	return nil
}

func (k *SyncKafkaProducer) Send(key []byte, data []byte) error {
	var partition int32

	if k.Partitions > 1 && len(key) >= 4 {
		p, err := safeconversion.Uint32ToInt32(binary.LittleEndian.Uint32(key) % uint32(k.Partitions)) //nolint:gosec // Partitions is positive
		if err != nil {
			return errors.NewKafkaError("invalid partition", err)
		}

		partition = p
	}

	if _, _, err := k.Producer.SendMessage(&sarama.ProducerMessage{
		Topic:     k.Topic,
		Key:       sarama.ByteEncoder(key),
		Value:     sarama.ByteEncoder(data),
		Partition: partition,
	}); err != nil {
		return errors.NewKafkaError("failed to send message to topic %s", k.Topic, err)
	}

	return nil
}

// NewKafkaProducer creates the topic named by the path of kafkaURL, if it does not exist, and connects a producer to it.
// The brokers are the comma separated hosts of kafkaURL. Supported query parameters: partitions, replication,
// retention (ms), flush_bytes.
func NewKafkaProducer(logger ulogger.Logger, kafkaURL *url.URL) (KafkaProducerI, error) {
	brokersURL := strings.Split(kafkaURL.Host, ",")
	topic := strings.TrimPrefix(kafkaURL.Path, "/")

	if topic == "" {
		return nil, errors.NewConfigurationError("kafka url %s has no topic", kafkaURL)
	}

	partitionCount, err := safeconversion.IntToUint32(util.GetQueryParamInt(kafkaURL, "partitions", 1))
	if err != nil {
		return nil, errors.NewConfigurationError("invalid partitions for %s", topic, err)
	}

	partitions, err := safeconversion.Uint32ToInt32(partitionCount)
	if err != nil {
		return nil, errors.NewConfigurationError("invalid partitions for %s", topic, err)
	}

	replicationFactor := util.GetQueryParamInt(kafkaURL, "replication", 1)
	retentionPeriod := util.GetQueryParam(kafkaURL, "retention", "600000")

	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0

	clusterAdmin, err := sarama.NewClusterAdmin(brokersURL, config)
	if err != nil {
		return nil, errors.NewKafkaError("error while creating cluster admin", err)
	}

	defer func() {
		_ = clusterAdmin.Close()
	}()

	if err = clusterAdmin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: int16(replicationFactor), //nolint:gosec // small config value
		ConfigEntries: map[string]*string{
			"retention.ms": &retentionPeriod,
		},
	}, false); err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return nil, errors.NewKafkaError("failed to create topic %s", topic, err)
	}

	producer, err := ConnectProducer(brokersURL, topic, partitions, util.GetQueryParamInt(kafkaURL, "flush_bytes", 1024))
	if err != nil {
		return nil, err
	}

	logger.Infof("[Kafka] producing to %s on %v with %d partitions", topic, brokersURL, partitions)

	return producer, nil
}

func ConnectProducer(brokersURL []string, topic string, partitions int32, flushBytes int) (*SyncKafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Partitioner = sarama.NewManualPartitioner
	config.Producer.Flush.Bytes = flushBytes

	conn, err := sarama.NewSyncProducer(brokersURL, config)
	if err != nil {
		return nil, errors.NewKafkaError("unable to connect to kafka", err)
	}

	return &SyncKafkaProducer{
		Producer:   conn,
		Partitions: partitions,
		Topic:      topic,
	}, nil
}
