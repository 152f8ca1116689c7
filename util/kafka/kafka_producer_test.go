package kafka

import (
	"net/url"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockProducer(t *testing.T, partitions int32) (*mocks.SyncProducer, *SyncKafkaProducer) {
	t.Helper()

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true

	mock := mocks.NewSyncProducer(t, config)

	return mock, &SyncKafkaProducer{
		Producer:   mock,
		Topic:      "targetchain",
		Partitions: partitions,
	}
}

func TestSyncKafkaProducer_Send(t *testing.T) {
	t.Run("sends value", func(t *testing.T) {
		mock, producer := newMockProducer(t, 4)

		mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			if string(val) != "payload" {
				return errors.NewProcessingError("unexpected value %s", val)
			}

			return nil
		})

		require.NoError(t, producer.Send([]byte{5, 0, 0, 0, 9}, []byte("payload")))
		require.NoError(t, producer.Close())
	})

	t.Run("send failure", func(t *testing.T) {
		mock, producer := newMockProducer(t, 1)

		mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		err := producer.Send([]byte("key"), []byte("payload"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrKafkaError))

		require.NoError(t, producer.Close())
	})
}

func TestNewKafkaProducer_NoTopic(t *testing.T) {
	u, err := url.Parse("kafka://localhost:9092")
	require.NoError(t, err)

	_, err = NewKafkaProducer(ulogger.TestLogger{}, u)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}
