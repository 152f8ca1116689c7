package targetchain

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util/kafka"
	"github.com/bsv-blockchain/chainstate/util/notify"
	"github.com/bsv-blockchain/chainstate/util/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	listeners notify.Listeners[*model.Chain]
}

func (f *fakeNotifier) SubscribeTargetChainChanged(fn func(*model.Chain)) func() {
	return f.listeners.Subscribe(fn)
}

func newMockPublisher(t *testing.T) (*mocks.SyncProducer, *KafkaPublisher) {
	t.Helper()

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true

	mock := mocks.NewSyncProducer(t, config)

	return mock, NewKafkaPublisher(ulogger.TestLogger{}, &kafka.SyncKafkaProducer{
		Producer:   mock,
		Topic:      "targetchain",
		Partitions: 1,
	})
}

func testChain(n int) *model.Chain {
	fake := test.NewFakeHeaders()
	genesis := fake.Genesis()

	builder := model.NewChainForGenesis(genesis).ToBuilder()
	for _, header := range fake.Extend(genesis, n) {
		_ = builder.AddBlock(header)
	}

	return builder.ToImmutable()
}

func TestKafkaPublisher(t *testing.T) {
	t.Run("publishes the tip", func(t *testing.T) {
		mock, publisher := newMockPublisher(t)

		chain := testChain(3)
		tip := chain.LastBlock()

		mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var msg TargetChainMessage
			if err := json.Unmarshal(val, &msg); err != nil {
				return err
			}

			if msg.Hash != tip.Hash().String() || msg.Height != 3 || msg.ChainWork != tip.ChainWork.Text(16) {
				return errors.NewProcessingError("unexpected message %s", val)
			}

			return nil
		})

		require.NoError(t, publisher.Publish(chain))
		require.NoError(t, publisher.Close())
	})

	t.Run("send failure", func(t *testing.T) {
		mock, publisher := newMockPublisher(t)

		mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		err := publisher.Publish(testChain(1))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrKafkaError))

		require.NoError(t, publisher.Close())
	})

	t.Run("follows target chain changes", func(t *testing.T) {
		mock, publisher := newMockPublisher(t)

		sent := make(chan string, 1)

		mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			sent <- string(val)
			return nil
		})

		notifier := &fakeNotifier{}
		publisher.Start(context.Background(), notifier)

		notifier.listeners.Fire(testChain(2))

		select {
		case val := <-sent:
			assert.Contains(t, val, `"height":2`)
		case <-time.After(5 * time.Second):
			t.Fatal("nothing was sent")
		}

		require.NoError(t, publisher.Close())
		assert.Equal(t, 0, notifier.listeners.Len())
	})
}
