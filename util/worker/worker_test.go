package worker

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestWorker_NotifyWork(t *testing.T) {
	var calls atomic.Int64

	w := New("test", ulogger.TestLogger{}, func(ctx context.Context) error {
		calls.Inc()
		return nil
	})

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, int64(0), calls.Load())

	w.NotifyWork()

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, w.WaitForIdle(ctx))
	assert.GreaterOrEqual(t, w.Cycles(), uint64(2))
}

func TestWorker_InitialNotify(t *testing.T) {
	ran := make(chan struct{}, 1)

	w := New("test", ulogger.TestLogger{}, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}

		return nil
	}, WithInitialNotify(true))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("initial cycle did not run")
	}
}

func TestWorker_MaxIdleTicker(t *testing.T) {
	force := ticker.NewForce(time.Hour)
	ran := make(chan struct{}, 10)

	w := New("test", ulogger.TestLogger{}, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}, WithTicker(force))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	force.Force <- time.Now()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("tick did not wake the worker")
	}
}

func TestWorker_CoalescesNotifications(t *testing.T) {
	release := make(chan struct{})

	var calls atomic.Int64

	w := New("test", ulogger.TestLogger{}, func(ctx context.Context) error {
		if calls.Inc() == 1 {
			<-release
		}

		return nil
	})

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	w.NotifyWork()

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, time.Millisecond)

	for i := 0; i < 10; i++ {
		w.NotifyWork()
	}

	close(release)

	require.Eventually(t, func() bool {
		return w.Cycles() == 2
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(2), calls.Load())
}

func TestWorker_MinIdleTime(t *testing.T) {
	var calls atomic.Int64

	w := New("test", ulogger.TestLogger{}, func(ctx context.Context) error {
		calls.Inc()
		return nil
	}, WithMinIdleTime(time.Hour))

	require.NoError(t, w.Start(context.Background()))

	w.NotifyWork()

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, time.Millisecond)

	w.NotifyWork()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int64(1), calls.Load())

	// Stop interrupts the idle wait
	w.Stop()
	assert.False(t, w.IsRunning())
}

func TestWorker_StartTwice(t *testing.T) {
	w := New("test", ulogger.TestLogger{}, func(ctx context.Context) error { return nil })

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStateError))
}

func TestWorker_ErrorsDoNotStopTheLoop(t *testing.T) {
	var calls atomic.Int64

	w := New("test", ulogger.TestLogger{}, func(ctx context.Context) error {
		calls.Inc()
		return errors.NewProcessingError("boom")
	})

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	w.NotifyWork()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	w.NotifyWork()

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}
