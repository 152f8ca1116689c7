package ulogger_test

import (
	"bytes"
	"testing"

	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroLogger(t *testing.T) {
	t.Run("writes to the configured writer", func(t *testing.T) {
		var buf bytes.Buffer

		logger := ulogger.New("test", ulogger.WithWriter(&buf), ulogger.WithLevel("INFO"))
		logger.Infof("hello %s", "world")
		logger.Debugf("not shown")

		assert.Contains(t, buf.String(), "hello world")
		assert.NotContains(t, buf.String(), "not shown")
	})

	t.Run("level", func(t *testing.T) {
		var buf bytes.Buffer

		logger := ulogger.New("test", ulogger.WithWriter(&buf), ulogger.WithLevel("WARN"))
		require.Equal(t, int(zerolog.WarnLevel), logger.LogLevel())

		logger.SetLogLevel("DEBUG")
		require.Equal(t, int(zerolog.DebugLevel), logger.LogLevel())

		logger.Debugf("now shown")
		assert.Contains(t, buf.String(), "now shown")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer

		logger := ulogger.New("store", ulogger.WithWriter(&buf), ulogger.WithLoggerType(ulogger.LoggerTypeJSON))
		logger.New("child").Infof("tip %d", 7)

		assert.Contains(t, buf.String(), `"service":"child"`)
		assert.Contains(t, buf.String(), `"message":"tip 7"`)
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger := ulogger.New("test", ulogger.WithWriter(&bytes.Buffer{}), ulogger.WithLevel("LOUD"))
		require.Equal(t, int(zerolog.InfoLevel), logger.LogLevel())
	})

	t.Run("child logger keeps writer", func(t *testing.T) {
		var buf bytes.Buffer

		logger := ulogger.New("parent", ulogger.WithWriter(&buf))
		child := logger.New("child")
		child.Warnf("from child")

		assert.Contains(t, buf.String(), "from child")
	})

	t.Run("duplicate with another writer", func(t *testing.T) {
		var first, second bytes.Buffer

		logger := ulogger.New("dup", ulogger.WithWriter(&first))
		dup := logger.Duplicate(ulogger.WithWriter(&second))
		dup.Errorf("to second")

		assert.Empty(t, first.String())
		assert.Contains(t, second.String(), "to second")
	})
}

func TestTestLogger(t *testing.T) {
	var logger ulogger.Logger = ulogger.TestLogger{}

	logger.Infof("ignored")
	require.Equal(t, logger, logger.New("other"))
}
