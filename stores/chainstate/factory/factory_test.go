package factory

import (
	"context"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/leveldb"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/memory"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/sql"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		url      string
		expected interface{}
	}{
		{"memory:///", &memory.Memory{}},
		{"leveldb:///chainstate", &leveldb.LevelDB{}},
		{"sqlitememory:///chainstate", &sql.SQL{}},
		{"sqlite:///chainstate", &sql.SQL{}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			storeURL, err := url.Parse(tt.url)
			require.NoError(t, err)

			store, err := NewStore(context.Background(), ulogger.TestLogger{}, storeURL, t.TempDir())
			require.NoError(t, err)

			defer func() {
				require.NoError(t, store.Close())
			}()

			assert.IsType(t, tt.expected, store)
		})
	}

	t.Run("unknown scheme", func(t *testing.T) {
		storeURL, err := url.Parse("aerospike://localhost:3000/test")
		require.NoError(t, err)

		_, err = NewStore(context.Background(), ulogger.TestLogger{}, storeURL, t.TempDir())
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})

	t.Run("nil url", func(t *testing.T) {
		_, err := NewStore(context.Background(), ulogger.TestLogger{}, nil, "")
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}
