// Package factory creates the chainstate.Store named by a store URL.
package factory

import (
	"context"
	"net/url"
	"strings"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/leveldb"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/memory"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/sql"
	"github.com/bsv-blockchain/chainstate/ulogger"
)

// NewStore supports memory, leveldb, sqlite, sqlitememory and postgres store URLs. Relative leveldb
// and sqlite stores live in dataFolder.
func NewStore(ctx context.Context, logger ulogger.Logger, storeURL *url.URL, dataFolder string) (chainstate.Store, error) {
	if storeURL == nil {
		return nil, errors.NewConfigurationError("no chainstate store url configured")
	}

	switch storeURL.Scheme {
	case "memory":
		return memory.New(logger), nil
	case "leveldb":
		name := strings.TrimPrefix(storeURL.Path, "/")
		if name == "" {
			name = "chainstate"
		}

		return leveldb.New(logger, dataFolder, name)
	case "postgres", "sqlite", "sqlitememory":
		return sql.New(ctx, logger, storeURL, dataFolder)
	}

	return nil, errors.NewConfigurationError("unknown chainstate store scheme: %s", storeURL.Scheme)
}
