// Package factory creates the headers.Store named by a store URL.
package factory

import (
	"context"
	"net/url"
	"time"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/stores/headers"
	"github.com/bsv-blockchain/chainstate/stores/headers/memory"
	"github.com/bsv-blockchain/chainstate/stores/headers/sql"
	"github.com/bsv-blockchain/chainstate/ulogger"
)

// NewStore supports memory, sqlite, sqlitememory and postgres store URLs. Persistent stores get a
// ttl cache in front when cacheTTL is positive.
func NewStore(ctx context.Context, logger ulogger.Logger, storeURL *url.URL, dataFolder string, cacheTTL time.Duration, cacheCapacity int) (headers.Store, error) {
	if storeURL == nil {
		return nil, errors.NewConfigurationError("no headers store url configured")
	}

	var store headers.Store

	switch storeURL.Scheme {
	case "memory":
		return memory.New(), nil
	case "postgres", "sqlite", "sqlitememory":
		sqlStore, err := sql.New(ctx, logger, storeURL, dataFolder)
		if err != nil {
			return nil, err
		}

		store = sqlStore
	default:
		return nil, errors.NewConfigurationError("unknown headers store scheme: %s", storeURL.Scheme)
	}

	if cacheTTL <= 0 {
		return store, nil
	}

	return headers.NewCachedStore(store, cacheTTL, cacheCapacity), nil
}
