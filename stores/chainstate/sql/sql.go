// Package sql is a chainstate.Store on postgres or sqlite. Every transaction of a cursor is one
// database transaction, so a block is either applied completely or not at all.
package sql

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util"
	"github.com/bsv-blockchain/chainstate/util/usql"
)

const countersKey = "utxo_counters"

type SQL struct {
	db     *usql.DB
	engine util.SQLEngine
	logger ulogger.Logger
	txLock *chainstate.TxLock
}

func New(ctx context.Context, logger ulogger.Logger, storeURL *url.URL, dataFolder string) (*SQL, error) {
	db, err := util.InitSQLDB(logger, storeURL, dataFolder)
	if err != nil {
		return nil, errors.NewStorageError("failed to init sql db", err)
	}

	engine := util.SQLEngine(storeURL.Scheme)

	if err = createSchema(ctx, db, engine); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQL{
		db:     db,
		engine: engine,
		logger: logger,
		txLock: chainstate.NewTxLock(),
	}, nil
}

func createSchema(ctx context.Context, db *usql.DB, engine util.SQLEngine) error {
	blob := "BLOB"
	if engine == util.Postgres {
		blob = "BYTEA"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS state (
		  key   VARCHAR(32) PRIMARY KEY
		 ,data  ` + blob + ` NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS headers (
		  height  BIGINT PRIMARY KEY
		 ,hash    ` + blob + ` NOT NULL
		 ,data    ` + blob + ` NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_headers_hash ON headers (hash);`,
		`CREATE TABLE IF NOT EXISTS unspent_txes (
		  hash  ` + blob + ` PRIMARY KEY
		 ,data  ` + blob + ` NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS block_spent_txes (
		  height  BIGINT PRIMARY KEY
		 ,data    ` + blob + ` NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS block_unminted_txes (
		  hash  ` + blob + ` PRIMARY KEY
		 ,data  ` + blob + ` NOT NULL
		);`,
	}

	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return errors.NewStorageError("could not create chainstate schema", err)
		}
	}

	return nil
}

func (s *SQL) OpenCursor(ctx context.Context) (chainstate.Cursor, error) {
	c := &Cursor{store: s}

	counters, err := c.readCounters(ctx, s.db)
	if err != nil {
		return nil, err
	}

	c.counters = *counters

	return c, nil
}

func (s *SQL) Health(ctx context.Context, _ bool) (int, string, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return http.StatusFailedDependency, "SQL chainstate store unavailable", errors.NewStorageError("ping failed", err)
	}

	return http.StatusOK, "SQL chainstate store available", nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (c *Cursor) readCounters(ctx context.Context, q querier) (*model.UtxoCounters, error) {
	var data []byte

	err := q.QueryRowContext(ctx, `SELECT data FROM state WHERE key = $1`, countersKey).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.UtxoCounters{}, nil
		}

		return nil, errors.NewStorageError("failed to read utxo counters", err)
	}

	return model.NewUtxoCountersFromBytes(data)
}
