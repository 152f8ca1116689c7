// Package sql is a headers.Store on postgres or sqlite.
package sql

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util"
	"github.com/bsv-blockchain/chainstate/util/notify"
	"github.com/bsv-blockchain/chainstate/util/usql"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type SQL struct {
	db        *usql.DB
	engine    util.SQLEngine
	logger    ulogger.Logger
	listeners notify.Listeners[*model.ChainedHeader]
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
	}, nil
}

func createSchema(ctx context.Context, db *usql.DB, engine util.SQLEngine) error {
	blob := "BLOB"
	if engine == util.Postgres {
		blob = "BYTEA"
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chained_headers (
		  hash         `+blob+` PRIMARY KEY
		 ,parent_hash  `+blob+` NOT NULL
		 ,height       BIGINT NOT NULL
		 ,data         `+blob+` NOT NULL
		);
	`); err != nil {
		return errors.NewStorageError("could not create chained_headers table", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chained_headers_parent_hash ON chained_headers (parent_hash);`); err != nil {
		return errors.NewStorageError("could not create idx_chained_headers_parent_hash index", err)
	}

	return nil
}

func (s *SQL) Get(ctx context.Context, hash *chainhash.Hash) (*model.ChainedHeader, error) {
	var data []byte

	if err := s.db.QueryRowContext(ctx, `SELECT data FROM chained_headers WHERE hash = $1`, hash.CloneBytes()).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, errors.NewStorageError("failed to get chained header %s", hash, err)
	}

	ch, err := model.NewChainedHeaderFromBytes(data)
	if err != nil {
		return nil, errors.NewCorruptionError("invalid chained header %s", hash, err)
	}

	return ch, nil
}

func (s *SQL) Add(ctx context.Context, ch *model.ChainedHeader) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO chained_headers (hash, parent_hash, height, data) VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, ch.Hash().CloneBytes(), ch.PreviousHash().CloneBytes(), int64(ch.Height), ch.Bytes())
	if err != nil {
		return false, errors.NewStorageError("failed to add chained header %s", ch.Hash(), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStorageError("failed to read affected rows", err)
	}

	if rows == 0 {
		return false, nil
	}

	s.listeners.Fire(ch)

	return true, nil
}

func (s *SQL) Tips(ctx context.Context) ([]*model.ChainedHeader, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.data FROM chained_headers h
		WHERE NOT EXISTS (SELECT 1 FROM chained_headers c WHERE c.parent_hash = h.hash AND c.height > 0)
		ORDER BY h.height DESC
	`)
	if err != nil {
		return nil, errors.NewStorageError("failed to get chain tips", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var tips []*model.ChainedHeader

	for rows.Next() {
		var data []byte
		if err = rows.Scan(&data); err != nil {
			return nil, errors.NewStorageError("failed to scan chain tip", err)
		}

		ch, err := model.NewChainedHeaderFromBytes(data)
		if err != nil {
			return nil, errors.NewCorruptionError("invalid chained header", err)
		}

		tips = append(tips, ch)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to get chain tips", err)
	}

	return tips, nil
}

func (s *SQL) Subscribe(fn func(*model.ChainedHeader)) func() {
	return s.listeners.Subscribe(fn)
}

func (s *SQL) Health(ctx context.Context, _ bool) (int, string, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return http.StatusFailedDependency, "SQL headers store unavailable", errors.NewStorageError("ping failed", err)
	}

	return http.StatusOK, "SQL headers store available", nil
}

func (s *SQL) Close() error {
	s.listeners.Clear()
	return s.db.Close()
}
