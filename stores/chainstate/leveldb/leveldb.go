// Package leveldb is a chainstate.Store on goleveldb. A cursor transaction is a leveldb transaction.
package leveldb

import (
	"context"
	"encoding/binary"
	"net/http"
	"path/filepath"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/btcsuite/goleveldb/leveldb"
	ldberrors "github.com/btcsuite/goleveldb/leveldb/errors"
	"github.com/btcsuite/goleveldb/leveldb/iterator"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	"github.com/btcsuite/goleveldb/leveldb/storage"
	"github.com/btcsuite/goleveldb/leveldb/util"
)

// key prefixes
var (
	prefixHeader    = []byte("h")
	prefixUnspent   = []byte("u")
	prefixSpentTxes = []byte("s")
	prefixUnminted  = []byte("m")
	keyCounters     = []byte("c")
)

type LevelDB struct {
	db     *leveldb.DB
	logger ulogger.Logger
	txLock *chainstate.TxLock
}

// New opens or creates the database in dataFolder/name.
func New(logger ulogger.Logger, dataFolder, name string) (*LevelDB, error) {
	dbPath := filepath.Join(dataFolder, name)

	db, err := leveldb.OpenFile(dbPath, &opt.Options{
		Compression: opt.NoCompression,
	})
	if err != nil {
		return nil, convertErr("failed to open leveldb at "+dbPath, err)
	}

	logger.Infof("Using leveldb chainstate at %s", dbPath)

	return newLevelDB(logger, db), nil
}

// NewMemory returns a store backed by leveldb's in memory storage.
func NewMemory(logger ulogger.Logger) (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, convertErr("failed to open memory leveldb", err)
	}

	return newLevelDB(logger, db), nil
}

func newLevelDB(logger ulogger.Logger, db *leveldb.DB) *LevelDB {
	return &LevelDB{
		db:     db,
		logger: logger,
		txLock: chainstate.NewTxLock(),
	}
}

func (l *LevelDB) OpenCursor(_ context.Context) (chainstate.Cursor, error) {
	return &Cursor{store: l}, nil
}

func (l *LevelDB) Health(_ context.Context, _ bool) (int, string, error) {
	if _, err := l.db.GetProperty("leveldb.stats"); err != nil {
		return http.StatusFailedDependency, "LevelDB chainstate store unavailable", convertErr("health check failed", err)
	}

	return http.StatusOK, "LevelDB chainstate store available", nil
}

func (l *LevelDB) Close() error {
	if err := l.db.Close(); err != nil {
		return convertErr("failed to close leveldb", err)
	}

	return nil
}

// convertErr maps leveldb errors onto storage and corruption errors.
func convertErr(message string, err error) error {
	switch {
	case errors.Is(err, leveldb.ErrClosed), errors.Is(err, leveldb.ErrSnapshotReleased), errors.Is(err, leveldb.ErrIterReleased):
		return errors.NewStateError(message, err)
	case ldberrors.IsCorrupted(err):
		return errors.NewCorruptionError(message, err)
	}

	return errors.NewStorageError(message, err)
}

// reader is implemented by both *leveldb.DB and *leveldb.Transaction.
type reader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

func heightKey(prefix []byte, height uint32) []byte {
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.BigEndian.PutUint32(key[len(prefix):], height)

	return key
}

func hashKey(prefix []byte, hash []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(hash))
	key = append(key, prefix...)

	return append(key, hash...)
}

func readCounters(r reader) (*model.UtxoCounters, error) {
	data, err := r.Get(keyCounters, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return &model.UtxoCounters{}, nil
		}

		return nil, convertErr("failed to read utxo counters", err)
	}

	return model.NewUtxoCountersFromBytes(data)
}
