package chainstate

import (
	"github.com/bsv-blockchain/chainstate/errors"
)

// ErrNotInTransaction is returned by every mutation made outside a transaction.
var ErrNotInTransaction = errors.NewStateError("cursor is not in a transaction")

// ErrAlreadyInTransaction is returned by BeginTransaction on a cursor that is already in one.
var ErrAlreadyInTransaction = errors.NewStateError("cursor is already in a transaction")
