package chainstate

import (
	"context"

	"github.com/bsv-blockchain/chainstate/errors"
)

// TxLock serialises the transactions of all cursors of a store.
type TxLock struct {
	ch chan struct{}
}

func NewTxLock() *TxLock {
	return &TxLock{ch: make(chan struct{}, 1)}
}

// Lock waits for the lock or for ctx to be done.
func (l *TxLock) Lock(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.NewContextCanceledError("waiting for chain state transaction", ctx.Err())
	}
}

func (l *TxLock) Unlock() {
	<-l.ch
}
