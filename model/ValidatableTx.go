package model

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// ValidatableTx is an applied transaction with everything script validation needs.
type ValidatableTx struct {
	*BlockTx
	TxHash        chainhash.Hash
	ChainedHeader *ChainedHeader
	PrevTxOutputs []*PrevTxOutput
}

func (v *ValidatableTx) IsCoinbase() bool {
	return v.Index == 0 && v.Tx.IsCoinbase()
}
