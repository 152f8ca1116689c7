// Package chainstate applies blocks to, and rolls blocks back from, the UTXO set held by a
// chainstate.Cursor, and keeps the chain state in step with the target chain.
package chainstate

import (
	"context"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/bsv-blockchain/chainstate/util"
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"golang.org/x/sync/errgroup"
)

type dupeCoinbase struct {
	height uint32
	hash   chainhash.Hash
}

// two coinbases were mined twice before duplicate transactions were disallowed; their first
// occurrence is never minted so it never has to be removed again
var dupeCoinbases = []dupeCoinbase{
	{height: 91722, hash: mustHash("e3bf3d07d4b0375638d5f1db5255fe07ba2c4cb067cd81b84ee974b6585fb468")},
	{height: 91812, hash: mustHash("d5d27987d2a3dfc724e359870c6644b40e497bdc0589a033220fe15429d88599")},
}

func mustHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}

	return *h
}

// IsDupeCoinbase reports whether the coinbase txHash at header is one of the two historic duplicates.
func IsDupeCoinbase(header *model.ChainedHeader, txHash *chainhash.Hash, isCoinbase bool) bool {
	if !isCoinbase {
		return false
	}

	for _, dupe := range dupeCoinbases {
		if header.Height == dupe.height && txHash.IsEqual(&dupe.hash) {
			return true
		}
	}

	return false
}

// skipMint reports whether the outputs of a transaction stay out of the UTXO set.
func skipMint(header *model.ChainedHeader, txHash *chainhash.Hash, isCoinbase bool) bool {
	return header.Height == 0 || IsDupeCoinbase(header, txHash, isCoinbase)
}

// UtxoBuilder is the UTXO state transition engine. It is stateless; all state lives in the cursor
// passed to each call, which must be inside a transaction.
type UtxoBuilder struct {
	logger             ulogger.Logger
	prepareConcurrency int
	prepareBufferSize  int
}

func NewUtxoBuilder(logger ulogger.Logger, prepareConcurrency, prepareBufferSize int) *UtxoBuilder {
	initPrometheusMetrics()

	if prepareBufferSize <= 0 {
		prepareBufferSize = 1
	}

	return &UtxoBuilder{
		logger:             logger,
		prepareConcurrency: prepareConcurrency,
		prepareBufferSize:  prepareBufferSize,
	}
}

// preparedTx is everything about a block transaction that can be computed without the cursor.
type preparedTx struct {
	blockTx    *model.BlockTx
	txHash     chainhash.Hash
	isCoinbase bool
	inputs     []model.TxOutputKey

	done chan struct{}
}

func (p *preparedTx) prepare(ctx context.Context) error {
	defer close(p.done)

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := p.blockTx.Tx
	p.txHash = *tx.TxIDChainHash()
	p.isCoinbase = p.blockTx.Index == 0 && tx.IsCoinbase()

	if !p.isCoinbase {
		p.inputs = make([]model.TxOutputKey, len(tx.Inputs))
		for i, input := range tx.Inputs {
			p.inputs[i] = model.NewTxOutputKeyFromInput(input)
		}
	}

	return nil
}

// prepareTxs prepares blockTxs concurrently and delivers them on the returned channel in block
// order. The returned wait function must be called once the channel has been drained or abandoned;
// abandoning requires canceling ctx first.
func (u *UtxoBuilder) prepareTxs(ctx context.Context, blockTxs []*model.BlockTx) (<-chan *preparedTx, func() error) {
	g, gCtx := errgroup.WithContext(ctx)
	util.SafeSetLimit(g, u.prepareConcurrency)

	prepared := make(chan *preparedTx, u.prepareBufferSize)
	producerDone := make(chan struct{})

	go func() {
		defer close(producerDone)
		defer close(prepared)

		for _, blockTx := range blockTxs {
			p := &preparedTx{blockTx: blockTx, done: make(chan struct{})}

			select {
			case prepared <- p:
			case <-gCtx.Done():
				return
			}

			g.Go(func() error {
				return p.prepare(gCtx)
			})
		}
	}()

	return prepared, func() error {
		<-producerDone
		return g.Wait()
	}
}

func contextError(ctx context.Context, header *model.ChainedHeader) error {
	return errors.NewContextCanceledError("processing of block %s canceled", header, ctx.Err())
}

// CalculateUtxo applies blockTxs, in block order, to the UTXO set for the last block of chain and
// stores the block's spent tx ledger. Validation failures are ERR_BLOCK_INVALID errors; the caller
// must then roll the cursor transaction back.
func (u *UtxoBuilder) CalculateUtxo(ctx context.Context, cursor chainstate.Cursor, chain *model.Chain, blockTxs []*model.BlockTx) ([]*model.ValidatableTx, error) {
	header := chain.LastBlock()
	if header == nil {
		return nil, errors.NewInvalidArgumentError("cannot calculate utxo for an empty chain")
	}

	if !cursor.InTransaction() {
		return nil, errors.NewStateError("[CalculateUtxo][%s] cursor is not in a transaction", header)
	}

	prepareCtx, cancel := context.WithCancel(ctx)

	prepared, wait := u.prepareTxs(prepareCtx, blockTxs)

	defer func() {
		cancel()

		for range prepared { //nolint:revive // drain
		}

		_ = wait()
	}()

	ledger := model.NewBlockSpentTxesBuilder()
	validatableTxs := make([]*model.ValidatableTx, 0, len(blockTxs))

	for p := range prepared {
		select {
		case <-p.done:
		case <-ctx.Done():
			return nil, contextError(ctx, header)
		}

		if ctx.Err() != nil {
			return nil, contextError(ctx, header)
		}

		validatableTx, err := u.applyTx(cursor, p, header, ledger)
		if err != nil {
			return nil, err
		}

		validatableTxs = append(validatableTxs, validatableTx)
	}

	if err := wait(); err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx, header)
		}

		return nil, errors.NewProcessingError("[CalculateUtxo][%s] failed to prepare transactions", header, err)
	}

	if len(validatableTxs) != len(blockTxs) {
		return nil, contextError(ctx, header)
	}

	ok, err := cursor.TryAddBlockSpentTxes(header.Height, ledger.ToImmutable())
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, validationError(header, errors.NewStorageError("spent txes for height %d already exist", header.Height))
	}

	return validatableTxs, nil
}

func (u *UtxoBuilder) applyTx(cursor chainstate.Cursor, p *preparedTx, header *model.ChainedHeader, ledger *model.BlockSpentTxesBuilder) (*model.ValidatableTx, error) {
	tx := p.blockTx.Tx
	prevTxOutputs := make([]*model.PrevTxOutput, 0, len(p.inputs))

	for _, key := range p.inputs {
		unspentTx, err := u.spend(cursor, key, header, ledger)
		if err != nil {
			return nil, err
		}

		prevTxOutput, err := unspentTx.GetPrevTxOutput(key)
		if err != nil {
			return nil, errors.NewCorruptionError("[CalculateUtxo][%s] spent output %s vanished", header, key, err)
		}

		prevTxOutputs = append(prevTxOutputs, prevTxOutput)
	}

	if !skipMint(header, &p.txHash, p.isCoinbase) {
		if err := u.mint(cursor, tx, &p.txHash, p.blockTx.Index, p.isCoinbase, header); err != nil {
			return nil, err
		}

		counters := cursor.Counters()
		counters.UnspentOutputCount += int64(len(tx.Outputs))
		counters.UnspentTxCount++
		counters.TotalTxCount++
		counters.TotalInputCount += int64(len(tx.Inputs))
		counters.TotalOutputCount += int64(len(tx.Outputs))
	}

	return &model.ValidatableTx{
		BlockTx:       p.blockTx,
		TxHash:        p.txHash,
		ChainedHeader: header,
		PrevTxOutputs: prevTxOutputs,
	}, nil
}

// Mint adds every output of tx to the UTXO set.
func (u *UtxoBuilder) Mint(cursor chainstate.Cursor, tx *bt.Tx, txIndex uint32, header *model.ChainedHeader) error {
	return u.mint(cursor, tx, tx.TxIDChainHash(), txIndex, txIndex == 0 && tx.IsCoinbase(), header)
}

func (u *UtxoBuilder) mint(cursor chainstate.Cursor, tx *bt.Tx, txHash *chainhash.Hash, txIndex uint32, isCoinbase bool, header *model.ChainedHeader) error {
	unspentTx := model.NewUnspentTx(*txHash, header.Height, txIndex, tx.Version, isCoinbase, tx.Outputs)

	ok, err := cursor.TryAddUnspentTx(unspentTx)
	if err != nil {
		return err
	}

	if !ok {
		u.logger.Warnf("[Mint][%s] duplicate transaction %s", header, txHash)
		return validationError(header, errors.NewTxAlreadyExistsError("transaction %s already exists", txHash))
	}

	return nil
}

// Spend marks the output referenced by input spent and returns the updated entry. A fully spent
// entry is removed from the UTXO set and recorded in ledger.
func (u *UtxoBuilder) Spend(cursor chainstate.Cursor, input *bt.Input, header *model.ChainedHeader, ledger *model.BlockSpentTxesBuilder) (*model.UnspentTx, error) {
	return u.spend(cursor, model.NewTxOutputKeyFromInput(input), header, ledger)
}

func (u *UtxoBuilder) spend(cursor chainstate.Cursor, key model.TxOutputKey, header *model.ChainedHeader, ledger *model.BlockSpentTxesBuilder) (*model.UnspentTx, error) {
	unspentTx, ok, err := cursor.TryGetUnspentTx(&key.TxHash)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, validationError(header, errors.NewTxMissingOutputError("output %s is not in the utxo set", key))
	}

	if int64(key.TxOutputIndex) >= int64(unspentTx.OutputCount()) {
		return nil, validationError(header, errors.NewTxOutputOutOfRangeError("output %s out of range, tx has %d outputs", key, unspentTx.OutputCount()))
	}

	if unspentTx.OutputStates[key.TxOutputIndex] == model.OutputStateSpent {
		return nil, validationError(header, errors.NewTxInvalidDoubleSpendError("output %s is already spent", key))
	}

	unspentTx = unspentTx.SetOutputState(int(key.TxOutputIndex), model.OutputStateSpent)

	counters := cursor.Counters()
	counters.UnspentOutputCount--

	if unspentTx.IsFullySpent() {
		if ok, err = cursor.TryRemoveUnspentTx(&key.TxHash); err != nil {
			return nil, err
		}

		if !ok {
			return nil, validationError(header, errors.NewStorageError("failed to remove fully spent tx %s", key.TxHash))
		}

		ledger.AddSpentTx(unspentTx.ToSpentTx())

		counters.UnspentTxCount--

		return unspentTx, nil
	}

	if ok, err = cursor.TryUpdateUnspentTx(unspentTx); err != nil {
		return nil, err
	}

	if !ok {
		return nil, validationError(header, errors.NewStorageError("failed to update tx %s", key.TxHash))
	}

	return unspentTx, nil
}

// RollbackUtxo undoes blockTxs, which must be the transactions header was applied with, and
// returns the replay records of the unminted transactions in processing order, last tx first.
func (u *UtxoBuilder) RollbackUtxo(ctx context.Context, cursor chainstate.Cursor, header *model.ChainedHeader, blockTxs []*model.BlockTx) ([]*model.UnmintedTx, error) {
	if !cursor.InTransaction() {
		return nil, errors.NewStateError("[RollbackUtxo][%s] cursor is not in a transaction", header)
	}

	ledger, _, err := cursor.TryGetBlockSpentTxes(header.Height)
	if err != nil {
		return nil, err
	}

	unmintedTxs := make([]*model.UnmintedTx, 0, len(blockTxs))

	for i := len(blockTxs) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return nil, contextError(ctx, header)
		}

		blockTx := blockTxs[i]
		tx := blockTx.Tx
		txHash := tx.TxIDChainHash()
		isCoinbase := blockTx.Index == 0 && tx.IsCoinbase()

		if !skipMint(header, txHash, isCoinbase) {
			if err = u.unmint(cursor, txHash, header); err != nil {
				return nil, err
			}

			counters := cursor.Counters()
			counters.UnspentOutputCount -= int64(len(tx.Outputs))
			counters.UnspentTxCount--
			counters.TotalTxCount--
			counters.TotalInputCount -= int64(len(tx.Inputs))
			counters.TotalOutputCount -= int64(len(tx.Outputs))
		}

		var prevTxOutputs []*model.PrevTxOutput

		if !isCoinbase {
			prevTxOutputs = make([]*model.PrevTxOutput, 0, len(tx.Inputs))

			for j := len(tx.Inputs) - 1; j >= 0; j-- {
				key := model.NewTxOutputKeyFromInput(tx.Inputs[j])

				unspentTx, err := u.unspend(cursor, key, header, ledger)
				if err != nil {
					return nil, err
				}

				prevTxOutput, err := unspentTx.GetPrevTxOutput(key)
				if err != nil {
					return nil, errors.NewCorruptionError("[RollbackUtxo][%s] restored output %s vanished", header, key, err)
				}

				prevTxOutputs = append(prevTxOutputs, prevTxOutput)
			}

			// collected last input first
			for a, b := 0, len(prevTxOutputs)-1; a < b; a, b = a+1, b-1 {
				prevTxOutputs[a], prevTxOutputs[b] = prevTxOutputs[b], prevTxOutputs[a]
			}
		}

		unmintedTxs = append(unmintedTxs, &model.UnmintedTx{
			TxHash:        *txHash,
			PrevTxOutputs: prevTxOutputs,
		})
	}

	return unmintedTxs, nil
}

// Unmint removes tx from the UTXO set. Every output must be unspent.
func (u *UtxoBuilder) Unmint(cursor chainstate.Cursor, tx *bt.Tx, header *model.ChainedHeader) error {
	return u.unmint(cursor, tx.TxIDChainHash(), header)
}

func (u *UtxoBuilder) unmint(cursor chainstate.Cursor, txHash *chainhash.Hash, header *model.ChainedHeader) error {
	unspentTx, ok, err := cursor.TryGetUnspentTx(txHash)
	if err != nil {
		return err
	}

	if !ok {
		u.logger.Warnf("[Unmint][%s] missing transaction %s", header, txHash)
		return validationError(header, errors.NewTxNotFoundError("transaction %s is not in the utxo set", txHash))
	}

	if !unspentTx.IsFullyUnspent() {
		return validationError(header, errors.NewTxInvalidError("transaction %s has spent outputs %v", txHash, unspentTx.OutputStates))
	}

	if ok, err = cursor.TryRemoveUnspentTx(txHash); err != nil {
		return err
	}

	if !ok {
		return validationError(header, errors.NewStorageError("failed to remove tx %s", txHash))
	}

	return nil
}

// Unspend marks the output referenced by input unspent again. An entry that was fully spent is
// restored from ledger, the spent tx ledger of header's block.
func (u *UtxoBuilder) Unspend(cursor chainstate.Cursor, input *bt.Input, header *model.ChainedHeader, ledger model.BlockSpentTxes) (*model.UnspentTx, error) {
	return u.unspend(cursor, model.NewTxOutputKeyFromInput(input), header, ledger)
}

func (u *UtxoBuilder) unspend(cursor chainstate.Cursor, key model.TxOutputKey, header *model.ChainedHeader, ledger model.BlockSpentTxes) (*model.UnspentTx, error) {
	unspentTx, ok, err := cursor.TryGetUnspentTx(&key.TxHash)
	if err != nil {
		return nil, err
	}

	restored := false

	if !ok {
		spentTx, found := ledger.Find(&key.TxHash)
		if !found {
			return nil, errors.NewUtxoPrunedError("[Unspend][%s] tx %s has been pruned", header, key.TxHash)
		}

		unspentTx = spentTx.ToUnspentTx()
		restored = true
	}

	if int64(key.TxOutputIndex) >= int64(unspentTx.OutputCount()) {
		return nil, errors.NewCorruptionError("[Unspend][%s] output %s out of range, tx has %d outputs", header, key, unspentTx.OutputCount())
	}

	if unspentTx.OutputStates[key.TxOutputIndex] == model.OutputStateUnspent {
		return nil, validationError(header, errors.NewTxInvalidError("output %s is not spent", key))
	}

	wasFullySpent := unspentTx.IsFullySpent()

	unspentTx = unspentTx.SetOutputState(int(key.TxOutputIndex), model.OutputStateUnspent)

	if restored {
		ok, err = cursor.TryAddUnspentTx(unspentTx)
	} else {
		ok, err = cursor.TryUpdateUnspentTx(unspentTx)
	}

	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, validationError(header, errors.NewStorageError("failed to store tx %s", key.TxHash))
	}

	counters := cursor.Counters()
	counters.UnspentOutputCount++

	if wasFullySpent {
		counters.UnspentTxCount++
	}

	return unspentTx, nil
}

func validationError(header *model.ChainedHeader, cause error) error {
	prometheusChainStateValidationFailures.Inc()
	return errors.NewBlockValidationError(header.Hash().String(), header.Height, cause)
}
