package errors

import (
	"fmt"
)

// BlockInvalidErrData scopes a validation failure to the block that caused it.
type BlockInvalidErrData struct {
	BlockHash   string `json:"block_hash"`
	BlockHeight uint32 `json:"block_height"`
}

func (e *BlockInvalidErrData) Error() string {
	return fmt.Sprintf("block %s at height %d is invalid", e.BlockHash, e.BlockHeight)
}

func (e *BlockInvalidErrData) SetData(key string, value interface{}) {
	switch key {
	case "block_hash":
		if s, ok := value.(string); ok {
			e.BlockHash = s
		}
	case "block_height":
		if h, ok := value.(uint32); ok {
			e.BlockHeight = h
		}
	}
}

func (e *BlockInvalidErrData) GetData(key string) interface{} {
	switch key {
	case "block_hash":
		return e.BlockHash
	case "block_height":
		return e.BlockHeight
	}

	return nil
}

func (e *BlockInvalidErrData) EncodeErrorData() []byte {
	data, _ := json.Marshal(e)
	return data
}

// NewBlockValidationError returns an ERR_BLOCK_INVALID error for the given block, wrapping cause.
// errors.Is matches both ErrBlockInvalid and the code of cause.
func NewBlockValidationError(blockHash string, blockHeight uint32, cause error) *Error {
	e := New(ERR_BLOCK_INVALID, "block %s at height %d failed validation", blockHash, blockHeight, cause)
	e.data = &BlockInvalidErrData{
		BlockHash:   blockHash,
		BlockHeight: blockHeight,
	}

	return e
}
