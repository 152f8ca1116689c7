package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewCustomError(t *testing.T) {
	err := New(ERR_NOT_FOUND, "resource not found")
	require.NotNil(t, err)
	require.Equal(t, ERR_NOT_FOUND, err.Code())
	require.Equal(t, "resource not found", err.Message())

	secondErr := New(ERR_INVALID_ARGUMENT, "[CalculateUtxo][%s] failed to spend input: ", "_test_string_", err)
	thirdErr := New(ERR_TX_INVALID_DOUBLE_SPEND, "[CalculateUtxo][%s] failed to spend input: ", "_test_string_", secondErr)
	anotherErr := New(ERR_TX_INVALID_DOUBLE_SPEND, "another double spend")
	fourthErr := New(ERR_SERVICE_ERROR, "older error: ", thirdErr)
	fifthErr := New(ERR_BLOCK_INVALID, "block is invalid", fourthErr)

	require.True(t, anotherErr.Is(thirdErr))
	require.True(t, fourthErr.Is(New(ERR_TX_INVALID_DOUBLE_SPEND, "")))
	require.True(t, fourthErr.Is(ErrTxInvalidDoubleSpend))

	require.True(t, fourthErr.Is(err))
	require.True(t, fifthErr.Is(thirdErr))
	require.True(t, fifthErr.Is(err))

	require.False(t, anotherErr.Is(fourthErr))
	require.False(t, fifthErr.Is(ErrBlockNotFound))
}

func Test_FmtErrorCustomError(t *testing.T) {
	err := New(ERR_NOT_FOUND, "resource not found")

	fmtError := fmt.Errorf("error: %w", err)
	secondErr := New(ERR_INVALID_ARGUMENT, "wrapped: ", fmtError)

	// codes survive fmt wrapping
	require.True(t, secondErr.Is(err))
	require.True(t, errors.Is(secondErr, ErrNotFound))
	require.True(t, errors.Is(fmtError, ErrNotFound))
	require.False(t, errors.Is(fmtError, ErrInvalidArgument))
}

func Test_InvalidCode(t *testing.T) {
	err := New(ERR(9999), "no such code")
	require.Equal(t, "invalid error code", err.Message())
}

func Test_ErrorString(t *testing.T) {
	err := NewTxNotFoundError("tx %s not found", "abcd")
	require.Equal(t, "TX_NOT_FOUND (30): tx abcd not found", err.Error())

	wrapped := NewStorageError("failed to read", err)
	assert.Equal(t, "STORAGE_ERROR (60): failed to read: TX_NOT_FOUND (30): tx abcd not found", wrapped.Error())

	invalid := NewBlockValidationError("00ff", 12, err)
	assert.Equal(t, "BLOCK_INVALID (21): block 00ff at height 12 failed validation [block 00ff at height 12 is invalid]: "+
		"TX_NOT_FOUND (30): tx abcd not found", invalid.Error())

	var nilErr *Error
	require.Equal(t, "<nil>", nilErr.Error())
}

func Test_BlockValidationError(t *testing.T) {
	cause := NewTxInvalidDoubleSpendError("output %s:%d already spent", "aa", 1)
	err := NewBlockValidationError("00ff", 12, cause)

	require.True(t, Is(err, ErrBlockInvalid))
	require.True(t, Is(err, ErrTxInvalidDoubleSpend))
	require.False(t, Is(err, ErrTxMissingOutput))

	require.True(t, IsValidationError(err))
	require.False(t, IsMissingDataError(err))
	require.False(t, IsCorruptionError(err))

	hash, ok := BlockHashFromError(err)
	require.True(t, ok)
	require.Equal(t, "00ff", hash)

	var data *BlockInvalidErrData
	require.True(t, AsData(err, &data))
	require.Equal(t, uint32(12), data.BlockHeight)

	decoded, decodeErr := GetErrorData(ERR_BLOCK_INVALID, data.EncodeErrorData())
	require.NoError(t, decodeErr)
	require.Equal(t, "00ff", decoded.GetData("block_hash"))
}

func Test_Classification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
	}{
		{"nil", nil, "none"},
		{"missing data", NewMissingDataError("header %s not found", "aa"), "missing_data"},
		{"pruned", NewUtxoPrunedError("entry pruned"), "corruption"},
		{"corruption", NewCorruptionError("index out of range"), "corruption"},
		{"wrapped context", NewProcessingError("aborted", context.Canceled), "context"},
		{"context canceled", NewContextCanceledError("aborted"), "context"},
		{"storage", NewStorageError("disk full"), "storage"},
		{"validation", NewBlockValidationError("aa", 1, NewTxMissingOutputError("missing")), "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, GetErrorCategory(tt.err))
		})
	}
}

func Test_JoinWithMultipleErrs(t *testing.T) {
	err1 := NewError("error 1")
	err2 := NewStorageError("error 2")

	joined := Join(err1, nil, err2)
	require.Contains(t, joined.Error(), "error 1")
	require.Contains(t, joined.Error(), "error 2")
	require.True(t, Is(joined, ErrStorageError))

	require.NoError(t, Join(nil, nil))
}

func Test_SetData(t *testing.T) {
	err := NewProcessingError("with data")
	err.(*Error).SetData("height", 10)
	require.Equal(t, 10, err.(*Error).GetData("height"))
}
