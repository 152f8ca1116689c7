// Package errors provides the coded error type used across the chain state engine,
// plus helpers to classify errors into validation failures, missing data and corruption.
package errors

import (
	"context"
	"errors"
)

// IsValidationError reports whether err rejects a block. The block must not be applied,
// and no cursor state from it may be retained.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		return tErr.Code() == ERR_BLOCK_INVALID
	}

	return false
}

// IsMissingDataError reports whether err means that something needed is not available locally yet.
// The operation should be retried once the data arrives.
func IsMissingDataError(err error) bool {
	if err == nil || IsValidationError(err) {
		return false
	}

	return Is(err, ErrMissingData)
}

// IsCorruptionError reports whether err indicates a broken invariant in stored state.
// These are never retried.
func IsCorruptionError(err error) bool {
	if err == nil {
		return false
	}

	return Is(err, ErrCorruption) || Is(err, ErrUtxoPruned)
}

// IsContextError reports whether err was caused by context cancellation or timeout.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return Is(err, ErrContextCanceled)
}

// BlockHashFromError returns the hash of the block a validation error was raised for.
func BlockHashFromError(err error) (string, bool) {
	var data *BlockInvalidErrData
	if AsData(err, &data) {
		return data.BlockHash, true
	}

	return "", false
}

// GetErrorCategory returns a coarse category used for metrics labels.
func GetErrorCategory(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsContextError(err):
		return "context"
	case IsValidationError(err):
		return "validation"
	case IsCorruptionError(err):
		return "corruption"
	case IsMissingDataError(err):
		return "missing_data"
	case Is(err, ErrStorageError):
		return "storage"
	default:
		return "unknown"
	}
}
