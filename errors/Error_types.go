package errors

var (
	ErrUnknown              = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument      = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrNotFound             = New(ERR_NOT_FOUND, "not found")
	ErrProcessing           = New(ERR_PROCESSING, "error processing")
	ErrConfiguration        = New(ERR_CONFIGURATION, "configuration error")
	ErrContextCanceled      = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError                = New(ERR_ERROR, "generic error")
	ErrStateError           = New(ERR_STATE_ERROR, "state error")
	ErrBlockNotFound        = New(ERR_BLOCK_NOT_FOUND, "block not found")
	ErrBlockInvalid         = New(ERR_BLOCK_INVALID, "block invalid")
	ErrTxNotFound           = New(ERR_TX_NOT_FOUND, "tx not found")
	ErrTxInvalid            = New(ERR_TX_INVALID, "tx invalid")
	ErrTxInvalidDoubleSpend = New(ERR_TX_INVALID_DOUBLE_SPEND, "tx invalid double spend")
	ErrTxAlreadyExists      = New(ERR_TX_ALREADY_EXISTS, "tx already exists")
	ErrTxMissingOutput      = New(ERR_TX_MISSING_OUTPUT, "tx missing output")
	ErrTxOutputOutOfRange   = New(ERR_TX_OUTPUT_OUT_OF_RANGE, "tx output index out of range")
	ErrServiceError         = New(ERR_SERVICE_ERROR, "service error")
	ErrKafkaError           = New(ERR_KAFKA_ERROR, "kafka error")
	ErrStorageError         = New(ERR_STORAGE_ERROR, "storage error")
	ErrMissingData          = New(ERR_MISSING_DATA, "missing data")
	ErrCorruption           = New(ERR_CORRUPTION, "corruption")
	ErrUtxoPruned           = New(ERR_UTXO_PRUNED, "utxo pruned")
	ErrInvalidOperation     = New(ERR_INVALID_OPERATION, "invalid operation")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewStateError(message string, params ...interface{}) error {
	return New(ERR_STATE_ERROR, message, params...)
}
func NewBlockNotFoundError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_NOT_FOUND, message, params...)
}
func NewBlockInvalidError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_INVALID, message, params...)
}
func NewTxNotFoundError(message string, params ...interface{}) error {
	return New(ERR_TX_NOT_FOUND, message, params...)
}
func NewTxInvalidError(message string, params ...interface{}) error {
	return New(ERR_TX_INVALID, message, params...)
}
func NewTxInvalidDoubleSpendError(message string, params ...interface{}) error {
	return New(ERR_TX_INVALID_DOUBLE_SPEND, message, params...)
}
func NewTxAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_TX_ALREADY_EXISTS, message, params...)
}
func NewTxMissingOutputError(message string, params ...interface{}) error {
	return New(ERR_TX_MISSING_OUTPUT, message, params...)
}
func NewTxOutputOutOfRangeError(message string, params ...interface{}) error {
	return New(ERR_TX_OUTPUT_OUT_OF_RANGE, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewKafkaError(message string, params ...interface{}) error {
	return New(ERR_KAFKA_ERROR, message, params...)
}
func NewStorageError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_ERROR, message, params...)
}
func NewMissingDataError(message string, params ...interface{}) error {
	return New(ERR_MISSING_DATA, message, params...)
}
func NewCorruptionError(message string, params ...interface{}) error {
	return New(ERR_CORRUPTION, message, params...)
}
func NewUtxoPrunedError(message string, params ...interface{}) error {
	return New(ERR_UTXO_PRUNED, message, params...)
}
func NewInvalidOperationError(message string, params ...interface{}) error {
	return New(ERR_INVALID_OPERATION, message, params...)
}
