package errors

import "strconv"

// ERR is the numeric error code carried by every *Error.
type ERR int32

const (
	ERR_UNKNOWN          ERR = 0
	ERR_INVALID_ARGUMENT ERR = 1
	ERR_NOT_FOUND        ERR = 3
	ERR_PROCESSING       ERR = 4
	ERR_CONFIGURATION    ERR = 5
	ERR_CONTEXT_CANCELED ERR = 6
	ERR_ERROR            ERR = 9
	ERR_STATE_ERROR      ERR = 10
	// block errors 20-29
	ERR_BLOCK_NOT_FOUND ERR = 20
	ERR_BLOCK_INVALID   ERR = 21
	// tx errors 30-49
	ERR_TX_NOT_FOUND            ERR = 30
	ERR_TX_INVALID              ERR = 31
	ERR_TX_INVALID_DOUBLE_SPEND ERR = 32
	ERR_TX_ALREADY_EXISTS       ERR = 33
	ERR_TX_MISSING_OUTPUT       ERR = 34
	ERR_TX_OUTPUT_OUT_OF_RANGE  ERR = 35
	// service errors 50-59
	ERR_SERVICE_ERROR ERR = 50
	ERR_KAFKA_ERROR   ERR = 51
	// storage errors 60-69
	ERR_STORAGE_ERROR ERR = 60
	// chain state errors 70-79
	ERR_MISSING_DATA      ERR = 70
	ERR_CORRUPTION        ERR = 71
	ERR_UTXO_PRUNED       ERR = 72
	ERR_INVALID_OPERATION ERR = 73
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	6:  "CONTEXT_CANCELED",
	9:  "ERROR",
	10: "STATE_ERROR",
	20: "BLOCK_NOT_FOUND",
	21: "BLOCK_INVALID",
	30: "TX_NOT_FOUND",
	31: "TX_INVALID",
	32: "TX_INVALID_DOUBLE_SPEND",
	33: "TX_ALREADY_EXISTS",
	34: "TX_MISSING_OUTPUT",
	35: "TX_OUTPUT_OUT_OF_RANGE",
	50: "SERVICE_ERROR",
	51: "KAFKA_ERROR",
	60: "STORAGE_ERROR",
	70: "MISSING_DATA",
	71: "CORRUPTION",
	72: "UTXO_PRUNED",
	73: "INVALID_OPERATION",
}

var ERR_value = func() map[string]int32 {
	m := make(map[string]int32, len(ERR_name))
	for k, v := range ERR_name {
		m[v] = k
	}

	return m
}()

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return strconv.Itoa(int(x))
}
