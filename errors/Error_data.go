package errors

import (
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrDataI is structured context attached to an *Error. Implementations are errors themselves so that
// errors.As can find them.
type ErrDataI interface {
	EncodeErrorData() []byte
	Error() string
	GetData(key string) interface{}
	SetData(key string, value interface{})
}

// ErrData is free form key value context.
type ErrData map[string]interface{}

func (e *ErrData) Error() string {
	if e == nil || len(*e) == 0 {
		return ""
	}

	keys := make([]string, 0, len(*e))
	for k := range *e {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, (*e)[k])
	}

	return strings.Join(pairs, " ")
}

func (e *ErrData) SetData(key string, value interface{}) {
	if e == nil {
		return
	}

	if *e == nil {
		*e = ErrData{}
	}

	(*e)[key] = value
}

func (e *ErrData) GetData(key string) interface{} {
	if e == nil {
		return nil
	}

	return (*e)[key]
}

func (e *ErrData) EncodeErrorData() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}

	return data
}

// GetErrorData decodes data previously produced by EncodeErrorData for an error with the given code.
func GetErrorData(code ERR, data []byte) (ErrDataI, error) {
	var errData ErrDataI = &ErrData{}
	if code == ERR_BLOCK_INVALID {
		errData = &BlockInvalidErrData{}
	}

	if err := json.Unmarshal(data, errData); err != nil {
		return errData, NewProcessingError("failed to decode %s error data", code, err)
	}

	return errData, nil
}
