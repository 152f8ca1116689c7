package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a coded error. Codes survive wrapping: errors.Is matches an *Error target by code
// anywhere in the chain, including through fmt.Errorf %w wrappers.
type Error struct {
	code       ERR
	message    string
	wrappedErr error
	data       ErrDataI
}

type Interface interface {
	Error() string
	Is(target error) bool
	As(target interface{}) bool
	Unwrap() error

	Code() ERR
	Message() string
	WrappedErr() error
	Data() ErrDataI
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s (%d): %s", e.code, e.code, e.message)

	if e.data != nil {
		fmt.Fprintf(&sb, " [%s]", e.data.Error())
	}

	if e.wrappedErr != nil {
		sb.WriteString(": ")
		sb.WriteString(e.wrappedErr.Error())
	}

	return sb.String()
}

// Is reports whether target is an *Error with the code of e or of any error e wraps.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}

	if e.code == t.code {
		return true
	}

	return e.wrappedErr != nil && errors.Is(e.wrappedErr, target)
}

// As assigns e to a **Error target, or the attached data to a target of its type. Anything else is
// left to errors.As, which continues with the wrapped error.
func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}

	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}

	if data, ok := e.data.(error); ok {
		return errors.As(data, target)
	}

	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Code() ERR {
	if e == nil {
		return ERR_UNKNOWN
	}

	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}

	return e.message
}

func (e *Error) WrappedErr() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Data() ErrDataI {
	if e == nil {
		return nil
	}

	return e.data
}

func (e *Error) SetData(key string, value interface{}) {
	if e.data == nil {
		e.data = &ErrData{}
	}

	e.data.SetData(key, value)
}

func (e *Error) GetData(key string) interface{} {
	if e.data == nil {
		return nil
	}

	return e.data.GetData(key)
}

// New returns an error with code and a message formatted from params. A trailing error param is
// wrapped instead of formatted.
func New(code ERR, message string, params ...interface{}) *Error {
	e := &Error{code: code}

	if n := len(params); n > 0 {
		if err, ok := params[n-1].(error); ok {
			e.wrappedErr = err
			params = params[:n-1]
		}
	}

	if _, ok := ERR_name[int32(code)]; !ok {
		e.message = "invalid error code"
		return e
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	e.message = message

	return e
}

// Join returns an error wrapping every non-nil err, or nil if there is none.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// AsData finds the first error in the chain of err carrying data of the type of target.
func AsData(err error, target interface{}) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		e, ok := err.(*Error)
		if !ok || e.data == nil {
			continue
		}

		if data, ok := e.data.(error); ok && errors.As(data, target) {
			return true
		}
	}

	return false
}
