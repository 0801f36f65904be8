package gatt

import (
	"errors"
	"fmt"
)

// ErrorCode classifies controller and service errors.
type ErrorCode int

const (
	NoError ErrorCode = iota
	UnknownError
	UnknownRemoteDeviceError
	NetworkError
	CharacteristicReadError
	CharacteristicWriteError
	DescriptorReadError
	DescriptorWriteError
	UnsupportedPlatformError
	InvalidStateError
)

var errorCodeNames = map[ErrorCode]string{
	NoError:                  "no error",
	UnknownError:             "unknown error",
	UnknownRemoteDeviceError: "unknown remote device",
	NetworkError:             "network error",
	CharacteristicReadError:  "characteristic read error",
	CharacteristicWriteError: "characteristic write error",
	DescriptorReadError:      "descriptor read error",
	DescriptorWriteError:     "descriptor write error",
	UnsupportedPlatformError: "unsupported platform",
	InvalidStateError:        "invalid state",
}

func (c ErrorCode) String() string {
	if s, ok := errorCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("error code %d", int(c))
}

// Error is a typed controller error. Err carries the platform cause.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is to compare Error values by Code
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Predefined sentinel errors, one per code
var (
	ErrUnknown             = &Error{Code: UnknownError}
	ErrUnknownRemoteDevice = &Error{Code: UnknownRemoteDeviceError}
	ErrNetwork             = &Error{Code: NetworkError}
	ErrCharacteristicRead  = &Error{Code: CharacteristicReadError}
	ErrCharacteristicWrite = &Error{Code: CharacteristicWriteError}
	ErrDescriptorRead      = &Error{Code: DescriptorReadError}
	ErrDescriptorWrite     = &Error{Code: DescriptorWriteError}
	ErrUnsupportedPlatform = &Error{Code: UnsupportedPlatformError}
	ErrInvalidState        = &Error{Code: InvalidStateError}
)

// Native query results. Platform implementations return these (possibly
// wrapped) from AttributeAPI calls.
var (
	// ErrMoreData reports that the submitted buffer is too small; the count
	// returned alongside it is the exact required capacity.
	ErrMoreData = errors.New("more data")

	// ErrNotFound reports that the queried attribute has no children.
	ErrNotFound = errors.New("element not found")

	// ErrProtocolViolation is returned when a native call asks to grow the
	// buffer a second time for the same query.
	ErrProtocolViolation = errors.New("native query requested a second resize")
)

func newError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the ErrorCode carried by err, UnknownError for foreign
// errors and NoError for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return NoError
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return UnknownError
}
