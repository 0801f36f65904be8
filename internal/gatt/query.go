package gatt

import (
	"errors"
	"fmt"
)

// runQuery drives a native growable-buffer call. The first call is made with
// an empty buffer; if the platform asks for more room the buffer is resized
// to exactly the reported size and the call is repeated once. A second
// resize request is a protocol violation.
func runQuery[T any](call func(buf []T) (int, error)) ([]T, error) {
	var buf []T

	n, err := call(buf)
	if errors.Is(err, ErrMoreData) {
		if n <= 0 {
			return nil, fmt.Errorf("%w: required size %d", ErrProtocolViolation, n)
		}
		buf = make([]T, n)
		n, err = call(buf)
		if errors.Is(err, ErrMoreData) {
			return nil, fmt.Errorf("%w: capacity %d, required %d", ErrProtocolViolation, len(buf), n)
		}
	}
	if err != nil {
		return nil, err
	}
	if n < 0 || n > len(buf) {
		return nil, fmt.Errorf("%w: %d items reported for capacity %d", ErrProtocolViolation, n, len(buf))
	}
	return buf[:n], nil
}
