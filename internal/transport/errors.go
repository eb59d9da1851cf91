package transport

import (
	"errors"
	"fmt"
)

var ErrResponseTooLarge = errors.New("response body exceeds limit")

// Error reports that no usable response was obtained: DNS, connect, timeout,
// cancellation or a broken body stream.
type Error struct {
	Op     string
	Method string
	URL    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
