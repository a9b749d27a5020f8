package edm

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat marks malformed header records or data blocks.
	ErrFormat = errors.New("format error")
	// ErrChecksum is returned when a record fails under both checksum schemes.
	ErrChecksum = errors.New("checksum failed")
	// ErrCapacity is returned when a file declares more flights than MaxFlights.
	ErrCapacity = errors.New("flight table capacity exceeded")
	// ErrUnexpectedEOF is a format error raised when a header block or data
	// record runs past the end of its buffer.
	ErrUnexpectedEOF = fmt.Errorf("%w: unexpected end of file", ErrFormat)
)

func formatErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

func checksumErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrChecksum, fmt.Sprintf(format, args...))
}
