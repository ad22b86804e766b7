package domain

import (
	"errors"
	"fmt"
)

// Telemetry failure kinds. Both are recovered per poll cycle by substituting
// simulated data; they are never fatal.
var (
	ErrTransport = errors.New("telemetry transport error")
	ErrParse     = errors.New("telemetry parse error")
)

func TransportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func TransportErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransport, fmt.Sprintf(format, args...))
}

func ParseError(err error) error {
	return fmt.Errorf("%w: %w", ErrParse, err)
}

func ParseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
