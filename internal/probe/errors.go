package probe

import (
	"errors"
	"fmt"
)

var (
	// ErrAssertion marks a probe whose operation completed but produced the wrong outcome
	ErrAssertion = errors.New("assertion failed")
	// ErrUnknownProbe is returned for probe names with no implementation
	ErrUnknownProbe = errors.New("unknown probe")
)

// ValueError is the error kind raised by the error propagation probe's operation
type ValueError struct {
	Message string
}

func (e *ValueError) Error() string {
	return "value error: " + e.Message
}

func assertionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAssertion, fmt.Sprintf(format, args...))
}

// IsAssertion reports whether err is a probe assertion failure
func IsAssertion(err error) bool {
	return errors.Is(err, ErrAssertion)
}
