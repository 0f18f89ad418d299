package gitoid

import (
	"errors"
	"fmt"
)

// LengthMismatchError is returned when a stream yields a different number of
// bytes than the length declared in its blob header.
type LengthMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("expected length %d, actual length %d", e.Expected, e.Actual)
}

// IsLengthMismatch reports whether err is, or wraps, a *LengthMismatchError.
func IsLengthMismatch(err error) bool {
	var target *LengthMismatchError
	return errors.As(err, &target)
}

// URL components named by URLError.
const (
	ComponentURL           = "url"
	ComponentScheme        = "scheme"
	ComponentObjectType    = "object type"
	ComponentHashAlgorithm = "hash algorithm"
	ComponentHash          = "hash"
)

// URLError reports which component of a gitoid URL failed validation.
type URLError struct {
	Component string
	Got       string
	Want      string
	Reason    string
}

func (e *URLError) Error() string {
	msg := fmt.Sprintf("invalid gitoid %s %q", e.Component, e.Got)
	if e.Want != "" {
		msg += fmt.Sprintf(", expected %q", e.Want)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsURLError reports whether err is, or wraps, a *URLError.
func IsURLError(err error) bool {
	var target *URLError
	return errors.As(err, &target)
}
