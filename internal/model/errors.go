package model

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every construction failure of a record.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
