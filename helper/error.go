package helper

import "fmt"

// Error wraps an underlying error with the operation it occurred in
type Error struct {
	Context string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("error in %s: %v", e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new wrapped error with operation context
func NewError(context string, err error) error {
	return &Error{
		Context: context,
		Err:     err,
	}
}
