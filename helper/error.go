package helper

import "fmt"

// NewError wraps err with the name of the operation that failed.
func NewError(operation string, err error) error {
	return fmt.Errorf("error in %s: %w", operation, err)
}
