package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage tags failures caused by an aborted local transaction. A
	// failed transaction leaves no partial mutation visible.
	ErrStorage = errors.New("storage error")

	// ErrNotFound indicates the requested session or capture does not exist.
	ErrNotFound = errors.New("not found")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
