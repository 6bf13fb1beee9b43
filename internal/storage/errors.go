package storage

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("storage error")

	ErrClosed         = errors.New("kv engine closed")
	ErrEmptyKey       = errors.New("empty key")
	ErrKeyTooLong     = errors.New("key too long")
	ErrLengthMismatch = errors.New("declared length does not match value length")
	ErrCorruptRecord  = errors.New("corrupt record")
)

// StorageError reports a failed engine operation. The transaction that
// produced it has been rolled back.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func opError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
