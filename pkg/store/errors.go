package store

import "errors"

// ErrStorage matches every error returned by the store via errors.Is.
var ErrStorage = errors.New("storage error")

// StorageError reports a failed store operation. Err is the underlying
// driver or medium error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return &StorageError{Op: op, Err: err}
}
