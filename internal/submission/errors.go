package submission

import (
	"errors"
	"fmt"
)

// ValidationError is a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "Missing field: " + field}
}

// DecodeError is a body that could not be decoded: bad JSON, a malformed data
// URL or unparsable multipart.
type DecodeError struct {
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PayloadTooLargeError is a body or file above its ceiling.
type PayloadTooLargeError struct {
	What  string
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("%s exceeds %d bytes", e.What, e.Limit)
}

// StorageError wraps a backend or photo store failure. Its detail is logged,
// never returned to clients.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ErrDuplicateID is returned by a backend asked to append an id it already holds.
var ErrDuplicateID = errors.New("duplicate submission id")

// ErrLedgerClosed is returned for submissions after Close.
var ErrLedgerClosed = errors.New("ledger closed")
