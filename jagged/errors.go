package jagged

import (
	"errors"
	"fmt"

	jerrors "github.com/wzqhbustb/jagged/storage/errors"
)

// Sentinel errors for common cases
var (
	// ErrNilLayout is returned when wrapping a nil layout
	ErrNilLayout = errors.New("layout is nil")

	// ErrNotArray is returned when an operation yields a scalar where an
	// array was expected
	ErrNotArray = errors.New("result is not an array")

	// ErrInvalidBlob is returned when a serialized array cannot be read back
	ErrInvalidBlob = errors.New("invalid serialized array")
)

// Error provides structured error information
type Error struct {
	Op  string // Operation: "Wrap", "Sum", "MarshalBinary", etc.
	ID  string // Handle ID (if applicable)
	Err error  // Underlying error
}

// Error returns a formatted error string
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("jagged: %s on array %s failed: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("jagged: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *Error) Unwrap() error { return e.Err }

// Helper functions for error checking

// IsIndexError reports an out-of-range integer index
func IsIndexError(err error) bool {
	return jerrors.Is(err, jerrors.ErrIndex)
}

// IsAxisError reports an axis outside the array's depth
func IsAxisError(err error) bool {
	return jerrors.Is(err, jerrors.ErrAxis)
}

// IsBroadcastError reports inputs that cannot be broadcast together
func IsBroadcastError(err error) bool {
	return jerrors.Is(err, jerrors.ErrBroadcast)
}

// IsFormMismatch reports a layout that violates its node invariants or does
// not match its form
func IsFormMismatch(err error) bool {
	return jerrors.Is(err, jerrors.ErrFormMismatch)
}

// IsTypeError reports an operation that is not defined for a layout
func IsTypeError(err error) bool {
	return jerrors.Is(err, jerrors.ErrType)
}

// IsInvalidBlob reports a serialized array that could not be decoded
func IsInvalidBlob(err error) bool {
	return errors.Is(err, ErrInvalidBlob)
}

func wrapError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:  op,
		ID:  id,
		Err: err,
	}
}
