// Package errors defines the structured error type shared by every jagged
// package. Errors are built with a fluent builder and classified by code.
package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// ErrorCode classifies an error.
type ErrorCode int

const (
	// general
	ErrUnknown ErrorCode = iota
	ErrInvalidArgument
	ErrNotSupported

	// layout and traversal
	ErrIndex
	ErrAxis
	ErrFormMismatch
	ErrType
	ErrBroadcast
	ErrFieldNotFound

	// container format
	ErrInvalidMagic
	ErrVersionMismatch
	ErrCorrupted
	ErrEncodeFailed
	ErrDecodeFailed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrUnknown:
		return "Unknown"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrNotSupported:
		return "NotSupported"
	case ErrIndex:
		return "IndexError"
	case ErrAxis:
		return "AxisError"
	case ErrFormMismatch:
		return "FormMismatchError"
	case ErrType:
		return "TypeError"
	case ErrBroadcast:
		return "BroadcastError"
	case ErrFieldNotFound:
		return "FieldNotFound"
	case ErrInvalidMagic:
		return "InvalidMagic"
	case ErrVersionMismatch:
		return "VersionMismatch"
	case ErrCorrupted:
		return "Corrupted"
	case ErrEncodeFailed:
		return "EncodeFailed"
	case ErrDecodeFailed:
		return "DecodeFailed"
	default:
		return fmt.Sprintf("ErrorCode(%d)", c)
	}
}

// Error is the error type returned by all jagged packages.
type Error struct {
	Code    ErrorCode              // classification
	Op      string                 // operation, e.g. "getitem_at", "from_buffers"
	Path    string                 // position in the layout tree, e.g. "ListOffsetArray.content"
	Offset  int64                  // byte offset for decoding errors, -1 if unset
	Err     error                  // wrapped cause
	Context map[string]interface{} // extra key/value context
	Stack   []byte                 // only set by WithStack
}

func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s:%s]", e.Code, e.Op))

	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Offset >= 0 {
		parts = append(parts, fmt.Sprintf("offset=%d", e.Offset))
	}

	if msg, ok := e.Context["message"]; ok {
		parts = append(parts, fmt.Sprintf("%v", msg))
	}
	if len(e.Context) > 0 {
		rest := make(map[string]interface{}, len(e.Context))
		for k, v := range e.Context {
			if k != "message" {
				rest[k] = v
			}
		}
		if len(rest) > 0 {
			parts = append(parts, fmt.Sprintf("context=%v", rest))
		}
	}

	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Err))
	}

	return "jagged: " + strings.Join(parts, " | ")
}

// Unwrap supports errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether the error carries the given code.
func (e *Error) IsCode(code ErrorCode) bool {
	return e.Code == code
}

// WithContext adds a context entry.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ErrorBuilder builds an *Error.
type ErrorBuilder struct {
	err *Error
}

func New(code ErrorCode) *ErrorBuilder {
	return &ErrorBuilder{
		err: &Error{
			Code:    code,
			Offset:  -1,
			Context: make(map[string]interface{}),
		},
	}
}

func (b *ErrorBuilder) Op(op string) *ErrorBuilder {
	b.err.Op = op
	return b
}

func (b *ErrorBuilder) Path(path string) *ErrorBuilder {
	b.err.Path = path
	return b
}

func (b *ErrorBuilder) Offset(offset int64) *ErrorBuilder {
	b.err.Offset = offset
	return b
}

func (b *ErrorBuilder) Wrap(err error) *ErrorBuilder {
	b.err.Err = err
	return b
}

func (b *ErrorBuilder) Context(key string, value interface{}) *ErrorBuilder {
	b.err.Context[key] = value
	return b
}

func (b *ErrorBuilder) Message(format string, args ...interface{}) *ErrorBuilder {
	b.err.Context["message"] = fmt.Sprintf(format, args...)
	return b
}

func (b *ErrorBuilder) WithStack() *ErrorBuilder {
	b.err.Stack = debug.Stack()
	return b
}

func (b *ErrorBuilder) Build() error {
	return b.err
}

// InvalidArg creates an argument error.
func InvalidArg(op string, msg string) error {
	return New(ErrInvalidArgument).Op(op).Context("message", msg).Build()
}

// NotSupported reports an operation that a layout does not implement.
func NotSupported(op string, msg string) error {
	return New(ErrNotSupported).Op(op).Context("message", msg).Build()
}

// Is reports whether err, or any error it wraps, carries code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	var je *Error
	if errors.As(err, &je) {
		if je.Code == code {
			return true
		}
		if je.Err != nil {
			return Is(je.Err, code)
		}
	}

	return false
}

// IsAny reports whether err carries any of the codes.
func IsAny(err error, codes ...ErrorCode) bool {
	for _, code := range codes {
		if Is(err, code) {
			return true
		}
	}
	return false
}

// GetCode returns the code of err, or ErrUnknown for foreign errors.
func GetCode(err error) ErrorCode {
	var je *Error
	if errors.As(err, &je) {
		return je.Code
	}
	return ErrUnknown
}
