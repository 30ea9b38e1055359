// Package format reads and writes the self-describing container that holds a
// serialized array: a header with the form, a table of named buffers, the
// encoded buffer section and a checksummed footer.
package format

import (
	"encoding/binary"
	"fmt"

	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

// Container format constants
const (
	// MagicNumber identifies a container (ASCII "JAGD")
	MagicNumber uint32 = 0x4A414744

	// MaxFormSize is the maximum size of the serialized form (16 MB)
	MaxFormSize = 16 * 1024 * 1024

	// MaxKeySize is the maximum length of a buffer key
	MaxKeySize = 1<<16 - 1

	// TrailerSize is the size of the fixed trailer: footer length and magic
	TrailerSize = 4 + 4
)

// ByteOrder is the byte order used throughout containers
var ByteOrder = binary.LittleEndian

// FileError represents a container format error
type FileError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("jagged format: %s: %v", e.Op, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError creates a new file error
func NewFileError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FileError{Op: op, Err: err}
}

// ValidateMagicNumber checks if the magic number is valid
func ValidateMagicNumber(magic uint32) error {
	if magic != MagicNumber {
		return lerrors.FormatInvalidMagic(magic, MagicNumber)
	}
	return nil
}

// ValidateVersion checks if the version is supported
func ValidateVersion(version uint16) error {
	vp := VersionFromEncoded(version)
	if !CurrentFormatVersion.CanRead(vp) || !vp.CanRead(MinReadableVersion) {
		return lerrors.FormatVersionMismatch(version, MinReadableVersion.Encoded(), CurrentFormatVersion.Encoded())
	}
	return nil
}
