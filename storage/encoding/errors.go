package encoding

import (
	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

// ErrWidth indicates a buffer whose length is not a multiple of its value
// width.
var ErrWidth = lerrors.New(lerrors.ErrInvalidArgument).
	Op("encode").
	Context("reason", "buffer length is not a multiple of the value width").
	Build()

// EncodeError creates a structured encoding error
func EncodeError(encoding string, op string, err error) error {
	return lerrors.New(lerrors.ErrEncodeFailed).
		Op(op).
		Context("encoding", encoding).
		Wrap(err).
		Build()
}

// DecodeError creates a structured decoding error
func DecodeError(encoding string, op string, err error) error {
	return lerrors.New(lerrors.ErrDecodeFailed).
		Op(op).
		Context("encoding", encoding).
		Wrap(err).
		Build()
}

func checkWidth(data []byte, width int) error {
	if width <= 0 || len(data)%width != 0 {
		return ErrWidth
	}
	return nil
}
