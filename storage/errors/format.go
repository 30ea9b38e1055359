package errors

import "fmt"

// FormatInvalidMagic reports a container with the wrong magic number.
func FormatInvalidMagic(got, want uint32) error {
	return New(ErrInvalidMagic).
		Op("validate_header").
		Context("got", fmt.Sprintf("0x%08X", got)).
		Context("want", fmt.Sprintf("0x%08X", want)).
		Build()
}

// FormatVersionMismatch reports an unsupported container version.
func FormatVersionMismatch(got, min, max uint16) error {
	return New(ErrVersionMismatch).
		Op("validate_version").
		Context("version", got).
		Context("min_supported", min).
		Context("max_supported", max).
		Build()
}

// FormatFeatureUnsupported reports a container that uses a feature its
// declared version does not have.
func FormatFeatureUnsupported(version, feature string, offset int64) error {
	return New(ErrVersionMismatch).
		Op("read_container").
		Offset(offset).
		Context("version", version).
		Context("feature", feature).
		Build()
}

// FormatCorrupted reports inconsistent container bytes.
func FormatCorrupted(offset int64, reason string) error {
	return New(ErrCorrupted).
		Op("read_container").
		Offset(offset).
		Context("reason", reason).
		Build()
}

// EncodeFailed wraps a codec failure.
func EncodeFailed(codec string, err error) error {
	return New(ErrEncodeFailed).
		Op(fmt.Sprintf("encode_%s", codec)).
		Context("codec", codec).
		Wrap(err).
		Build()
}

// DecodeFailed wraps a codec failure while decoding.
func DecodeFailed(codec string, offset int64, err error) error {
	return New(ErrDecodeFailed).
		Op(fmt.Sprintf("decode_%s", codec)).
		Offset(offset).
		Context("codec", codec).
		Wrap(err).
		Build()
}
