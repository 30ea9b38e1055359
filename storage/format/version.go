package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wzqhbustb/jagged/storage/encoding"
)

// Feature flags for format capabilities
const (
	FeatureBasic uint32 = 1 << iota
	FeatureZstdCompression
	FeatureByteStreamSplit
	FeatureRLE
	FeatureBufferChecksum
)

// FeatureFlagName returns the string representation of a feature flag
func FeatureFlagName(f uint32) string {
	switch f {
	case FeatureBasic:
		return "Basic"
	case FeatureZstdCompression:
		return "ZstdCompression"
	case FeatureByteStreamSplit:
		return "ByteStreamSplit"
	case FeatureRLE:
		return "RLE"
	case FeatureBufferChecksum:
		return "BufferChecksum"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// FeaturesToStrings converts feature flags to string slice
func FeaturesToStrings(features uint32) []string {
	var result []string
	for i := 0; i < 32; i++ {
		flag := uint32(1) << i
		if features&flag != 0 {
			result = append(result, FeatureFlagName(flag))
		}
	}
	return result
}

// EncodingFeature returns the feature a buffer encoding needs
func EncodingFeature(t encoding.Type) uint32 {
	switch t {
	case encoding.Zstd:
		return FeatureZstdCompression
	case encoding.ByteStreamSplit:
		return FeatureByteStreamSplit
	case encoding.RLE:
		return FeatureRLE
	default:
		return FeatureBasic
	}
}

// VersionPolicy defines the capabilities of a specific format version
type VersionPolicy struct {
	MajorVersion uint8
	MinorVersion uint8
	FeatureFlags uint32
}

// Predefined version policies
var (
	V1_0 = VersionPolicy{
		MajorVersion: 1,
		MinorVersion: 0,
		FeatureFlags: FeatureBasic | FeatureZstdCompression,
	}

	V1_1 = VersionPolicy{
		MajorVersion: 1,
		MinorVersion: 1,
		FeatureFlags: V1_0.FeatureFlags | FeatureByteStreamSplit | FeatureRLE | FeatureBufferChecksum,
	}

	// CurrentFormatVersion is the latest version supported by this implementation
	CurrentFormatVersion = V1_1

	// MinReadableVersion is the oldest version that can be read
	MinReadableVersion = V1_0
)

// Encoded returns the version encoded as uint16: (Major << 8) | Minor
func (vp VersionPolicy) Encoded() uint16 {
	return (uint16(vp.MajorVersion) << 8) | uint16(vp.MinorVersion)
}

// String returns the version as "Major.Minor" string
func (vp VersionPolicy) String() string {
	return fmt.Sprintf("%d.%d", vp.MajorVersion, vp.MinorVersion)
}

// CanRead returns true if this version can read containers written by other:
// same major version, and a minor version at least as new.
func (vp VersionPolicy) CanRead(other VersionPolicy) bool {
	return vp.MajorVersion == other.MajorVersion &&
		vp.MinorVersion >= other.MinorVersion
}

// HasFeature returns true if this version supports the given feature
func (vp VersionPolicy) HasFeature(feature uint32) bool {
	return (vp.FeatureFlags & feature) != 0
}

// ParseVersion parses a version string like "1.1" into VersionPolicy
func ParseVersion(s string) (VersionPolicy, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return VersionPolicy{}, fmt.Errorf("invalid version format %q, expected Major.Minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return VersionPolicy{}, fmt.Errorf("invalid major version: %w", err)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return VersionPolicy{}, fmt.Errorf("invalid minor version: %w", err)
	}

	return VersionFromEncoded(uint16(major)<<8 | uint16(minor)), nil
}

// VersionFromEncoded creates VersionPolicy from encoded uint16
func VersionFromEncoded(encoded uint16) VersionPolicy {
	vp := VersionPolicy{
		MajorVersion: uint8(encoded >> 8),
		MinorVersion: uint8(encoded & 0xFF),
	}
	switch encoded {
	case V1_0.Encoded():
		vp.FeatureFlags = V1_0.FeatureFlags
	case V1_1.Encoded():
		vp.FeatureFlags = V1_1.FeatureFlags
	}
	return vp
}
