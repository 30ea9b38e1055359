package format

import (
	"reflect"
	"testing"

	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

func TestVersionPolicy_Encoded(t *testing.T) {
	if V1_1.Encoded() != 0x0101 {
		t.Errorf("V1_1.Encoded() = 0x%04X", V1_1.Encoded())
	}
	if got := VersionFromEncoded(0x0101); got != V1_1 {
		t.Errorf("VersionFromEncoded(0x0101) = %+v", got)
	}
	if got := VersionFromEncoded(0x0305); got.FeatureFlags != 0 || got.String() != "3.5" {
		t.Errorf("unknown versions carry no features: %+v", got)
	}
}

func TestVersionPolicy_CanRead(t *testing.T) {
	tests := []struct {
		reader, written VersionPolicy
		want            bool
	}{
		{V1_1, V1_0, true},
		{V1_1, V1_1, true},
		{V1_0, V1_1, false},
		{V1_1, VersionFromEncoded(2 << 8), false},
	}
	for _, tt := range tests {
		if got := tt.reader.CanRead(tt.written); got != tt.want {
			t.Errorf("%s.CanRead(%s) = %v, want %v", tt.reader, tt.written, got, tt.want)
		}
	}
}

func TestVersionPolicy_Features(t *testing.T) {
	if V1_0.HasFeature(FeatureRLE) {
		t.Error("1.0 must not support RLE")
	}
	if !V1_1.HasFeature(FeatureRLE) || !V1_1.HasFeature(FeatureBufferChecksum) {
		t.Error("1.1 must support RLE and checksums")
	}
	want := []string{"Basic", "ZstdCompression"}
	if got := FeaturesToStrings(V1_0.FeatureFlags); !reflect.DeepEqual(got, want) {
		t.Errorf("FeaturesToStrings = %v, want %v", got, want)
	}
	if got := FeatureFlagName(1 << 20); got != "Unknown(1048576)" {
		t.Errorf("FeatureFlagName = %q", got)
	}
}

func TestParseVersion(t *testing.T) {
	vp, err := ParseVersion("1.1")
	if err != nil {
		t.Fatalf("ParseVersion failed: %v", err)
	}
	if vp != V1_1 {
		t.Errorf("ParseVersion(1.1) = %+v", vp)
	}
	for _, bad := range []string{"1", "1.x", "300.1", "1.1.1"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Errorf("ParseVersion(%q) should fail", bad)
		}
	}
}

func TestValidateVersion(t *testing.T) {
	if err := ValidateVersion(V1_0.Encoded()); err != nil {
		t.Errorf("1.0 should be readable: %v", err)
	}
	if err := ValidateVersion(0x0102); !lerrors.Is(err, lerrors.ErrVersionMismatch) {
		t.Errorf("expected ErrVersionMismatch for 1.2, got %v", err)
	}
}
