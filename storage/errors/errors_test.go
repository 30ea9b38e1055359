package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(ErrDecodeFailed).
		Op("decode").
		Path("ListOffsetArray.content").
		Offset(128).
		Context("codec", "zstd").
		Message("bad frame").
		Wrap(cause).
		Build()

	msg := err.Error()
	for _, part := range []string{"[DecodeFailed:decode]", "path=ListOffsetArray.content", "offset=128", "bad frame", "codec:zstd", "cause=boom"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	var je *Error
	if !errors.As(err, &je) || !je.IsCode(ErrDecodeFailed) {
		t.Fatalf("expected *Error with ErrDecodeFailed, got %v", err)
	}
	if je.Stack != nil {
		t.Error("stack should only be captured on request")
	}
}

func TestOffsetUnset(t *testing.T) {
	err := New(ErrIndex).Op("getitem_at").Build()
	if strings.Contains(err.Error(), "offset=") {
		t.Errorf("unset offset should not be printed: %s", err)
	}
}

func TestIsThroughWrapping(t *testing.T) {
	inner := AxisOutOfRange("sum", 3, 2)
	outer := New(ErrInvalidArgument).Op("reduce").Wrap(inner).Build()

	if !Is(outer, ErrAxis) {
		t.Error("expected Is to see the wrapped code")
	}
	if !Is(outer, ErrInvalidArgument) {
		t.Error("expected Is to see the outer code")
	}
	if Is(outer, ErrIndex) {
		t.Error("unexpected ErrIndex")
	}
	if !IsAny(outer, ErrIndex, ErrAxis) {
		t.Error("expected IsAny to match")
	}
	if GetCode(outer) != ErrInvalidArgument {
		t.Errorf("GetCode = %v", GetCode(outer))
	}
	if GetCode(errors.New("plain")) != ErrUnknown {
		t.Error("foreign errors have ErrUnknown")
	}
	if Is(nil, ErrAxis) {
		t.Error("nil is never an error code")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err  error
		code ErrorCode
	}{
		{IndexOutOfRange("getitem_at", 5, 3), ErrIndex},
		{AdvancedIndexOutOfRange("getitem", 1, 7, 2), ErrIndex},
		{AxisOutOfRange("flatten", 2, 1), ErrAxis},
		{FormMismatchf("new", "ListOffsetArray", "offsets[%d] decreases", 2), ErrFormMismatch},
		{BroadcastMismatch("add", 1, 3, 2), ErrBroadcast},
		{FieldNotFound("getitem_field", "z", []string{"x", "y"}), ErrFieldNotFound},
		{TypeMismatch("sum", "numbers", "record"), ErrType},
		{Typef("sum", "cannot reduce %s", "union"), ErrType},
		{InvalidArg("slice", "step must not be zero"), ErrInvalidArgument},
		{NotSupported("carry", "unknown layout"), ErrNotSupported},
		{FormatInvalidMagic(1, 2), ErrInvalidMagic},
		{FormatVersionMismatch(0x0200, 0x0100, 0x0101), ErrVersionMismatch},
		{FormatCorrupted(10, "checksum"), ErrCorrupted},
		{EncodeFailed("zstd", errors.New("x")), ErrEncodeFailed},
		{DecodeFailed("rle", 4, errors.New("x")), ErrDecodeFailed},
	}
	for _, tt := range tests {
		if GetCode(tt.err) != tt.code {
			t.Errorf("%v: code = %v, want %v", tt.err, GetCode(tt.err), tt.code)
		}
	}
}

func TestErrorCodeString(t *testing.T) {
	if ErrBroadcast.String() != "BroadcastError" {
		t.Errorf("unexpected name %q", ErrBroadcast.String())
	}
	if ErrorCode(99).String() != "ErrorCode(99)" {
		t.Errorf("unexpected name %q", ErrorCode(99).String())
	}
}
