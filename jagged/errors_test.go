package jagged

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	jerrors "github.com/wzqhbustb/jagged/storage/errors"
)

func TestErrorFormat(t *testing.T) {
	err := &Error{Op: "Sum", Err: ErrNilLayout}
	assert.Equal(t, "jagged: Sum failed: layout is nil", err.Error())

	err = &Error{Op: "Sum", ID: "abc", Err: ErrNilLayout}
	assert.Equal(t, "jagged: Sum on array abc failed: layout is nil", err.Error())
	assert.True(t, errors.Is(err, ErrNilLayout))
}

func TestWrapErrorNil(t *testing.T) {
	assert.NoError(t, wrapError("Sum", "", nil))
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"index", jerrors.IndexOutOfRange("getitem", 5, 3), IsIndexError},
		{"axis", jerrors.AxisOutOfRange("sum", 4, 2), IsAxisError},
		{"broadcast", jerrors.BroadcastMismatch("add", 1, 2, 3), IsBroadcastError},
		{"type", jerrors.TypeMismatch("sum", "numbers", "record"), IsTypeError},
		{"form", jerrors.FormMismatch("list", "ListOffsetArray", "offsets decrease"), IsFormMismatch},
		{"blob", errors.Join(ErrInvalidBlob, errors.New("bad")), IsInvalidBlob},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapError("Op", "id", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.False(t, tt.check(errors.New("other")))
		})
	}
}
