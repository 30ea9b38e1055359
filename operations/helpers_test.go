package operations

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/layout"
)

func L(items ...any) []any { return items }

func build(t *testing.T, v any) layout.Content {
	t.Helper()
	c, err := layout.FromIterable(v)
	require.NoError(t, err)
	return c
}

// requireValues compares the values of got, which must be an array, with
// want built through FromIterable.
func requireValues(t *testing.T, want any, got any) {
	t.Helper()
	c, ok := got.(layout.Content)
	require.Truef(t, ok, "expected an array, got %T", got)
	expected, err := layout.ToList(build(t, want))
	require.NoError(t, err)
	actual, err := layout.ToList(c)
	require.NoError(t, err)
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

// jagged is [[1, 2, 3], [], [4, 5]].
func jagged(t *testing.T) layout.Content {
	return build(t, L(L(1, 2, 3), L(), L(4, 5)))
}
