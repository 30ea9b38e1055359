package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func mustFromIterable(t *testing.T, v any) Content {
	t.Helper()
	c, err := FromIterable(v)
	require.NoError(t, err)
	return c
}

func mustToList(t *testing.T, c Content) []any {
	t.Helper()
	out, err := ToList(c)
	require.NoError(t, err)
	return out
}

// requireValues compares the materialized values of c with want, which is
// built from FromIterable so that integer literals become int64.
func requireValues(t *testing.T, want any, c Content) {
	t.Helper()
	expected := mustToList(t, mustFromIterable(t, want))
	if diff := cmp.Diff(expected, mustToList(t, c)); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func L(items ...any) []any { return items }
