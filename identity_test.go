package modelcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCallerIDIsUniqueAndNonEmpty(t *testing.T) {
	t.Parallel()

	a := NewCallerID()
	b := NewCallerID()

	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
	require.NotEqual(t, unowned, a)
}
