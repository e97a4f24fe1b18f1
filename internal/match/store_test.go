package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete("nope"), ErrNotFound)
	require.Empty(t, s.Ids())

	m := testMatch(t, "s-1", DefaultParams(100))
	require.NoError(t, s.Set(m.ID(), m))

	got, err := s.Get("s-1")
	require.NoError(t, err)
	require.Same(t, m, got)
	require.Equal(t, []string{"s-1"}, s.Ids())

	require.NoError(t, s.Delete("s-1"))
	_, err = s.Get("s-1")
	require.ErrorIs(t, err, ErrNotFound)
}
