package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	require.Equal(t, "a b c", Sanitize("  a\x00 b\n  c  "))
	require.Equal(t, "", Sanitize("\x01\x02"))
}

func TestIsAlphaToken(t *testing.T) {
	require.True(t, IsAlphaToken("disciplina"))
	require.True(t, IsAlphaToken("máquina"))
	require.False(t, IsAlphaToken("a"))
	require.False(t, IsAlphaToken("MATA37"))
	require.False(t, IsAlphaToken(""))
}

func TestPlainFraction(t *testing.T) {
	require.Equal(t, 1.0, PlainFraction("abc 123"))
	require.Equal(t, 0.0, PlainFraction(""))
	require.InDelta(t, 0.5, PlainFraction("ab%$"), 0.001)
}
