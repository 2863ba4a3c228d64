package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		ident string
		want  Kind
	}{
		{"class", CLASS},
		{"function", FUNCTION},
		{"while", WHILE},
		{"private", PRIVATE},
		{"notakeyword", IDENT},
		{"", IDENT},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Lookup(c.ident), c.ident)
	}
}

func TestKindString(t *testing.T) {
	require.Equal(t, ":=", EQ.String())
	require.Equal(t, "=", EQ_EQ.String())
	require.Equal(t, "end of file", EOF.String())
}
