package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	table := []struct {
		input    string
		expected int
		fails    bool
	}{
		{input: "(1,234)", expected: 1234},
		{input: " (56) ", expected: 56},
		{input: "0", expected: 0},
		{input: "(1, 000)", expected: 1000},
		{input: "()", fails: true},
		{input: "n/a", fails: true},
	}

	for _, row := range table {
		n, err := ParseCount(row.input)
		if row.fails {
			require.Error(t, err, row.input)
			continue
		}
		require.NoError(t, err, row.input)
		require.Equal(t, row.expected, n)
	}
}

func TestNormalizeToken(t *testing.T) {
	require.Equal(t, "abc123", NormalizeToken("\ufeff abc123 \r"))
	require.Equal(t, "", NormalizeToken("  \t"))
}

func TestIsDigits(t *testing.T) {
	require.True(t, IsDigits("205860"))
	require.False(t, IsDigits(""))
	require.False(t, IsDigits("12a"))
	require.False(t, IsDigits("-1"))
}
