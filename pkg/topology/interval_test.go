package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S5 from spec.md §8
func TestParseInterval_S5Scenario(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{input: "1.5s", expected: 1_500_000},
		{input: "250ms", expected: 250_000},
		{input: "2m", expected: 120_000_000},
		{input: "2", expected: 2_000_000},
		{input: "bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInterval(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var invalid *InvalidIntervalError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseInterval_CaseInsensitiveAndMicros(t *testing.T) {
	got, err := ParseInterval("100US")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	got, err = ParseInterval("3MS")
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), got)
}

func TestParseInterval_LongestSuffixMatch(t *testing.T) {
	// "ms" must not be misclassified by a bare "s" suffix check.
	got, err := ParseInterval("10ms")
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), got)
}
