package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		expected []string
		wantErr  bool
	}{
		{
			name:     "literal token",
			spec:     "orion-01",
			expected: []string{"orion-01"},
		},
		{
			name:     "comma list",
			spec:     "orion-[a,b,c]",
			expected: []string{"orion-a", "orion-b", "orion-c"},
		},
		{
			name:     "zero padded range",
			spec:     "orion-[01-08]",
			expected: []string{"orion-01", "orion-02", "orion-03", "orion-04", "orion-05", "orion-06", "orion-07", "orion-08"},
		},
		{
			name: "multiple bracket groups cartesian product",
			spec: "nid[0001-0002]-[10001-10002]",
			expected: []string{
				"nid0001-10001", "nid0001-10002",
				"nid0002-10001", "nid0002-10002",
			},
		},
		{
			name:     "mixed comma and range in one bracket",
			spec:     "n[01-02,05]",
			expected: []string{"n01", "n02", "n05"},
		},
		{
			name:    "unmatched bracket",
			spec:    "orion-[01-08",
			wantErr: true,
		},
		{
			name:    "empty bracket",
			spec:    "orion-[]",
			wantErr: true,
		},
		{
			name:    "empty spec",
			spec:    "",
			wantErr: true,
		},
		{
			name:    "reversed range",
			spec:    "orion-[08-01]",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				var invalid *InvalidSpecError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExpandAll(t *testing.T) {
	got, err := ExpandAll([]string{"a-[1,2]", "b-[3,4]"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2", "b-3", "b-4"}, got)
}

// S1 from spec.md §8
func TestExpand_S1Scenario(t *testing.T) {
	names, err := Expand("nid[0001-0002]-[10001-10002]")
	require.NoError(t, err)
	hosts, err := Expand("nid[0001-0002]")
	require.NoError(t, err)
	ports, err := Expand("[10001-10002]")
	require.NoError(t, err)

	assert.Len(t, names, len(hosts)*len(ports))
	assert.Equal(t, []string{
		"nid0001-10001", "nid0001-10002",
		"nid0002-10001", "nid0002-10002",
	}, names)
}
