package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeyDeterministic(t *testing.T) {
	params := map[string]any{"location": "Springfield", "filters": map[string]any{"count": 5}}

	k1, err := GenerateKey("food bank", params)
	require.NoError(t, err)
	k2, err := GenerateKey("food bank", params)
	require.NoError(t, err)

	require.Equal(t, k1, k2)
	require.Len(t, k1, 64)
	require.Regexp(t, `^[a-f0-9]{64}$`, k1)
}

func TestGenerateKeyIgnoresParamOrder(t *testing.T) {
	a := map[string]any{}
	a["location"] = "Austin"
	a["filters"] = map[string]any{"count": 3, "freshness": "pm"}

	b := map[string]any{}
	b["filters"] = map[string]any{"freshness": "pm", "count": 3}
	b["location"] = "Austin"

	ka, err := GenerateKey("q", a)
	require.NoError(t, err)
	kb, err := GenerateKey("q", b)
	require.NoError(t, err)
	require.Equal(t, ka, kb)
}

func TestGenerateKeyDistinguishesInputs(t *testing.T) {
	base := map[string]any{"location": "Austin", "filters": map[string]any{"count": 3}}
	baseKey, err := GenerateKey("q", base)
	require.NoError(t, err)

	cases := []struct {
		name   string
		query  string
		params map[string]any
	}{
		{"query", "q2", base},
		{"location", "q", map[string]any{"location": "Boston", "filters": map[string]any{"count": 3}}},
		{"filter value", "q", map[string]any{"location": "Austin", "filters": map[string]any{"count": 4}}},
		{"extra filter", "q", map[string]any{"location": "Austin", "filters": map[string]any{"count": 3, "freshness": "pd"}}},
		{"nil params", "q", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := GenerateKey(tc.query, tc.params)
			require.NoError(t, err)
			require.NotEqual(t, baseKey, k)
		})
	}
}

func TestGenerateKeyRejectsUnencodableParams(t *testing.T) {
	_, err := GenerateKey("q", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}
