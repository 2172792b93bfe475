package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebelice/lazyadmin/internal/models"
	"github.com/rebelice/lazyadmin/internal/urlstate"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"18", float64(18)},
		{"true", true},
		{`[1,2]`, []any{float64(1), float64(2)}},
		{"alice", "alice"},
		{`"quoted"`, "quoted"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}

func TestReadFilters(t *testing.T) {
	encoded, err := urlstate.EncodeFilters([]models.FilterValue{
		{Field: "name", Operator: models.OpContains, Value: "ali"},
	})
	require.NoError(t, err)

	t.Run("from stdin with an extra filter", func(t *testing.T) {
		var stderr bytes.Buffer
		got, err := readFilters(strings.NewReader(encoded+"\n"), &stderr, whereOptions{
			filters:  "-",
			field:    "meta",
			operator: string(models.OpStringContains),
			value:    "berlin",
			mode:     string(models.ModeInsensitive),
			path:     "$.address.city",
		})
		require.NoError(t, err)

		want := []models.FilterValue{
			{Field: "name", Operator: models.OpContains, Value: "ali"},
			{
				Field:    "meta",
				Operator: models.OpStringContains,
				Value:    "berlin",
				Mode:     models.ModeInsensitive,
				Path:     []string{"address", "city"},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("readFilters() mismatch (-want +got):\n%s", diff)
		}
		assert.Empty(t, stderr.String())
	})

	t.Run("unknown operator warns", func(t *testing.T) {
		var stderr bytes.Buffer
		got, err := readFilters(nil, &stderr, whereOptions{field: "a", operator: "like", value: "x"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Contains(t, stderr.String(), "unknown operator")
	})

	t.Run("malformed filters", func(t *testing.T) {
		_, err := readFilters(nil, &bytes.Buffer{}, whereOptions{filters: "%7Bnot"})
		assert.Error(t, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		_, err := readFilters(nil, &bytes.Buffer{}, whereOptions{field: "meta", operator: "equals", value: "1", path: "a[x]"})
		assert.Error(t, err)
	})
}

func TestPrintWhere(t *testing.T) {
	tests := []struct {
		name  string
		where models.WhereInput
		want  string
	}{
		{"empty", nil, "{}\n"},
		{
			name:  "nested",
			where: models.WhereInput{"age": map[string]any{"gte": 18.0}},
			want:  "{\n  \"age\": {\n    \"gte\": 18\n  }\n}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, printWhere(&out, tt.where))
			assert.Equal(t, tt.want, out.String())
		})
	}
}
