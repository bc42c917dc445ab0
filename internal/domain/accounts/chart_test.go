package accounts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propfolio/statement-pipeline/internal/domain/statement"
)

func TestLoadChart(t *testing.T) {
	entries, err := LoadChart()
	require.NoError(t, err, "embedded chart must parse")
	require.NotEmpty(t, entries)

	seen := make(map[string]bool)
	for _, e := range entries {
		assert.True(t, ValidCode(e.Code), "invalid code %q", e.Code)
		assert.False(t, seen[e.Code], "duplicate code %q", e.Code)
		seen[e.Code] = true
		assert.NotEmpty(t, e.Name, "entry %s has no name", e.Code)
		if e.ParentCode != "" {
			assert.True(t, seen[e.ParentCode] || containsCode(entries, e.ParentCode),
				"entry %s references unknown parent %s", e.Code, e.ParentCode)
		}
	}
}

func containsCode(entries []ChartEntry, code string) bool {
	for _, e := range entries {
		if e.Code == code {
			return true
		}
	}
	return false
}

func TestStaticProvider_Chart(t *testing.T) {
	p, err := NewEmbeddedProvider()
	require.NoError(t, err)

	t.Run("FiltersByCodeRange", func(t *testing.T) {
		entries, err := p.Chart(statement.BalanceSheet)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		for _, e := range entries {
			assert.GreaterOrEqual(t, e.Code, "1000-0000")
			assert.Less(t, e.Code, "4000-0000")
		}
	})

	t.Run("EveryTypeHasAChart", func(t *testing.T) {
		for _, st := range statement.AllTypes() {
			entries, err := p.Chart(st)
			assert.NoError(t, err, "type %s", st)
			assert.NotEmpty(t, entries, "type %s", st)
		}
	})

	t.Run("UnknownTypeIsFatal", func(t *testing.T) {
		_, err := p.Chart(statement.Type("profit_forecast"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoChart))
	})

	t.Run("EmptyChartIsFatal", func(t *testing.T) {
		_, err := NewStaticProvider(nil).Chart(statement.BalanceSheet)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoChart))
	})
}

func TestValidCode(t *testing.T) {
	valid := []string{"1010-0000", "7520-0000", "0000-9999"}
	for _, s := range valid {
		assert.True(t, ValidCode(s), s)
	}
	invalid := []string{"", "1010", "10100000", "1010-000", "1010-00000", "101A-0000", "1010_0000"}
	for _, s := range invalid {
		assert.False(t, ValidCode(s), s)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Cash - Operating":        "CASH OPERATING",
		"  repairs & maintenance": "REPAIRS MAINTENANCE",
		"Owner's Equity":          "OWNER S EQUITY",
		"...":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeName(in), "input %q", in)
	}
}
