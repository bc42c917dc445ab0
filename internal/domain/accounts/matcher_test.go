package accounts

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propfolio/statement-pipeline/internal/domain/statement"
)

func newTestMatcher(t *testing.T) (*Matcher, *StaticProvider) {
	t.Helper()
	p, err := NewEmbeddedProvider()
	require.NoError(t, err)
	return NewMatcher(p, DefaultPolicy()), p
}

func line(label, amount, section string) statement.LineItem {
	return statement.LineItem{
		ID:        uuid.New(),
		RawLabel:  label,
		RawAmount: amount,
		Section:   section,
	}
}

func TestMatcher_Match(t *testing.T) {
	m, p := newTestMatcher(t)
	bs, err := p.Chart(statement.BalanceSheet)
	require.NoError(t, err)
	is, err := p.Chart(statement.IncomeStatement)
	require.NoError(t, err)

	t.Run("ExactCodeWins", func(t *testing.T) {
		got := m.Match(line("1010-0000 Cash - Operating", "1,000.00", "ASSETS"), bs)
		assert.Equal(t, "1010-0000", got.AccountCode)
		assert.Equal(t, statement.MethodExactCode, got.Method)
		assert.Equal(t, 100.0, got.MappingConfidence)
		require.NotNil(t, got.ParsedAmount)
		assert.Equal(t, "1000", got.ParsedAmount.String())
	})

	t.Run("FuzzyNameAboveThreshold", func(t *testing.T) {
		got := m.Match(line("Building", "500,000.00", "ASSETS"), bs)
		assert.Equal(t, "1510-0000", got.AccountCode)
		assert.Equal(t, statement.MethodFuzzyName, got.Method)
		assert.GreaterOrEqual(t, got.MappingConfidence, 85.0)
	})

	t.Run("KeywordFallback", func(t *testing.T) {
		got := m.Match(line("Repairs Maintenance", "2,400.00", "EXPENSES"), is)
		assert.Equal(t, "5020-0000", got.AccountCode)
		assert.Equal(t, statement.MethodKeyword, got.Method)
		assert.Equal(t, 80.0, got.MappingConfidence, "keyword confidence is capped below fuzzy matches")
	})

	t.Run("KeywordBelowThresholdStaysUnmatched", func(t *testing.T) {
		// Two keyword tokens out of four is a 50 overlap, under the floor.
		got := m.Match(line("Repairs Maintenance Unit 4B", "310.00", "EXPENSES"), is)
		assert.True(t, got.Unmatched())
		assert.Empty(t, got.AccountCode)
	})

	t.Run("UnmatchedRetainsLine", func(t *testing.T) {
		got := m.Match(line("Miscellaneous Prepaid XYZ-123", "842.17", ""), is)
		assert.True(t, got.Unmatched())
		assert.Equal(t, statement.MethodUnmatched, got.Method)
		assert.Equal(t, "Miscellaneous Prepaid XYZ-123", got.RawLabel)
		require.NotNil(t, got.ParsedAmount, "amount survives even without a mapping")
		assert.Equal(t, "842.17", got.ParsedAmount.String())
	})

	t.Run("MalformedAmountStillMaps", func(t *testing.T) {
		got := m.Match(line("1510-0000 Buildings", "1,2,3.4.5", "ASSETS"), bs)
		assert.Equal(t, "1510-0000", got.AccountCode)
		assert.Nil(t, got.ParsedAmount)
	})

	t.Run("SubtotalAndTotalFlagsFollowChart", func(t *testing.T) {
		got := m.Match(line("1099-0000 Total Cash", "100,000.00", "ASSETS"), bs)
		assert.True(t, got.IsSubtotal)
		got = m.Match(line("1999-0000 Total Assets", "500,000.00", "ASSETS"), bs)
		assert.True(t, got.IsTotal)
	})
}

func TestMatcher_Deterministic(t *testing.T) {
	m, p := newTestMatcher(t)
	entries, err := p.Chart(statement.BalanceSheet)
	require.NoError(t, err)

	item := line("Security Deposits", "4,500.00", "LIABILITIES")
	first := m.Match(item, entries)
	for i := 0; i < 10; i++ {
		again := m.Match(item, entries)
		assert.Equal(t, first.AccountCode, again.AccountCode)
		assert.Equal(t, first.MappingConfidence, again.MappingConfidence)
	}
}

func TestMatcher_TieBreak(t *testing.T) {
	m, _ := newTestMatcher(t)

	t.Run("LowestCodeOnExactTie", func(t *testing.T) {
		entries := []ChartEntry{
			{Code: "1020-0000", Name: "Cash", Category: "ASSETS"},
			{Code: "1010-0000", Name: "Cash", Category: "ASSETS"},
		}
		got := m.Match(line("Cash", "100.00", ""), entries)
		assert.Equal(t, "1010-0000", got.AccountCode)
	})

	t.Run("SectionCategoryPreferred", func(t *testing.T) {
		entries := []ChartEntry{
			{Code: "4040-0000", Name: "Service Charges", Category: "INCOME"},
			{Code: "5080-0000", Name: "Service Charges", Category: "EXPENSES"},
		}
		got := m.Match(line("Service Charges", "75.00", "EXPENSES"), entries)
		assert.Equal(t, "5080-0000", got.AccountCode, "the section hint outranks the lower code")
	})
}

func TestMatcher_FuzzyThresholdBoundary(t *testing.T) {
	m, _ := newTestMatcher(t)

	// Twenty-character names give exact Levenshtein similarities: three
	// substitutions score 85.0, four score 80.0.
	entries := []ChartEntry{{Code: "1400-0000", Name: "ABCDEFGHIJKLMNOPQRST", Category: "ASSETS"}}
	require.Equal(t, 85.0, nameSimilarity("ABCDEFGHIJKLMNOPQXYZ", "ABCDEFGHIJKLMNOPQRST"))
	require.Equal(t, 80.0, nameSimilarity("ABCDEFGHIJKLMNOPWXYZ", "ABCDEFGHIJKLMNOPQRST"))

	t.Run("AcceptedAtExactThreshold", func(t *testing.T) {
		got := m.Match(line("ABCDEFGHIJKLMNOPQXYZ", "1.00", "ASSETS"), entries)
		assert.Equal(t, statement.MethodFuzzyName, got.Method, "the 85 boundary is inclusive")
		assert.Equal(t, "1400-0000", got.AccountCode)
		assert.Equal(t, 85.0, got.MappingConfidence)
	})

	t.Run("RejectedJustBelowThreshold", func(t *testing.T) {
		got := m.Match(line("ABCDEFGHIJKLMNOPWXYZ", "1.00", "ASSETS"), entries)
		assert.True(t, got.Unmatched())
	})
}

func TestMatcher_MapAll(t *testing.T) {
	m, _ := newTestMatcher(t)

	items := []statement.LineItem{
		line("1010-0000 Cash - Operating", "60,000.00", "ASSETS"),
		line("Gremlin Widget Reserve Fund", "1,234.00", "ASSETS"),
		line("Building", "500,000.00", "ASSETS"),
	}
	mapped, err := m.MapAll(items, statement.BalanceSheet)
	require.NoError(t, err)
	require.Len(t, mapped, len(items), "every input line must come back, matched or not")

	unmatched := 0
	for i, got := range mapped {
		assert.Equal(t, items[i].ID, got.ID)
		if got.Unmatched() {
			unmatched++
		}
	}
	assert.Equal(t, 1, unmatched)
}

func TestMatcher_MapAllUnknownType(t *testing.T) {
	m, _ := newTestMatcher(t)
	_, err := m.MapAll([]statement.LineItem{line("Cash", "1.00", "")}, statement.Type("ledger"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoChart))
}

func TestNameSimilarity(t *testing.T) {
	t.Run("EqualIsPerfect", func(t *testing.T) {
		assert.Equal(t, 100.0, nameSimilarity("RENTAL INCOME", "RENTAL INCOME"))
	})
	t.Run("ContainmentScalesWithLength", func(t *testing.T) {
		long := nameSimilarity("BUILDING", "BUILDINGS")
		short := nameSimilarity("CASH", "CASH RESERVES HELD IN TRUST")
		assert.Greater(t, long, short)
		assert.GreaterOrEqual(t, long, 85.0)
		assert.Less(t, short, 85.0)
	})
	t.Run("DisjointIsLow", func(t *testing.T) {
		assert.Less(t, nameSimilarity("LANDSCAPING", "MORTGAGE PAYABLE"), 50.0)
	})
}
