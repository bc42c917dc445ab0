package extraction

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineItems(t *testing.T) {
	attempt := Attempt{
		ID:     uuid.New(),
		Engine: EngineText,
		RawText: "ASSETS\n" +
			"Cash - Operating ........ 1,000.00\n" +
			"Prepaid Expenses $2,500.00\n" +
			"(unaudited)\n" +
			"\fLIABILITIES:\n" +
			"Accounts Payable\t500.00\n" +
			"Total Liabilities 500.00\n",
	}

	items := ParseLineItems(attempt)
	require.Len(t, items, 4)

	assert.Equal(t, "Cash - Operating", items[0].RawLabel)
	assert.Equal(t, "1,000.00", items[0].RawAmount)
	assert.Equal(t, 1, items[0].Page)
	assert.Equal(t, "ASSETS", items[0].Section)

	assert.Equal(t, "Prepaid Expenses", items[1].RawLabel)
	assert.Equal(t, "$2,500.00", items[1].RawAmount)

	assert.Equal(t, "Accounts Payable", items[2].RawLabel)
	assert.Equal(t, "500.00", items[2].RawAmount)
	assert.Equal(t, 2, items[2].Page, "the form feed advances the page counter")
	assert.Equal(t, "LIABILITIES", items[2].Section)

	assert.Equal(t, "Total Liabilities", items[3].RawLabel)

	for _, it := range items {
		assert.Equal(t, attempt.ID, it.SourceAttemptID)
		assert.NotEqual(t, uuid.Nil, it.ID)
	}
}

func TestParseLineItems_DropsFurniture(t *testing.T) {
	attempt := Attempt{ID: uuid.New(), RawText: "12345.67\n-----\n   \nStatement of Financial Position\n"}
	items := ParseLineItems(attempt)
	assert.Empty(t, items, "bare numbers, rules, and headings are not line items")
}

func TestSplitLabelAmount(t *testing.T) {
	tests := []struct {
		line       string
		wantLabel  string
		wantAmount string
	}{
		{"Rental Income\t12,000.00", "Rental Income", "12,000.00"},
		{"Rental Income 12,000.00", "Rental Income", "12,000.00"},
		{"Accumulated Depreciation (110,000.00)", "Accumulated Depreciation", "(110,000.00)"},
		{"Escrow Balance .... $3,200", "Escrow Balance", "$3,200"},
		{"Notes", "", ""},
		{"Col A\tCol B", "", ""},
	}
	for _, tt := range tests {
		label, amount := splitLabelAmount(tt.line)
		assert.Equal(t, tt.wantLabel, label, "line %q", tt.line)
		assert.Equal(t, tt.wantAmount, amount, "line %q", tt.line)
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "OPERATING EXPENSES", normalizeHeader("  Operating   Expenses: "))
}
