package export

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/propfolio/statement-pipeline/internal/domain/pipeline"
	"github.com/propfolio/statement-pipeline/internal/domain/review"
	"github.com/propfolio/statement-pipeline/internal/domain/statement"
	"github.com/propfolio/statement-pipeline/internal/domain/validation"
)

func sampleResult() *pipeline.Result {
	amt := decimal.RequireFromString("12000")
	lineID := uuid.New()
	return &pipeline.Result{
		Document: statement.Document{ID: uuid.New(), Type: statement.IncomeStatement},
		Items: []statement.MappedLineItem{{
			LineItem:          statement.LineItem{ID: lineID, RawLabel: "Rental Income", RawAmount: "12,000.00", Page: 1, Section: "INCOME"},
			AccountCode:       "4010-0000",
			AccountName:       "Rental Income",
			Method:            statement.MethodExactCode,
			MappingConfidence: 100,
			ParsedAmount:      &amt,
		}},
		Unmatched: []statement.MappedLineItem{{
			LineItem: statement.LineItem{ID: uuid.New(), RawLabel: "Mystery Fund", RawAmount: "1.00"},
			Method:   statement.MethodUnmatched,
		}},
		Validations: []validation.Result{{
			RuleName: "section_sum_income",
			Scope:    validation.ScopeSingleDocument,
			Severity: validation.SeverityCritical,
			Passed:   true,
			Expected: amt,
			Actual:   amt,
		}},
		Score:   review.ConfidenceScore{Document: 91.5, Quality: review.QualityGood},
		Outcome: review.OutcomeSpotCheck,
		Flags: []statement.ReviewFlag{
			statement.NewLineFlag(statement.FlagHigh, "no chart-of-accounts match for \"Mystery Fund\"", lineID),
		},
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "review.xlsx")
	require.NoError(t, WriteWorkbook(sampleResult(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{sheetLineItems, sheetRules, sheetFlags}, f.GetSheetList())

	label, err := f.GetCellValue(sheetLineItems, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Rental Income", label)

	// The unmatched line follows the mapped ones.
	method, err := f.GetCellValue(sheetLineItems, "H3")
	require.NoError(t, err)
	assert.Equal(t, "unmatched", method)

	rule, err := f.GetCellValue(sheetRules, "A2")
	require.NoError(t, err)
	assert.Equal(t, "section_sum_income", rule)

	category, err := f.GetCellValue(sheetFlags, "A2")
	require.NoError(t, err)
	assert.Equal(t, "high", category)
}
