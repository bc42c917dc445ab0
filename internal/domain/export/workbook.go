// Package export writes pipeline results into a review workbook so a human
// reviewer can work through flagged documents in a spreadsheet.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/propfolio/statement-pipeline/internal/domain/pipeline"
	"github.com/propfolio/statement-pipeline/internal/domain/statement"
	"github.com/propfolio/statement-pipeline/internal/domain/validation"
	"github.com/propfolio/statement-pipeline/pkg/amount"
)

const (
	sheetLineItems = "Line Items"
	sheetRules     = "Rules"
	sheetFlags     = "Flags"
)

// WriteWorkbook renders one pipeline result as an XLSX review workbook:
// a line-item sheet with mapping provenance, a rule sheet with every
// evaluated check, and a flag sheet ordered as produced.
func WriteWorkbook(res *pipeline.Result, outputPath string) error {
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), sheetLineItems)
	if _, err := f.NewSheet(sheetRules); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetFlags); err != nil {
		return err
	}

	writeLineItems(f, res)
	writeRules(f, res)
	writeFlags(f, res)

	summary := fmt.Sprintf("%s | confidence %.1f (%s) | outcome %s",
		res.Document.Type, res.Score.Document, res.Score.Quality, res.Outcome)
	if err := f.SetDocProps(&excelize.DocProperties{Title: summary}); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeLineItems(f *excelize.File, res *pipeline.Result) {
	headers := []string{
		"page", "section", "raw_label", "raw_amount", "parsed_amount",
		"account_code", "account_name", "method", "confidence", "subtotal", "total",
	}
	setHeaders(f, sheetLineItems, headers)

	rows := append(append([]statement.MappedLineItem{}, res.Items...), res.Unmatched...)
	for i, it := range rows {
		r := i + 2
		set := cellSetter(f, sheetLineItems, r)
		set(1, it.Page)
		set(2, it.Section)
		set(3, it.RawLabel)
		set(4, it.RawAmount)
		if it.ParsedAmount != nil {
			set(5, amount.FormatUSD(*it.ParsedAmount))
		}
		set(6, it.AccountCode)
		set(7, it.AccountName)
		set(8, string(it.Method))
		set(9, it.MappingConfidence)
		set(10, it.IsSubtotal)
		set(11, it.IsTotal)
	}
}

func writeRules(f *excelize.File, res *pipeline.Result) {
	headers := []string{
		"rule", "scope", "severity", "passed", "expected", "actual", "difference", "detail",
	}
	setHeaders(f, sheetRules, headers)

	rows := append(append([]validation.Result{}, res.Validations...), res.Reconciliations...)
	for i, r := range rows {
		row := i + 2
		set := cellSetter(f, sheetRules, row)
		set(1, r.RuleName)
		set(2, string(r.Scope))
		set(3, string(r.Severity))
		set(4, r.Passed)
		set(5, amount.FormatUSD(r.Expected))
		set(6, amount.FormatUSD(r.Actual))
		set(7, amount.FormatUSD(r.Difference))
		set(8, r.Detail)
	}
}

func writeFlags(f *excelize.File, res *pipeline.Result) {
	setHeaders(f, sheetFlags, []string{"category", "reason", "line_item_id"})

	for i, fl := range res.Flags {
		r := i + 2
		set := cellSetter(f, sheetFlags, r)
		set(1, string(fl.Category))
		set(2, fl.Reason)
		if fl.LineItemID != nil {
			set(3, fl.LineItemID.String())
		}
	}
}

func setHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func cellSetter(f *excelize.File, sheet string, row int) func(col int, value any) {
	return func(col int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, value)
	}
}
