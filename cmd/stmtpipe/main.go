// Command stmtpipe runs the statement pipeline on a single PDF and writes a
// review workbook next to it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/propfolio/statement-pipeline/internal/domain/accounts"
	"github.com/propfolio/statement-pipeline/internal/domain/export"
	"github.com/propfolio/statement-pipeline/internal/domain/extraction"
	"github.com/propfolio/statement-pipeline/internal/domain/pipeline"
	"github.com/propfolio/statement-pipeline/internal/domain/statement"
	"github.com/propfolio/statement-pipeline/internal/domain/validation"
	"github.com/propfolio/statement-pipeline/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stmtpipe:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		input    = flag.String("input", "", "path to the statement PDF (required)")
		typeName = flag.String("type", "", "statement type: "+typeList()+" (required)")
		property = flag.String("property", "", "property UUID (optional, random when empty)")
		period   = flag.String("period", "", "reporting period as YYYY-MM (optional)")
		strategy = flag.String("strategy", string(extraction.StrategyAuto), "extraction strategy: fast, auto, accurate, multi_engine")
		output   = flag.String("output", "", "review workbook path (default: <input>.review.xlsx)")
	)
	flag.Parse()

	if *input == "" || *typeName == "" {
		flag.Usage()
		return fmt.Errorf("-input and -type are required")
	}

	t := statement.Type(*typeName)
	if !t.Valid() {
		return fmt.Errorf("unknown statement type %q, want one of: %s", *typeName, typeList())
	}

	prop := statement.PropertyContext{PropertyID: uuid.New()}
	if *property != "" {
		id, err := uuid.Parse(*property)
		if err != nil {
			return fmt.Errorf("invalid property id: %w", err)
		}
		prop.PropertyID = id
	}
	if *period != "" {
		p, err := time.Parse("2006-01", *period)
		if err != nil {
			return fmt.Errorf("invalid period, want YYYY-MM: %w", err)
		}
		prop.Period = p
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	cfg := config.Load()

	chart, err := accounts.NewEmbeddedProvider()
	if err != nil {
		return fmt.Errorf("failed to load chart of accounts: %w", err)
	}

	p := pipeline.New(cfg, []extraction.Engine{
		extraction.NewTextEngine(),
		extraction.NewTableEngine(),
		extraction.NewOCREngine(cfg.OCR),
	}, pipeline.Providers{
		Chart: chart,
		Rules: validation.NewBuiltinProvider(),
	}, logger)

	res, err := p.Process(context.Background(), raw, t, prop, extraction.Strategy(*strategy))
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(*input, ".pdf") + ".review.xlsx"
	}
	if err := export.WriteWorkbook(res, out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	printSummary(res, out)
	return nil
}

func printSummary(res *pipeline.Result, workbook string) {
	fmt.Printf("document:    %s (%s)\n", res.Document.ID, res.Document.Type)
	fmt.Printf("shape:       %s (engines: %v)\n", res.Classification.Shape, res.Classification.Engines)
	fmt.Printf("extraction:  confidence %.1f, consensus %s\n", res.Extraction.Confidence, res.Extraction.ConsensusLevel)
	fmt.Printf("line items:  %d mapped, %d unmatched\n", len(res.Items), len(res.Unmatched))

	failed := 0
	for _, r := range res.Validations {
		if !r.Passed {
			failed++
		}
	}
	for _, r := range res.Reconciliations {
		if !r.Passed {
			failed++
		}
	}
	fmt.Printf("rules:       %d evaluated, %d failed\n", len(res.Validations)+len(res.Reconciliations), failed)
	fmt.Printf("confidence:  %.1f (%s)\n", res.Score.Document, res.Score.Quality)
	fmt.Printf("outcome:     %s\n", res.Outcome)
	for _, fl := range res.Flags {
		fmt.Printf("  [%s] %s\n", fl.Category, fl.Reason)
	}
	fmt.Printf("workbook:    %s\n", workbook)
}

func typeList() string {
	names := make([]string, 0, len(statement.AllTypes()))
	for _, t := range statement.AllTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
