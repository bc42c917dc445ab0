// Package pipeline is the single entry point of the core: raw statement PDF
// bytes in, a complete validated record set out. The pipeline is a pure
// function per invocation; the host decides how invocations are scheduled.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/propfolio/statement-pipeline/internal/domain/accounts"
	"github.com/propfolio/statement-pipeline/internal/domain/extraction"
	"github.com/propfolio/statement-pipeline/internal/domain/review"
	"github.com/propfolio/statement-pipeline/internal/domain/statement"
	"github.com/propfolio/statement-pipeline/internal/domain/validation"
	"github.com/propfolio/statement-pipeline/pkg/config"
	"github.com/propfolio/statement-pipeline/pkg/metrics"
)

// ErrUnknownStatementType indicates a statement type outside the closed set.
var ErrUnknownStatementType = errors.New("unknown statement type")

// PriorPeriodProvider returns the mapped line items persisted for the same
// property and statement type in the adjacent prior period. Absence is a
// normal answer, not an error: dependent rules are skipped.
type PriorPeriodProvider interface {
	PriorPeriod(ctx context.Context, prop statement.PropertyContext, t statement.Type) ([]statement.MappedLineItem, bool)
}

// SiblingProvider returns the mapped line items of another statement type
// for the same property and period, for cross-document reconciliation.
type SiblingProvider interface {
	Sibling(ctx context.Context, prop statement.PropertyContext, t statement.Type) ([]statement.MappedLineItem, bool)
}

// Providers bundles the read-only collaborators a pipeline run consumes.
// Chart and Rules are required; the lookups are optional.
type Providers struct {
	Chart       accounts.Provider
	Rules       validation.Provider
	PriorPeriod PriorPeriodProvider
	Sibling     SiblingProvider
}

// Result is the one complete output of a pipeline run. There is no partial
// state: the caller gets this struct or a configuration error.
type Result struct {
	Document       statement.Document
	Classification extraction.Classification
	Extraction     extraction.Outcome
	// Items holds the mapped line items; Unmatched holds the retained
	// needs-mapping bucket. Together they account for every extracted line.
	Items           []statement.MappedLineItem
	Unmatched       []statement.MappedLineItem
	Validations     []validation.Result
	Reconciliations []validation.Result
	Score           review.ConfidenceScore
	Outcome         review.Outcome
	Flags           []statement.ReviewFlag
}

// Pipeline wires the stages together. All state is read-only after
// construction, so one Pipeline serves any number of concurrent runs.
type Pipeline struct {
	orchestrator *extraction.Orchestrator
	matcher      *accounts.Matcher
	engine       *validation.Engine
	aggregator   *review.Aggregator
	providers    Providers
	logger       *slog.Logger
}

// New assembles a pipeline from its stages and collaborators.
func New(cfg *config.Config, engines []extraction.Engine, providers Providers, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		orchestrator: extraction.NewOrchestrator(engines, cfg.Extraction, logger),
		matcher:      accounts.NewMatcher(providers.Chart, accounts.DefaultPolicy()),
		engine:       validation.NewEngine(providers.Rules, logger),
		aggregator:   review.NewAggregator(cfg.Review),
		providers:    providers,
		logger:       logger,
	}
}

// Process runs the full extraction-to-validated-record pipeline on one
// document. Adapter failures, unmatched accounts, malformed amounts, and
// failed rules are all returned as data; the only errors are configuration
// defects (unknown type, missing chart, missing rule set).
func (p *Pipeline) Process(ctx context.Context, raw []byte, t statement.Type, prop statement.PropertyContext, strategy extraction.Strategy) (*Result, error) {
	if !t.Valid() {
		return nil, ErrUnknownStatementType
	}
	// Fail fast on deployment defects before any extraction work.
	chart, err := p.providers.Chart.Chart(t)
	if err != nil {
		return nil, err
	}
	if _, err := p.providers.Rules.Rules(t); err != nil {
		return nil, err
	}

	doc := statement.NewDocument(raw, t, prop)
	res := &Result{Document: doc}

	res.Extraction = p.orchestrator.Extract(ctx, doc.Bytes, strategy)
	res.Classification = res.Extraction.Classification

	var lines []statement.LineItem
	if !res.Extraction.Failed {
		lines = extraction.ParseLineItems(res.Extraction.Primary)
	}

	for _, line := range lines {
		mapped := p.matcher.Match(line, chart)
		if mapped.Unmatched() {
			metrics.UnmatchedLineItems.Inc()
			res.Unmatched = append(res.Unmatched, mapped)
		} else {
			res.Items = append(res.Items, mapped)
		}
	}

	rc := validation.NewContext(t, res.Items, chart)
	rc.Sibling = p.siblingContext(ctx, prop)
	if p.providers.PriorPeriod != nil {
		if prior, ok := p.providers.PriorPeriod.PriorPeriod(ctx, prop, t); ok {
			rc.Prior = validation.NewContext(t, prior, chart)
		}
	}

	res.Validations, res.Reconciliations, err = p.engine.Run(rc)
	if err != nil {
		return nil, err
	}

	all := append(res.Items, res.Unmatched...)
	decision := p.aggregator.Aggregate(t, all, res.Validations, res.Reconciliations, res.Extraction)
	res.Score = decision.Score
	res.Outcome = decision.Outcome
	res.Flags = decision.Flags

	metrics.DocumentsProcessed.WithLabelValues(string(t), string(res.Outcome)).Inc()
	p.logger.Info("document processed",
		"statement_type", t,
		"property_id", prop.PropertyID,
		"shape", res.Classification.Shape,
		"lines", len(lines),
		"unmatched", len(res.Unmatched),
		"confidence", res.Score.Document,
		"outcome", res.Outcome,
	)
	return res, nil
}

// siblingContext builds the lazy cross-document lookup the rule engine
// consumes. A sibling whose chart cannot load is treated as absent.
func (p *Pipeline) siblingContext(ctx context.Context, prop statement.PropertyContext) func(statement.Type) (*validation.Context, bool) {
	if p.providers.Sibling == nil {
		return nil
	}
	return func(t statement.Type) (*validation.Context, bool) {
		items, ok := p.providers.Sibling.Sibling(ctx, prop, t)
		if !ok {
			return nil, false
		}
		chart, err := p.providers.Chart.Chart(t)
		if err != nil {
			return nil, false
		}
		return validation.NewContext(t, items, chart), true
	}
}
