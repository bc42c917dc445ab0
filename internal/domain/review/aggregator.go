// Package review combines mapping confidences, extraction confidence, and
// validation outcomes into a single document decision: auto-approve,
// spot-check, full review, or reject.
package review

import (
	"fmt"

	"github.com/propfolio/statement-pipeline/internal/domain/extraction"
	"github.com/propfolio/statement-pipeline/internal/domain/statement"
	"github.com/propfolio/statement-pipeline/internal/domain/validation"
	"github.com/propfolio/statement-pipeline/pkg/amount"
	"github.com/propfolio/statement-pipeline/pkg/config"
)

// Quality buckets the document-level confidence.
type Quality string

const (
	QualityExcellent  Quality = "excellent"
	QualityGood       Quality = "good"
	QualityAcceptable Quality = "acceptable"
	QualityPoor       Quality = "poor"
	QualityFailed     Quality = "failed"
)

// Outcome is the review routing decision.
type Outcome string

const (
	OutcomeAutoApprove Outcome = "auto_approve"
	OutcomeSpotCheck   Outcome = "spot_check"
	OutcomeReview      Outcome = "review"
	// OutcomeReject means the record must not persist as final; the
	// document routes back to manual re-extraction.
	OutcomeReject Outcome = "reject"
)

// ConfidenceScore carries per-field and aggregate confidence.
type ConfidenceScore struct {
	// PerField maps line-item IDs to their mapping confidence.
	PerField map[string]float64
	Document float64
	Quality  Quality
}

// Decision is the aggregator's full output.
type Decision struct {
	Score   ConfidenceScore
	Outcome Outcome
	Flags   []statement.ReviewFlag
}

// minExpectedLines is the floor below which the completeness term starts
// penalizing, per statement type.
var minExpectedLines = map[statement.Type]int{
	statement.BalanceSheet:      8,
	statement.IncomeStatement:   6,
	statement.CashFlow:          5,
	statement.RentRoll:          3,
	statement.MortgageStatement: 3,
}

// spotCheckFieldFloor marks individual fields worth flagging when the
// document as a whole passes.
const spotCheckFieldFloor = 85

// Aggregator applies the confidence formula and routing thresholds.
type Aggregator struct {
	cfg config.ReviewConfig
}

// NewAggregator builds an aggregator with the given thresholds.
func NewAggregator(cfg config.ReviewConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate computes the document confidence and routing decision:
//
//	0.4*avg(mapping) + 0.3*(critical pass rate*100) + 0.2*extraction + 0.1*completeness
//
// A single failed critical rule forces at least a full review regardless of
// the numeric score; critical failures are never masked by a high aggregate.
func (ag *Aggregator) Aggregate(
	t statement.Type,
	items []statement.MappedLineItem,
	validations, reconciliations []validation.Result,
	ext extraction.Outcome,
) Decision {
	var d Decision
	d.Score.PerField = make(map[string]float64, len(items))

	mappingSum := 0.0
	for _, it := range items {
		d.Score.PerField[it.ID.String()] = it.MappingConfidence
		mappingSum += it.MappingConfidence
	}
	avgMapping := 0.0
	if len(items) > 0 {
		avgMapping = mappingSum / float64(len(items))
	}

	criticalTotal, criticalPassed := 0, 0
	criticalFailed := false
	all := append(append([]validation.Result{}, validations...), reconciliations...)
	for _, res := range all {
		if res.Severity != validation.SeverityCritical {
			continue
		}
		criticalTotal++
		if res.Passed {
			criticalPassed++
		} else {
			criticalFailed = true
		}
	}
	criticalRate := 100.0
	if criticalTotal > 0 {
		criticalRate = 100 * float64(criticalPassed) / float64(criticalTotal)
	}

	completeness := completenessScore(t, len(items))

	d.Score.Document = 0.4*avgMapping + 0.3*criticalRate + 0.2*ext.Confidence + 0.1*completeness

	d.Flags = ag.collectFlags(items, all, ext)

	switch {
	case ext.Failed:
		d.Score.Quality = QualityFailed
		d.Outcome = OutcomeReject
	case d.Score.Document >= ag.cfg.AutoApproveThreshold:
		d.Score.Quality = QualityExcellent
		d.Outcome = OutcomeAutoApprove
	case d.Score.Document >= ag.cfg.SpotCheckThreshold:
		d.Score.Quality = QualityGood
		d.Outcome = OutcomeSpotCheck
	case d.Score.Document >= ag.cfg.ReviewThreshold:
		d.Score.Quality = QualityAcceptable
		d.Outcome = OutcomeReview
	default:
		d.Score.Quality = QualityPoor
		d.Outcome = OutcomeReject
	}

	// Critical failures escalate past the numeric score, but never soften
	// an outcome that is already review or reject.
	if criticalFailed && (d.Outcome == OutcomeAutoApprove || d.Outcome == OutcomeSpotCheck) {
		d.Outcome = OutcomeReview
	}

	if d.Outcome == OutcomeSpotCheck {
		for _, it := range items {
			if !it.Unmatched() && it.MappingConfidence < spotCheckFieldFloor {
				d.Flags = append(d.Flags, statement.NewLineFlag(statement.FlagMedium,
					fmt.Sprintf("low mapping confidence (%.0f) for %q", it.MappingConfidence, it.RawLabel), it.ID))
			}
		}
	}
	if d.Outcome == OutcomeReject {
		d.Flags = append(d.Flags, statement.NewFlag(statement.FlagCritical,
			"document rejected; route to manual re-extraction"))
	}

	return d
}

func completenessScore(t statement.Type, lines int) float64 {
	min, ok := minExpectedLines[t]
	if !ok || min == 0 {
		return 100
	}
	if lines >= min {
		return 100
	}
	return 100 * float64(lines) / float64(min)
}

// collectFlags translates per-item and per-rule findings into review flags.
// Flags are append-only and never discarded downstream.
func (ag *Aggregator) collectFlags(items []statement.MappedLineItem, results []validation.Result, ext extraction.Outcome) []statement.ReviewFlag {
	var flags []statement.ReviewFlag

	for _, it := range items {
		if it.Unmatched() {
			flags = append(flags, statement.NewLineFlag(statement.FlagHigh,
				fmt.Sprintf("no chart-of-accounts match for %q", it.RawLabel), it.ID))
		}
		if it.ParsedAmount == nil {
			flags = append(flags, statement.NewLineFlag(statement.FlagMedium,
				fmt.Sprintf("unparseable amount %q for %q", it.RawAmount, it.RawLabel), it.ID))
		}
	}

	for _, res := range results {
		if res.Passed {
			continue
		}
		reason := res.Detail
		if reason == "" {
			reason = fmt.Sprintf("%s failed: expected %s, got %s (off by %s)",
				res.RuleName, amount.FormatUSD(res.Expected), amount.FormatUSD(res.Actual), amount.FormatUSD(res.Difference))
		}
		switch res.Severity {
		case validation.SeverityCritical:
			flags = append(flags, statement.NewFlag(statement.FlagCritical, reason))
		case validation.SeverityWarning:
			flags = append(flags, statement.NewFlag(statement.FlagMedium, reason))
		default:
			flags = append(flags, statement.NewFlag(statement.FlagLow, reason))
		}
	}

	if ext.Failed {
		flags = append(flags, statement.NewFlag(statement.FlagCritical, "all extraction engines failed"))
	} else if len(ext.Attempts) > 1 && ext.ConsensusLevel == extraction.ConsensusWeak {
		flags = append(flags, statement.NewFlag(statement.FlagMedium,
			fmt.Sprintf("weak consensus (%.2f) between extraction engines", ext.Consensus)))
	}

	return flags
}
