package extraction

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/propfolio/statement-pipeline/pkg/config"
	"github.com/propfolio/statement-pipeline/pkg/metrics"
)

// Strategy selects how many engines run and how their results combine.
type Strategy string

const (
	// StrategyFast runs the single fastest engine.
	StrategyFast Strategy = "fast"
	// StrategyAuto runs the classifier's top engine choice.
	StrategyAuto Strategy = "auto"
	// StrategyAccurate walks the classifier's engine list until one clears
	// the good-enough bar, keeping the best attempt seen.
	StrategyAccurate Strategy = "accurate"
	// StrategyMultiEngine fans out across all engines and scores consensus.
	StrategyMultiEngine Strategy = "multi_engine"
)

// ConsensusLevel buckets how much multiple engines agree.
type ConsensusLevel string

const (
	ConsensusStrong   ConsensusLevel = "strong"
	ConsensusModerate ConsensusLevel = "moderate"
	ConsensusWeak     ConsensusLevel = "weak"
)

// Outcome is the orchestrator's result for one document. Primary is always
// the attempt from the engine with the highest individual confidence; the
// consensus score is reported separately and never used to blend text.
type Outcome struct {
	Classification Classification
	Attempts       []Attempt
	Primary        Attempt
	// Confidence is the document-level extraction confidence in 0..100.
	Confidence     float64
	Consensus      float64 // 0..1, meaningful for multi-engine runs
	ConsensusLevel ConsensusLevel
	// Failed is set when every adapter failed; the outcome still carries
	// the failed attempts for auditing.
	Failed bool
}

// Orchestrator runs extraction engines per the requested strategy. Engines
// are read-only after construction, so one orchestrator serves concurrent
// pipeline invocations.
type Orchestrator struct {
	engines map[EngineKind]Engine
	cfg     config.ExtractionConfig
	logger  *slog.Logger
}

// NewOrchestrator wires the adapter set. Missing engines degrade gracefully:
// a requested kind with no adapter is recorded as a failed attempt.
func NewOrchestrator(engines []Engine, cfg config.ExtractionConfig, logger *slog.Logger) *Orchestrator {
	byKind := make(map[EngineKind]Engine, len(engines))
	for _, e := range engines {
		byKind[e.Kind()] = e
	}
	return &Orchestrator{engines: byKind, cfg: cfg, logger: logger}
}

// Extract runs the strategy against the raw document bytes. It never returns
// an error for adapter failures; an all-fail run yields a zero-confidence
// outcome with Failed set.
func (o *Orchestrator) Extract(ctx context.Context, raw []byte, strategy Strategy) Outcome {
	cls := Classify(CollectSignals(raw))

	switch strategy {
	case StrategyFast:
		return o.single(ctx, raw, cls, EngineText)
	case StrategyAuto:
		return o.single(ctx, raw, cls, cls.Engines[0])
	case StrategyAccurate:
		return o.accurate(ctx, raw, cls)
	case StrategyMultiEngine:
		return o.multiEngine(ctx, raw, cls)
	default:
		return o.single(ctx, raw, cls, cls.Engines[0])
	}
}

func (o *Orchestrator) single(ctx context.Context, raw []byte, cls Classification, kind EngineKind) Outcome {
	a := o.invoke(ctx, kind, raw)
	return compose(cls, []Attempt{a})
}

func (o *Orchestrator) accurate(ctx context.Context, raw []byte, cls Classification) Outcome {
	var attempts []Attempt
	for _, kind := range cls.Engines {
		a := o.invoke(ctx, kind, raw)
		attempts = append(attempts, a)
		if a.Confidence >= o.cfg.GoodEnoughConfidence {
			break
		}
	}
	return compose(cls, attempts)
}

func (o *Orchestrator) multiEngine(ctx context.Context, raw []byte, cls Classification) Outcome {
	kinds := AllEngines()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	attempts := make([]Attempt, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind EngineKind) {
			defer wg.Done()
			a := o.invoke(ctx, kind, raw)
			attempts[i] = a
			// Early cancellation is an optimization only: composition below
			// is deterministic regardless of which adapters finished.
			if a.Confidence >= o.cfg.GoodEnoughConfidence {
				cancel()
			}
		}(i, kind)
	}
	wg.Wait()

	return compose(cls, attempts)
}

// invoke runs one adapter with its own timeout. A panic-free contract is
// expected from engines; errors and empty output become failed attempts.
func (o *Orchestrator) invoke(ctx context.Context, kind EngineKind, raw []byte) Attempt {
	eng, ok := o.engines[kind]
	if !ok {
		return failedAttempt(kind, time.Now(), errNoAdapter(kind))
	}

	if o.cfg.EngineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.EngineTimeout)
		defer cancel()
	}

	a, err := eng.Extract(ctx, raw)
	if err != nil {
		a = failedAttempt(kind, time.Now().Add(-a.Duration), err)
	}

	metrics.ExtractionDuration.WithLabelValues(string(kind)).Observe(a.Duration.Seconds())
	if a.Failed() {
		metrics.EngineFailures.WithLabelValues(string(kind)).Inc()
		o.logger.Warn("extraction adapter failed",
			"engine", kind,
			"duration_ms", a.Duration.Milliseconds(),
			"error", a.Err,
		)
	} else {
		o.logger.Debug("extraction adapter ok",
			"engine", kind,
			"duration_ms", a.Duration.Milliseconds(),
			"confidence", a.Confidence,
			"text_bytes", len(a.RawText),
		)
	}
	return a
}

type errNoAdapter EngineKind

func (e errNoAdapter) Error() string { return "no adapter registered for engine " + string(e) }

// compose builds the outcome deterministically from the attempt set: the
// highest individual confidence wins primary, with the fixed engine order
// breaking exact ties. Failed attempts stay in the record but are excluded
// from consensus math.
func compose(cls Classification, attempts []Attempt) Outcome {
	out := Outcome{Classification: cls, Attempts: attempts}

	var ok []Attempt
	for _, a := range attempts {
		if !a.Failed() {
			ok = append(ok, a)
		}
	}
	if len(ok) == 0 {
		out.Failed = true
		out.ConsensusLevel = ConsensusWeak
		return out
	}

	best := ok[0]
	for _, a := range ok[1:] {
		if a.Confidence > best.Confidence {
			best = a
		}
	}
	out.Primary = best
	out.Confidence = best.Confidence

	out.Consensus = consensusScore(ok)
	switch {
	case out.Consensus >= 0.9:
		out.ConsensusLevel = ConsensusStrong
	case out.Consensus >= 0.75:
		out.ConsensusLevel = ConsensusModerate
	default:
		out.ConsensusLevel = ConsensusWeak
	}
	return out
}

// consensusScore is the mean pairwise text similarity across successful
// attempts. A single attempt trivially agrees with itself.
func consensusScore(attempts []Attempt) float64 {
	if len(attempts) < 2 {
		return 1.0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(attempts); i++ {
		for j := i + 1; j < len(attempts); j++ {
			sum += textSimilarity(attempts[i].RawText, attempts[j].RawText)
			pairs++
		}
	}
	return sum / float64(pairs)
}

// textSimilarity is the Dice coefficient over token sets. Tokens rather than
// edit distance keep the comparison linear in document size and tolerant of
// whitespace differences between engines.
func textSimilarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	common := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common++
		}
	}
	return 2 * float64(common) / float64(len(ta)+len(tb))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToUpper(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
