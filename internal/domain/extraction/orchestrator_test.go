package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propfolio/statement-pipeline/pkg/config"
)

// stubEngine returns canned output so orchestration logic can be tested
// without real PDFs.
type stubEngine struct {
	kind EngineKind
	text string
	conf float64
	err  error
}

func (s stubEngine) Kind() EngineKind { return s.kind }

func (s stubEngine) Extract(_ context.Context, _ []byte) (Attempt, error) {
	if s.err != nil {
		return Attempt{}, s.err
	}
	return Attempt{
		ID:         uuid.New(),
		Engine:     s.kind,
		RawText:    s.text,
		Confidence: s.conf,
	}, nil
}

func testOrchestrator(engines ...Engine) *Orchestrator {
	cfg := config.ExtractionConfig{EngineTimeout: time.Second, GoodEnoughConfidence: 98}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(engines, cfg, logger)
}

func TestOrchestrator_MultiEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("HighestConfidenceWinsPrimary", func(t *testing.T) {
		o := testOrchestrator(
			stubEngine{kind: EngineText, text: "RENTAL INCOME 1000", conf: 90},
			stubEngine{kind: EngineTable, text: "RENTAL INCOME 1000", conf: 80},
			stubEngine{kind: EngineOCR, text: "RENTAL INCOME 1000", conf: 60},
		)
		out := o.Extract(ctx, nil, StrategyMultiEngine)
		require.False(t, out.Failed)
		assert.Equal(t, EngineText, out.Primary.Engine)
		assert.Equal(t, 90.0, out.Confidence)
		assert.Len(t, out.Attempts, 3)
		assert.Equal(t, ConsensusStrong, out.ConsensusLevel)
		assert.InDelta(t, 1.0, out.Consensus, 1e-9)
	})

	t.Run("FailedAdapterExcludedFromConsensus", func(t *testing.T) {
		o := testOrchestrator(
			stubEngine{kind: EngineText, err: errors.New("encrypted stream")},
			stubEngine{kind: EngineTable, text: "CASH 500", conf: 70},
			stubEngine{kind: EngineOCR, text: "CASH 500", conf: 50},
		)
		out := o.Extract(ctx, nil, StrategyMultiEngine)
		require.False(t, out.Failed)
		assert.Equal(t, EngineTable, out.Primary.Engine)
		assert.InDelta(t, 1.0, out.Consensus, 1e-9, "the failed attempt must not drag consensus down")
		assert.Len(t, out.Attempts, 3, "failed attempts stay in the audit record")
	})

	t.Run("DisjointTextIsWeakConsensus", func(t *testing.T) {
		o := testOrchestrator(
			stubEngine{kind: EngineText, text: "ALPHA BETA GAMMA", conf: 80},
			stubEngine{kind: EngineTable, text: "DELTA EPSILON ZETA", conf: 75},
		)
		out := o.Extract(ctx, nil, StrategyMultiEngine)
		require.False(t, out.Failed)
		assert.Equal(t, ConsensusWeak, out.ConsensusLevel)
		assert.InDelta(t, 0, out.Consensus, 1e-9)
	})

	t.Run("AllEnginesFailed", func(t *testing.T) {
		o := testOrchestrator(
			stubEngine{kind: EngineText, err: errors.New("boom")},
			stubEngine{kind: EngineTable, err: errors.New("boom")},
			stubEngine{kind: EngineOCR, err: errors.New("boom")},
		)
		out := o.Extract(ctx, nil, StrategyMultiEngine)
		assert.True(t, out.Failed)
		assert.Zero(t, out.Confidence)
		assert.Len(t, out.Attempts, 3)
	})

	t.Run("AgreeingEngineNeverLowersConfidence", func(t *testing.T) {
		solo := testOrchestrator(stubEngine{kind: EngineText, text: "NET INCOME 42", conf: 90})
		duo := testOrchestrator(
			stubEngine{kind: EngineText, text: "NET INCOME 42", conf: 90},
			stubEngine{kind: EngineTable, text: "NET INCOME 42", conf: 95},
		)
		a := solo.Extract(ctx, nil, StrategyMultiEngine)
		b := duo.Extract(ctx, nil, StrategyMultiEngine)
		assert.GreaterOrEqual(t, b.Confidence, a.Confidence)
	})
}

func TestOrchestrator_SingleStrategies(t *testing.T) {
	ctx := context.Background()

	t.Run("FastUsesTextEngine", func(t *testing.T) {
		o := testOrchestrator(
			stubEngine{kind: EngineText, text: "CASH 100", conf: 55},
			stubEngine{kind: EngineOCR, text: "CASH 100", conf: 99},
		)
		out := o.Extract(ctx, nil, StrategyFast)
		require.Len(t, out.Attempts, 1)
		assert.Equal(t, EngineText, out.Primary.Engine)
		assert.InDelta(t, 1.0, out.Consensus, 1e-9, "a single attempt trivially agrees with itself")
	})

	t.Run("MissingAdapterFails", func(t *testing.T) {
		o := testOrchestrator(stubEngine{kind: EngineOCR, text: "CASH 100", conf: 80})
		out := o.Extract(ctx, nil, StrategyFast)
		assert.True(t, out.Failed)
	})

	t.Run("AccurateStopsAtGoodEnough", func(t *testing.T) {
		o := testOrchestrator(
			stubEngine{kind: EngineText, text: "CASH 100", conf: 99},
			stubEngine{kind: EngineTable, text: "CASH 100", conf: 80},
			stubEngine{kind: EngineOCR, text: "CASH 100", conf: 80},
		)
		// Unreadable bytes classify as mixed, so the engine walk starts at text.
		out := o.Extract(ctx, nil, StrategyAccurate)
		require.False(t, out.Failed)
		assert.Len(t, out.Attempts, 1, "a good-enough first attempt short-circuits the walk")
		assert.Equal(t, EngineText, out.Primary.Engine)
	})
}

func TestTextSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, textSimilarity("CASH 100", "cash 100"), 1e-9, "token comparison is case-insensitive")
	assert.InDelta(t, 1.0, textSimilarity("", ""), 1e-9)
	assert.InDelta(t, 0, textSimilarity("CASH", ""), 1e-9)
	mid := textSimilarity("CASH RENT TAXES", "CASH RENT INSURANCE")
	assert.Greater(t, mid, 0.5)
	assert.Less(t, mid, 1.0)
}
