package validation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/propfolio/statement-pipeline/internal/domain/statement"
	"github.com/propfolio/statement-pipeline/pkg/metrics"
)

// ErrNoRuleSet indicates no rules exist for a statement type: a deployment
// defect, surfaced as an error rather than a data-quality result.
var ErrNoRuleSet = errors.New("no rule set for statement type")

// Provider hands out the rule set for a statement type. Reference data;
// implementations must be safe for concurrent readers.
type Provider interface {
	Rules(t statement.Type) ([]Rule, error)
}

// BuiltinProvider serves the built-in reference rule sets.
type BuiltinProvider struct{}

// NewBuiltinProvider returns the reference rule provider.
func NewBuiltinProvider() *BuiltinProvider { return &BuiltinProvider{} }

// Rules returns the built-in rules for t.
func (BuiltinProvider) Rules(t statement.Type) ([]Rule, error) {
	rules, ok := builtinRules[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRuleSet, t)
	}
	return rules, nil
}

// Engine evaluates a rule set against a context. Evaluation is side-effect
// free and order-independent; every applicable rule's result is returned,
// pass or fail, so auditing always sees the complete picture.
type Engine struct {
	provider Provider
	logger   *slog.Logger
}

// NewEngine builds a validation engine over a rule provider.
func NewEngine(provider Provider, logger *slog.Logger) *Engine {
	return &Engine{provider: provider, logger: logger}
}

// Run evaluates every rule for the context's statement type and splits the
// results into intra-document validations and cross-document
// reconciliations. The only error is a missing rule set.
func (e *Engine) Run(rc *Context) (validations, reconciliations []Result, err error) {
	rules, err := e.provider.Rules(rc.Type)
	if err != nil {
		return nil, nil, err
	}

	for _, rule := range rules {
		for _, res := range rule.Check(rc) {
			if !res.Passed {
				metrics.RuleFailures.WithLabelValues(res.RuleName, string(res.Severity)).Inc()
				e.logger.Debug("rule failed",
					"rule", res.RuleName,
					"severity", res.Severity,
					"expected", res.Expected,
					"actual", res.Actual,
					"difference", res.Difference,
				)
			}
			if res.Scope == ScopeCrossDocument {
				reconciliations = append(reconciliations, res)
			} else {
				validations = append(validations, res)
			}
		}
	}
	return validations, reconciliations, nil
}
