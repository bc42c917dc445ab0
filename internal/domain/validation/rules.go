// Package validation evaluates declarative arithmetic rules against mapped
// line items: intra-document balance checks, cross-document tie-outs, trend
// checks against the prior period, and informational inspections. Rules are
// pure and order-independent; a failed rule is data, never an error.
package validation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/propfolio/statement-pipeline/internal/domain/accounts"
	"github.com/propfolio/statement-pipeline/internal/domain/statement"
)

// Severity grades a rule.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Scope separates intra-document rules from cross-document tie-outs.
type Scope string

const (
	ScopeSingleDocument Scope = "single_document"
	ScopeCrossDocument  Scope = "cross_document"
)

// Result is one rule evaluation. Append-only audit data: the engine returns
// every evaluated rule's result, pass or fail.
type Result struct {
	RuleName   string
	Scope      Scope
	Severity   Severity
	Passed     bool
	Expected   decimal.Decimal
	Actual     decimal.Decimal
	Difference decimal.Decimal
	// Detail carries rule-specific context, e.g. the account a trend check
	// fired on.
	Detail string
}

// Check is a pure function over a rule context. It returns no results when
// the inputs it depends on are absent; missing collaborator data skips the
// rule rather than failing the run.
type Check func(rc *Context) []Result

// Rule pairs a named, scoped, graded check with its evaluation function.
type Rule struct {
	Name     string
	Scope    Scope
	Severity Severity
	Check    Check
}

// Context is the named-field view of one document's mapped line items,
// keyed by account code, plus hooks to sibling-document and prior-period
// contexts. It is read-only during evaluation.
type Context struct {
	Type   statement.Type
	fields map[string]decimal.Decimal
	chart  map[string]accounts.ChartEntry

	// Sibling returns the context for another statement type in the same
	// property and period, if the collaborator can provide it.
	Sibling func(statement.Type) (*Context, bool)
	// Prior is the context for the adjacent prior period, nil when absent.
	Prior *Context
}

// NewContext folds mapped line items into a field context. Unmatched items
// and items without a parseable amount carry no fields; duplicate codes sum.
func NewContext(t statement.Type, items []statement.MappedLineItem, chart []accounts.ChartEntry) *Context {
	fields := make(map[string]decimal.Decimal)
	for _, it := range items {
		if it.AccountCode == "" || it.ParsedAmount == nil {
			continue
		}
		fields[it.AccountCode] = fields[it.AccountCode].Add(*it.ParsedAmount)
	}
	byCode := make(map[string]accounts.ChartEntry, len(chart))
	for _, e := range chart {
		byCode[e.Code] = e
	}
	return &Context{Type: t, fields: fields, chart: byCode}
}

// Get returns the summed amount for an account code.
func (rc *Context) Get(code string) (decimal.Decimal, bool) {
	d, ok := rc.fields[code]
	return d, ok
}

// Codes returns every account code present in the context, in sorted order
// so per-code rule results come out the same way every run.
func (rc *Context) Codes() []string {
	out := make([]string, 0, len(rc.fields))
	for code := range rc.fields {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Entry returns the chart entry for a code present in the chart.
func (rc *Context) Entry(code string) (accounts.ChartEntry, bool) {
	e, ok := rc.chart[code]
	return e, ok
}

// SumLeaves totals the present leaf descendants of a subtotal or total
// account, walking parent chains and skipping subtotal/total rows so a
// document that lists both leaves and subtotals is not double counted.
func (rc *Context) SumLeaves(parentCode string) (decimal.Decimal, int) {
	sum := decimal.Zero
	n := 0
	for code, val := range rc.fields {
		e, ok := rc.chart[code]
		if !ok || e.IsTotal || e.IsSubtotal {
			continue
		}
		if rc.descendsFrom(code, parentCode) {
			sum = sum.Add(val)
			n++
		}
	}
	return sum, n
}

func (rc *Context) descendsFrom(code, ancestor string) bool {
	for i := 0; i < 8; i++ { // parent chains are shallow; bound the walk
		e, ok := rc.chart[code]
		if !ok || e.ParentCode == "" {
			return false
		}
		if e.ParentCode == ancestor {
			return true
		}
		code = e.ParentCode
	}
	return false
}

// sibling fetches a sibling context when the hook and document exist.
func (rc *Context) sibling(t statement.Type) (*Context, bool) {
	if rc.Sibling == nil {
		return nil, false
	}
	return rc.Sibling(t)
}

// withinTolerance builds a check asserting |actual - expected| <= tol.
// The boundary is inclusive on the pass side.
func withinTolerance(name string, scope Scope, sev Severity, tol decimal.Decimal, eval func(rc *Context) (expected, actual decimal.Decimal, ok bool)) Rule {
	return Rule{Name: name, Scope: scope, Severity: sev, Check: func(rc *Context) []Result {
		expected, actual, ok := eval(rc)
		if !ok {
			return nil
		}
		diff := actual.Sub(expected).Abs()
		return []Result{{
			RuleName:   name,
			Scope:      scope,
			Severity:   sev,
			Passed:     diff.LessThanOrEqual(tol),
			Expected:   expected,
			Actual:     actual,
			Difference: diff,
		}}
	}}
}

// atMost builds a check asserting actual <= bound.
func atMost(name string, sev Severity, bound decimal.Decimal, eval func(rc *Context) (decimal.Decimal, bool)) Rule {
	return Rule{Name: name, Scope: ScopeSingleDocument, Severity: sev, Check: func(rc *Context) []Result {
		actual, ok := eval(rc)
		if !ok {
			return nil
		}
		return []Result{{
			RuleName:   name,
			Scope:      ScopeSingleDocument,
			Severity:   sev,
			Passed:     actual.LessThanOrEqual(bound),
			Expected:   bound,
			Actual:     actual,
			Difference: actual.Sub(bound).Abs(),
		}}
	}}
}

// atLeast builds a check asserting actual >= bound.
func atLeast(name string, scope Scope, sev Severity, bound decimal.Decimal, eval func(rc *Context) (decimal.Decimal, bool)) Rule {
	return Rule{Name: name, Scope: scope, Severity: sev, Check: func(rc *Context) []Result {
		actual, ok := eval(rc)
		if !ok {
			return nil
		}
		return []Result{{
			RuleName:   name,
			Scope:      scope,
			Severity:   sev,
			Passed:     actual.GreaterThanOrEqual(bound),
			Expected:   bound,
			Actual:     actual,
			Difference: actual.Sub(bound).Abs(),
		}}
	}}
}
