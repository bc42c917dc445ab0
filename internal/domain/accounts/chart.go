// Package accounts holds the canonical chart of accounts and the matcher
// that maps extracted line items onto it.
package accounts

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/propfolio/statement-pipeline/internal/domain/statement"
)

// ExpectedSign constrains the sign an account's balance normally carries.
type ExpectedSign string

const (
	SignPositive ExpectedSign = "positive"
	SignNegative ExpectedSign = "negative"
	SignEither   ExpectedSign = "either"
)

// ChartEntry is one canonical account. Reference data: loaded once and
// read-only for the life of the process.
type ChartEntry struct {
	Code        string       `csv:"code"`
	Name        string       `csv:"name"`
	Category    string       `csv:"category"`
	Subcategory string       `csv:"subcategory"`
	Sign        ExpectedSign `csv:"expected_sign"`
	IsContra    bool         `csv:"is_contra"`
	IsSubtotal  bool         `csv:"is_subtotal"`
	IsTotal     bool         `csv:"is_total"`
	ParentCode  string       `csv:"parent_code"`
	Deprecated  bool         `csv:"deprecated"`
}

// Provider hands out the chart restricted to one statement type's code
// range. Implementations must be safe for concurrent readers.
type Provider interface {
	Chart(t statement.Type) ([]ChartEntry, error)
}

// ErrNoChart indicates no chart of accounts exists for a statement type.
// This is a deployment defect, not a data-quality problem, and is fatal.
var ErrNoChart = errors.New("no chart of accounts for statement type")

// codeRange is an inclusive span of the leading four-digit account block.
type codeRange struct{ lo, hi int }

var rangesByType = map[statement.Type][]codeRange{
	statement.BalanceSheet:      {{1000, 3999}},
	statement.IncomeStatement:   {{4000, 5999}},
	statement.CashFlow:          {{6000, 6999}},
	statement.MortgageStatement: {{7000, 7499}},
	statement.RentRoll:          {{7500, 7999}},
}

//go:embed chart.csv
var chartCSV []byte

// LoadChart parses the embedded reference chart.
func LoadChart() ([]ChartEntry, error) {
	var entries []ChartEntry
	if err := gocsv.UnmarshalBytes(chartCSV, &entries); err != nil {
		return nil, fmt.Errorf("parse chart of accounts: %w", err)
	}
	for _, e := range entries {
		if !ValidCode(e.Code) {
			return nil, fmt.Errorf("chart of accounts: invalid code %q", e.Code)
		}
	}
	return entries, nil
}

// StaticProvider serves a fixed chart filtered by statement code ranges.
type StaticProvider struct {
	entries []ChartEntry
}

// NewStaticProvider wraps an already-loaded chart.
func NewStaticProvider(entries []ChartEntry) *StaticProvider {
	return &StaticProvider{entries: entries}
}

// NewEmbeddedProvider loads the embedded reference chart.
func NewEmbeddedProvider() (*StaticProvider, error) {
	entries, err := LoadChart()
	if err != nil {
		return nil, err
	}
	return NewStaticProvider(entries), nil
}

// Chart returns the entries whose codes fall in the statement type's range.
func (p *StaticProvider) Chart(t statement.Type) ([]ChartEntry, error) {
	ranges, ok := rangesByType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoChart, t)
	}
	var out []ChartEntry
	for _, e := range p.entries {
		if codeInRanges(e.Code, ranges) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChart, t)
	}
	return out, nil
}

// ValidCode reports whether s is a canonical NNNN-NNNN account code.
func ValidCode(s string) bool {
	if len(s) != 9 || s[4] != '-' {
		return false
	}
	for i, r := range s {
		if i == 4 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func codeInRanges(code string, ranges []codeRange) bool {
	if !ValidCode(code) {
		return false
	}
	block, err := strconv.Atoi(code[:4])
	if err != nil {
		return false
	}
	for _, r := range ranges {
		if block >= r.lo && block <= r.hi {
			return true
		}
	}
	return false
}

// normalizeName uppercases and strips punctuation for name comparison.
func normalizeName(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
