package accounts

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/propfolio/statement-pipeline/internal/domain/statement"
	"github.com/propfolio/statement-pipeline/pkg/amount"
)

// MatchingPolicy fixes the matcher's acceptance thresholds. It is an
// immutable value passed at construction so tests can tighten or loosen it;
// DefaultPolicy carries the canonical constants.
type MatchingPolicy struct {
	// FuzzyThreshold is the minimum name similarity (0..100) a fuzzy match
	// must reach.
	FuzzyThreshold float64
	// KeywordThreshold is the minimum token-overlap score (0..100).
	KeywordThreshold float64
	// KeywordCap bounds keyword-match confidence below fuzzy matches.
	KeywordCap float64
	// TieBreakWindow is the score distance within which two candidates are
	// considered tied.
	TieBreakWindow float64
}

// DefaultPolicy returns the canonical thresholds: fuzzy 85, keyword 60
// capped at 80, ties within 1 point.
func DefaultPolicy() MatchingPolicy {
	return MatchingPolicy{
		FuzzyThreshold:   85,
		KeywordThreshold: 60,
		KeywordCap:       80,
		TieBreakWindow:   1,
	}
}

// Matcher maps extracted line items onto the chart of accounts. It holds
// only read-only state and is safe for concurrent use.
type Matcher struct {
	provider Provider
	policy   MatchingPolicy
	kw       *keywordEngine
}

// NewMatcher builds a matcher over the given chart provider.
func NewMatcher(provider Provider, policy MatchingPolicy) *Matcher {
	return &Matcher{provider: provider, policy: policy, kw: newKeywordEngine()}
}

var reAccountCode = regexp.MustCompile(`\b\d{4}-\d{4}\b`)

// MapAll maps every line item for one statement type. The output always has
// exactly one entry per input: unmatched items are retained with an empty
// account code, never dropped.
func (m *Matcher) MapAll(items []statement.LineItem, t statement.Type) ([]statement.MappedLineItem, error) {
	entries, err := m.provider.Chart(t)
	if err != nil {
		return nil, err
	}
	out := make([]statement.MappedLineItem, len(items))
	for i, item := range items {
		out[i] = m.Match(item, entries)
	}
	return out, nil
}

// Match maps one line item against the candidate entries. Strategies run in
// strict priority order, each returning as soon as it clears its floor:
// exact code, fuzzy name, keyword overlap, then unmatched.
func (m *Matcher) Match(item statement.LineItem, entries []ChartEntry) statement.MappedLineItem {
	mapped := statement.MappedLineItem{
		LineItem: item,
		Method:   statement.MethodUnmatched,
	}
	if d, err := amount.Parse(item.RawAmount); err == nil {
		mapped.ParsedAmount = &d
	}

	byCode := make(map[string]ChartEntry, len(entries))
	for _, e := range entries {
		byCode[e.Code] = e
	}

	// 1. Exact code embedded in the raw label.
	if code := reAccountCode.FindString(item.RawLabel); code != "" {
		if e, ok := byCode[code]; ok {
			return m.accept(mapped, e, statement.MethodExactCode, 100)
		}
	}

	// 2. Fuzzy name similarity.
	if e, score, ok := m.bestFuzzy(item, entries); ok {
		return m.accept(mapped, e, statement.MethodFuzzyName, score)
	}

	// 3. Keyword token overlap.
	if e, score, ok := m.bestKeyword(item, byCode); ok {
		return m.accept(mapped, e, statement.MethodKeyword, score)
	}

	// 4. Unmatched: retained for the needs-mapping bucket.
	mapped.IsTotal = strings.HasPrefix(normalizeName(item.RawLabel), "TOTAL")
	return mapped
}

func (m *Matcher) accept(mapped statement.MappedLineItem, e ChartEntry, method statement.MappingMethod, conf float64) statement.MappedLineItem {
	mapped.AccountCode = e.Code
	mapped.AccountName = e.Name
	mapped.Method = method
	mapped.MappingConfidence = conf
	mapped.IsSubtotal = e.IsSubtotal
	mapped.IsTotal = e.IsTotal
	return mapped
}

type candidate struct {
	entry ChartEntry
	score float64
}

func (m *Matcher) bestFuzzy(item statement.LineItem, entries []ChartEntry) (ChartEntry, float64, bool) {
	label := normalizeName(item.RawLabel)
	if label == "" {
		return ChartEntry{}, 0, false
	}

	var cands []candidate
	for _, e := range entries {
		score := nameSimilarity(label, normalizeName(e.Name))
		if score >= m.policy.FuzzyThreshold {
			cands = append(cands, candidate{entry: e, score: score})
		}
	}
	return m.pick(cands, item.Section)
}

func (m *Matcher) bestKeyword(item statement.LineItem, byCode map[string]ChartEntry) (ChartEntry, float64, bool) {
	var cands []candidate
	for _, ks := range m.kw.score(item.RawLabel) {
		e, ok := byCode[ks.code]
		if !ok {
			continue // keyword group outside this statement's code range
		}
		if ks.score >= m.policy.KeywordThreshold {
			score := ks.score
			if score > m.policy.KeywordCap {
				score = m.policy.KeywordCap
			}
			cands = append(cands, candidate{entry: e, score: score})
		}
	}
	return m.pick(cands, item.Section)
}

// pick resolves the candidate list deterministically: highest score wins;
// candidates within the tie window prefer the section's category, then the
// lexicographically smallest account code.
func (m *Matcher) pick(cands []candidate, section string) (ChartEntry, float64, bool) {
	if len(cands) == 0 {
		return ChartEntry{}, 0, false
	}

	best := cands[0].score
	for _, c := range cands[1:] {
		if c.score > best {
			best = c.score
		}
	}

	var tied []candidate
	for _, c := range cands {
		if best-c.score <= m.policy.TieBreakWindow {
			tied = append(tied, c)
		}
	}

	sort.Slice(tied, func(i, j int) bool {
		if section != "" {
			im := tied[i].entry.Category == section
			jm := tied[j].entry.Category == section
			if im != jm {
				return im
			}
		}
		return tied[i].entry.Code < tied[j].entry.Code
	})
	return tied[0].entry, tied[0].score, true
}

// nameSimilarity scores two normalized names in 0..100. Equal strings score
// 100; containment scores by length ratio; otherwise the better of a
// Levenshtein-based score and a subsequence-rank score applies. The edit
// distance comes from the fuzzysearch library's Levenshtein implementation.
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	if strings.Contains(a, b) {
		return 75 + 25*float64(len(b))/float64(len(a))
	}
	if strings.Contains(b, a) {
		return 75 + 25*float64(len(a))/float64(len(b))
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	levScore := 100 * float64(maxLen-dist) / float64(maxLen)

	// Subsequence rank catches abbreviated labels; it tops out below the
	// fuzzy threshold so it can order rejects but never force an accept.
	rankScore := 0.0
	if rank := fuzzy.RankMatchFold(b, a); rank >= 0 && rank < len(a) {
		rankScore = 60 - 40*float64(rank)/float64(len(a))
	}

	if levScore > rankScore {
		return levScore
	}
	return rankScore
}
