package accounts

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// keywordGroup ties a curated keyword set to a canonical account. Keyword
// matching is the last resort before giving up on a line, so groups favor
// precision over recall.
type keywordGroup struct {
	code     string
	keywords []string
}

var keywordGroups = []keywordGroup{
	{"1010-0000", []string{"CASH", "OPERATING", "CHECKING", "BANK"}},
	{"1020-0000", []string{"CASH", "RESERVE", "RESERVES", "SAVINGS"}},
	{"1100-0000", []string{"RECEIVABLE", "RECEIVABLES", "TENANT", "OWED"}},
	{"1200-0000", []string{"PREPAID", "ADVANCE"}},
	{"1510-0000", []string{"BUILDING", "BUILDINGS", "STRUCTURE"}},
	{"1590-0000", []string{"ACCUMULATED", "DEPRECIATION", "AMORTIZATION"}},
	{"2010-0000", []string{"PAYABLE", "PAYABLES", "VENDOR"}},
	{"2100-0000", []string{"SECURITY", "DEPOSIT", "DEPOSITS"}},
	{"2500-0000", []string{"MORTGAGE", "LOAN", "NOTE", "DEBT"}},
	{"3020-0000", []string{"DISTRIBUTION", "DISTRIBUTIONS", "DRAW", "WITHDRAWAL"}},
	{"4010-0000", []string{"RENT", "RENTS", "RENTAL", "LEASE"}},
	{"4020-0000", []string{"LATE", "FEE", "FEES", "PENALTY"}},
	{"5020-0000", []string{"REPAIR", "REPAIRS", "MAINTENANCE", "UPKEEP"}},
	{"5030-0000", []string{"UTILITIES", "ELECTRIC", "WATER", "GAS", "SEWER"}},
	{"5040-0000", []string{"TAX", "TAXES", "ASSESSMENT"}},
	{"5050-0000", []string{"INSURANCE", "PREMIUM", "COVERAGE"}},
	{"7010-0000", []string{"PRINCIPAL", "BALANCE", "OUTSTANDING"}},
	{"7020-0000", []string{"INTEREST", "PAID"}},
	{"7040-0000", []string{"ESCROW", "IMPOUND"}},
	{"7510-0000", []string{"MONTHLY", "RENT", "TOTAL"}},
	{"7530-0000", []string{"OCCUPIED", "UNITS", "OCCUPANCY"}},
}

// keywordEngine resolves line labels to accounts by token overlap against
// the curated keyword sets, using an Aho-Corasick matcher to find every
// keyword occurrence in a single pass.
type keywordEngine struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	// byKeyword maps a keyword to the groups that contain it.
	byKeyword map[string][]int
}

func newKeywordEngine() *keywordEngine {
	seen := make(map[string][]int)
	var patterns []string
	for gi, g := range keywordGroups {
		for _, kw := range g.keywords {
			if _, ok := seen[kw]; !ok {
				patterns = append(patterns, kw)
			}
			seen[kw] = append(seen[kw], gi)
		}
	}

	bytePatterns := make([][]byte, len(patterns))
	for i, p := range patterns {
		bytePatterns[i] = []byte(p)
	}

	return &keywordEngine{
		matcher:   ahocorasick.NewMatcher(bytePatterns),
		patterns:  patterns,
		byKeyword: seen,
	}
}

// keywordScore holds one candidate account with its overlap score.
type keywordScore struct {
	code  string
	score float64 // 0..100
}

// score returns candidate accounts ranked by token overlap: the share of
// the label's tokens covered by each group's keyword set, as a percentage.
func (e *keywordEngine) score(label string) []keywordScore {
	normalized := normalizeName(label)
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return nil
	}
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}

	// One pass over the label to learn which keywords appear at all.
	present := make(map[string]struct{})
	for _, idx := range e.matcher.Match([]byte(normalized)) {
		if idx >= 0 && idx < len(e.patterns) {
			present[e.patterns[idx]] = struct{}{}
		}
	}
	if len(present) == 0 {
		return nil
	}

	hits := make(map[int]int)
	for kw := range present {
		// Count whole-token hits only; substring hits inside longer words
		// do not count as overlap.
		if _, ok := tokenSet[kw]; !ok {
			continue
		}
		for _, gi := range e.byKeyword[kw] {
			hits[gi]++
		}
	}

	var out []keywordScore
	for gi, n := range hits {
		out = append(out, keywordScore{
			code:  keywordGroups[gi].code,
			score: 100 * float64(n) / float64(len(tokens)),
		})
	}
	return out
}
