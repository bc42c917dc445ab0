package extraction

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/propfolio/statement-pipeline/internal/domain/statement"
)

// trailing monetary value, with optional accounting parentheses or sign
var reTrailingAmount = regexp.MustCompile(`(\(?-?\$?\d[\d,]*\.?\d*\)?-?)\s*$`)

var reHasLetters = regexp.MustCompile(`[A-Za-z]`)

// section headers as they appear on real-estate statements
var sectionHeaders = map[string]string{
	"ASSETS":                "ASSETS",
	"CURRENT ASSETS":        "ASSETS",
	"FIXED ASSETS":          "ASSETS",
	"LIABILITIES":           "LIABILITIES",
	"CURRENT LIABILITIES":   "LIABILITIES",
	"LONG TERM LIABILITIES": "LIABILITIES",
	"LONG-TERM LIABILITIES": "LIABILITIES",
	"EQUITY":                "EQUITY",
	"OWNERS EQUITY":         "EQUITY",
	"OWNER'S EQUITY":        "EQUITY",
	"CAPITAL":               "EQUITY",
	"INCOME":                "INCOME",
	"REVENUE":               "INCOME",
	"RENTAL INCOME":         "INCOME",
	"EXPENSES":              "EXPENSES",
	"OPERATING EXPENSES":    "EXPENSES",
}

// ParseLineItems splits an attempt's raw text into line items: one per line
// carrying a label and a trailing amount. Lines without letters or without
// any amount-shaped tail are page furniture and dropped here; every line that
// looks like a statement row is kept, parseable amount or not.
func ParseLineItems(a Attempt) []statement.LineItem {
	var items []statement.LineItem
	page := 1
	section := ""

	for _, rawLine := range strings.Split(a.RawText, "\n") {
		if ff := strings.Count(rawLine, "\f"); ff > 0 {
			page += ff
			rawLine = strings.ReplaceAll(rawLine, "\f", " ")
		}
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if sec, ok := sectionHeaders[normalizeHeader(line)]; ok {
			section = sec
			continue
		}

		if !reHasLetters.MatchString(line) {
			continue
		}

		label, amountStr := splitLabelAmount(line)
		if label == "" || amountStr == "" {
			continue
		}

		items = append(items, statement.LineItem{
			ID:              uuid.New(),
			RawLabel:        label,
			RawAmount:       amountStr,
			Page:            page,
			SourceAttemptID: a.ID,
			Section:         section,
		})
	}
	return items
}

// splitLabelAmount separates a statement row into its label and the amount
// text. Tab-separated rows from the table engine use the last cell; plain
// rows use the trailing amount pattern.
func splitLabelAmount(line string) (label, amount string) {
	if idx := strings.LastIndex(line, "\t"); idx >= 0 {
		amount = strings.TrimSpace(line[idx+1:])
		label = strings.TrimSpace(strings.ReplaceAll(line[:idx], "\t", " "))
		if amount == "" || reHasLetters.MatchString(amount) {
			return "", ""
		}
		return label, amount
	}

	loc := reTrailingAmount.FindStringIndex(line)
	if loc == nil {
		return "", ""
	}
	amount = strings.TrimSpace(line[loc[0]:loc[1]])
	label = strings.TrimSpace(strings.Trim(line[:loc[0]], " .·…-"))
	if label == "" {
		return "", ""
	}
	return label, amount
}

func normalizeHeader(line string) string {
	up := strings.ToUpper(strings.TrimSpace(line))
	up = strings.TrimRight(up, ":")
	for strings.Contains(up, "  ") {
		up = strings.ReplaceAll(up, "  ", " ")
	}
	return up
}
