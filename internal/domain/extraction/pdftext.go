package extraction

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"
)

// TextEngine extracts the embedded text layer of a digital PDF. It is the
// fastest adapter and the preferred one for statements produced by
// accounting software.
type TextEngine struct{}

// NewTextEngine creates the structured-text adapter.
func NewTextEngine() *TextEngine {
	return &TextEngine{}
}

func (e *TextEngine) Kind() EngineKind { return EngineText }

// Extract reads the plain text of every page, separated by form feeds.
func (e *TextEngine) Extract(ctx context.Context, raw []byte) (Attempt, error) {
	start := time.Now()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return failedAttempt(EngineText, start, fmt.Errorf("open pdf: %w", err)), nil
	}

	var b strings.Builder
	pages := 0
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return failedAttempt(EngineText, start, err), nil
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\f")
		}
		b.WriteString(text)
		pages++
	}

	a := newAttempt(EngineText, start)
	a.RawText = b.String()
	a.PageCount = r.NumPage()
	if pages == 0 || strings.TrimSpace(a.RawText) == "" {
		a.RawText = ""
		a.Err = "no text layer"
		return a, nil
	}
	a.Confidence = textConfidence(a.RawText)
	return a, nil
}

var (
	reAmountish = regexp.MustCompile(`\d{1,3}(,\d{3})*\.\d{2}|\(\d[\d,]*\.\d{2}\)`)
	reCodeish   = regexp.MustCompile(`\b\d{4}-\d{4}\b`)
)

// textConfidence scores decoded text on statement-shaped artifacts:
// monetary amounts, account codes, and enough content to be a real page.
func textConfidence(text string) float64 {
	score := 20.0
	amounts := len(reAmountish.FindAllString(text, 40))
	switch {
	case amounts >= 10:
		score += 45
	case amounts >= 3:
		score += 30
	case amounts >= 1:
		score += 15
	}
	if reCodeish.MatchString(text) {
		score += 15
	}
	if len(text) > 400 {
		score += 15
	} else if len(text) > 120 {
		score += 8
	}
	if score > 100 {
		score = 100
	}
	return score
}
