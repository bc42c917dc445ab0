package extraction

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"
)

// TableEngine extracts text row by row, preserving column boundaries as tab
// stops. It is slower than the plain text engine but keeps amount columns
// attached to their labels on table-heavy statements such as rent rolls.
type TableEngine struct{}

// NewTableEngine creates the table-aware adapter.
func NewTableEngine() *TableEngine {
	return &TableEngine{}
}

func (e *TableEngine) Kind() EngineKind { return EngineTable }

// columnGap is the horizontal distance between glyph runs that starts a new
// column, in PDF points.
const columnGap = 18.0

func (e *TableEngine) Extract(ctx context.Context, raw []byte) (Attempt, error) {
	start := time.Now()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return failedAttempt(EngineTable, start, fmt.Errorf("open pdf: %w", err)), nil
	}

	var b strings.Builder
	tables := 0
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return failedAttempt(EngineTable, start, err), nil
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\f")
		}
		columnarRun := 0
		for _, row := range rows {
			line, cols := joinRow(row)
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")

			// A run of consecutive multi-column rows reads as one table.
			if cols >= 3 {
				columnarRun++
				if columnarRun == 4 {
					tables++
				}
			} else {
				columnarRun = 0
			}
		}
	}

	a := newAttempt(EngineTable, start)
	a.RawText = b.String()
	a.PageCount = r.NumPage()
	a.DetectedTables = tables
	if strings.TrimSpace(a.RawText) == "" {
		a.RawText = ""
		a.Err = "no text layer"
		return a, nil
	}
	a.Confidence = textConfidence(a.RawText)
	if tables > 0 && a.Confidence < 95 {
		a.Confidence += 5
	}
	return a, nil
}

// joinRow flattens one physical row into a tab-separated line and reports
// how many columns it spans.
func joinRow(row *pdf.Row) (string, int) {
	var b strings.Builder
	cols := 0
	lastEnd := -1.0
	for _, t := range row.Content {
		s := strings.TrimSpace(t.S)
		if s == "" {
			continue
		}
		if lastEnd >= 0 && t.X-lastEnd > columnGap {
			b.WriteString("\t")
			cols++
		}
		b.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	line := strings.TrimSpace(b.String())
	if line == "" {
		return "", 0
	}
	return line, cols + 1
}
