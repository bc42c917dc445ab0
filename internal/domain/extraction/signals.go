package extraction

import (
	"bytes"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// Signals are the enumerated structural facts the classifier consumes.
// All text and byte scanning happens here; the classifier itself is a pure
// decision table over these values.
type Signals struct {
	PageCount int
	// TextPages counts pages whose embedded text layer holds a meaningful
	// amount of content.
	TextPages int
	TextChars int
	// ImageCoverage approximates how much of the document is raster images,
	// as embedded image objects per page clamped to 0..1.
	ImageCoverage float64
	// GridStructures counts runs of consecutive multi-column rows.
	GridStructures int
}

// minTextCharsPerPage is the threshold below which a page's text layer is
// treated as absent (a scanned page often carries a few stray glyphs).
const minTextCharsPerPage = 40

// CollectSignals inspects raw PDF bytes and derives classification signals.
// It never fails: unreadable documents yield zero-valued signals, which the
// classifier resolves to the safe default.
func CollectSignals(raw []byte) Signals {
	var s Signals

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return s
	}
	s.PageCount = r.NumPage()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		if text, err := p.GetPlainText(nil); err == nil {
			trimmed := strings.TrimSpace(text)
			s.TextChars += len(trimmed)
			if len(trimmed) >= minTextCharsPerPage {
				s.TextPages++
			}
		}
		if rows, err := p.GetTextByRow(); err == nil {
			s.GridStructures += countGrids(rows)
		}
	}

	images := bytes.Count(raw, []byte("/Subtype /Image")) + bytes.Count(raw, []byte("/Subtype/Image"))
	if s.PageCount > 0 {
		s.ImageCoverage = float64(images) / float64(s.PageCount)
		if s.ImageCoverage > 1 {
			s.ImageCoverage = 1
		}
	}

	return s
}

// countGrids counts runs of at least four consecutive rows spanning three or
// more columns.
func countGrids(rows pdf.Rows) int {
	grids := 0
	run := 0
	for _, row := range rows {
		_, cols := joinRow(row)
		if cols >= 3 {
			run++
			if run == 4 {
				grids++
			}
		} else {
			run = 0
		}
	}
	return grids
}
