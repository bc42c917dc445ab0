// Package extraction turns statement PDF bytes into raw line items. It wraps
// each extraction technology behind a common engine interface, classifies
// documents to choose engines, and orchestrates single- or multi-engine runs
// with consensus scoring.
package extraction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EngineKind is the closed set of extraction technologies. New engines are
// added as new variants with an implementation, never by introspection.
type EngineKind string

const (
	// EngineText is the fast structured-text extractor for digital PDFs.
	EngineText EngineKind = "pdf_text"
	// EngineTable is the table-aware extractor that preserves row structure.
	EngineTable EngineKind = "pdf_table"
	// EngineOCR rasterizes pages and runs optical character recognition.
	EngineOCR EngineKind = "ocr"
)

// AllEngines lists every engine kind in preference order.
func AllEngines() []EngineKind {
	return []EngineKind{EngineText, EngineTable, EngineOCR}
}

// Attempt is the outcome of one adapter invocation against a document.
// A failed adapter still produces an Attempt, with Confidence 0 and Err set.
type Attempt struct {
	ID             uuid.UUID
	Engine         EngineKind
	RawText        string
	PageCount      int
	DetectedTables int
	// Confidence is the engine's own estimate in 0..100.
	Confidence float64
	Duration   time.Duration
	Err        string
}

// Failed reports whether the attempt produced no usable output.
func (a Attempt) Failed() bool {
	return a.Err != "" || a.RawText == ""
}

// Engine is the uniform capability interface every extraction technology
// implements. Extract must be side-effect-free with respect to the input
// bytes and safe for concurrent use.
type Engine interface {
	Kind() EngineKind
	Extract(ctx context.Context, raw []byte) (Attempt, error)
}

// newAttempt stamps the shared attempt fields.
func newAttempt(kind EngineKind, start time.Time) Attempt {
	return Attempt{
		ID:       uuid.New(),
		Engine:   kind,
		Duration: time.Since(start),
	}
}

// failedAttempt records an adapter failure as data rather than an error.
func failedAttempt(kind EngineKind, start time.Time, err error) Attempt {
	a := newAttempt(kind, start)
	a.Err = err.Error()
	return a
}
