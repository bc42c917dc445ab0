// Package statement defines the core types shared across the extraction,
// matching, validation, and review stages of the pipeline.
package statement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type identifies the kind of financial statement a document claims to be.
type Type string

const (
	BalanceSheet      Type = "balance_sheet"
	IncomeStatement   Type = "income_statement"
	CashFlow          Type = "cash_flow"
	RentRoll          Type = "rent_roll"
	MortgageStatement Type = "mortgage_statement"
)

// AllTypes lists every supported statement type.
func AllTypes() []Type {
	return []Type{BalanceSheet, IncomeStatement, CashFlow, RentRoll, MortgageStatement}
}

// Valid reports whether t is a known statement type.
func (t Type) Valid() bool {
	switch t {
	case BalanceSheet, IncomeStatement, CashFlow, RentRoll, MortgageStatement:
		return true
	}
	return false
}

// PropertyContext identifies the property and reporting period a document
// belongs to. Period is the first day of the reporting month.
type PropertyContext struct {
	PropertyID uuid.UUID
	Period     time.Time
}

// Document is an immutable ingested statement. The byte buffer is never
// mutated; persistence of the original file is the caller's concern.
type Document struct {
	ID       uuid.UUID
	Type     Type
	Property PropertyContext
	Bytes    []byte
}

// NewDocument wraps raw PDF bytes with their declared type and context.
func NewDocument(raw []byte, t Type, prop PropertyContext) Document {
	return Document{
		ID:       uuid.New(),
		Type:     t,
		Property: prop,
		Bytes:    raw,
	}
}

// LineItem is a single extracted row before account mapping.
type LineItem struct {
	ID              uuid.UUID
	RawLabel        string
	RawAmount       string
	Page            int
	SourceAttemptID uuid.UUID
	// Section is the statement section the line was found under
	// (e.g. "ASSETS"), used as a tie-break hint during matching.
	Section string
}

// MappingMethod records which matching strategy produced a mapping.
type MappingMethod string

const (
	MethodExactCode MappingMethod = "exact_code"
	MethodFuzzyName MappingMethod = "fuzzy_name"
	MethodKeyword   MappingMethod = "keyword"
	MethodUnmatched MappingMethod = "unmatched"
)

// MappedLineItem is a LineItem after chart-of-accounts mapping. When
// Method is MethodUnmatched, AccountCode is empty but the item is always
// retained; no extracted line is ever dropped.
type MappedLineItem struct {
	LineItem
	AccountCode       string // empty when unmatched
	AccountName       string
	Method            MappingMethod
	MappingConfidence float64 // 0..100
	// ParsedAmount is nil when the raw amount text could not be parsed.
	ParsedAmount *decimal.Decimal
	IsSubtotal   bool
	IsTotal      bool
}

// Unmatched reports whether the item failed to map to any account.
func (m MappedLineItem) Unmatched() bool {
	return m.Method == MethodUnmatched
}

// FlagCategory grades a review flag.
type FlagCategory string

const (
	FlagCritical FlagCategory = "critical"
	FlagHigh     FlagCategory = "high"
	FlagMedium   FlagCategory = "medium"
	FlagLow      FlagCategory = "low"
)

// ReviewFlag marks something a human reviewer should look at. Flags are
// append-only; downstream consumers must never discard them.
type ReviewFlag struct {
	ID         uuid.UUID
	Category   FlagCategory
	Reason     string
	LineItemID *uuid.UUID // nil for document-level flags
}

// NewFlag creates a document-level review flag.
func NewFlag(cat FlagCategory, reason string) ReviewFlag {
	return ReviewFlag{ID: uuid.New(), Category: cat, Reason: reason}
}

// NewLineFlag creates a flag tied to a specific line item.
func NewLineFlag(cat FlagCategory, reason string, lineID uuid.UUID) ReviewFlag {
	id := lineID
	return ReviewFlag{ID: uuid.New(), Category: cat, Reason: reason, LineItemID: &id}
}
