// Package contractnote extracts structured totals from broker contract
// notes: the statement date and the aggregate charge (brokerage and taxes)
// paid for the day.
//
// A contract note is a semi-structured tabular document. Instead of
// hard-coding cell positions into the parsing code, the expected layout is
// described by a small declarative [Schema] of field locators, so a new
// broker layout only needs a new schema, and tests can use synthetic
// documents.
package contractnote

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ravisk/folio"
)

// Summary is the normalized record extracted from one contract note.
//
// TotalCharge is always non-negative: contract notes record charges with a
// debit convention (negative numbers), Parse returns the absolute value.
type Summary struct {
	Date        folio.Date  `json:"date"`
	TotalCharge folio.Money `json:"total_brokerage"`
}

// ParseError reports a contract note that does not match its schema: a
// missing cell, a malformed date or a non-numeric amount.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("contract note %s: %s", e.Field, e.Reason)
}

// A Locator finds one field's raw text in the decoded rows of a document.
type Locator interface {
	locate(rows [][]string) (string, error)
}

// Cell locates a field at a fixed row and column, both zero-based.
type Cell struct {
	Row, Col int
}

func (c Cell) locate(rows [][]string) (string, error) {
	if c.Row >= len(rows) || c.Col >= len(rows[c.Row]) {
		return "", fmt.Errorf("no cell at row %d column %d", c.Row, c.Col)
	}
	return strings.TrimSpace(rows[c.Row][c.Col]), nil
}

// Label locates a field on the first row whose leading cell contains a label,
// reading the value from a fixed column of that row.
type Label struct {
	Contains string
	Col      int
}

func (l Label) locate(rows [][]string) (string, error) {
	for _, row := range rows {
		if len(row) == 0 || !strings.Contains(row[0], l.Contains) {
			continue
		}
		if l.Col >= len(row) {
			return "", fmt.Errorf("row labeled %q has no column %d", l.Contains, l.Col)
		}
		return strings.TrimSpace(row[l.Col]), nil
	}
	return "", fmt.Errorf("no row labeled %q", l.Contains)
}

// Schema describes where the two extracted fields live in a contract note
// layout.
type Schema struct {
	Date        Locator
	TotalCharge Locator
}

// DefaultSchema matches the Zerodha contract note layout: the statement date
// on the second row, and the charge total on the taxable-value line.
var DefaultSchema = Schema{
	Date:        Cell{Row: 1, Col: 3},
	TotalCharge: Label{Contains: "Taxable value of Supply", Col: 10},
}

// Parse extracts the summary of one contract note document using the
// [DefaultSchema].
func Parse(data []byte) (Summary, error) {
	return DefaultSchema.Parse(data)
}

// Parse extracts the summary of one contract note document.
//
// The document is decoded as CSV with ragged rows allowed. Failures to
// locate or convert a field are reported as a *ParseError.
func (s Schema) Parse(data []byte) (Summary, error) {
	cr := csv.NewReader(strings.NewReader(string(data)))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return Summary{}, &ParseError{Field: "document", Reason: err.Error()}
	}
	return s.extract(rows)
}

func (s Schema) extract(rows [][]string) (Summary, error) {
	rawDate, err := s.Date.locate(rows)
	if err != nil {
		return Summary{}, &ParseError{Field: "date", Reason: err.Error()}
	}
	on, err := folio.ParseDMY(rawDate)
	if err != nil {
		return Summary{}, &ParseError{Field: "date", Reason: err.Error()}
	}

	rawCharge, err := s.TotalCharge.locate(rows)
	if err != nil {
		return Summary{}, &ParseError{Field: "total_brokerage", Reason: err.Error()}
	}
	value, err := decimal.NewFromString(rawCharge)
	if err != nil {
		return Summary{}, &ParseError{Field: "total_brokerage", Reason: fmt.Sprintf("not a number: %q", rawCharge)}
	}

	// Charges are debits in the source document; report them positive.
	return Summary{Date: on, TotalCharge: folio.M(value, "").Abs()}, nil
}

// ParseAll extracts one summary per document, failing on the first document
// that does not match the schema.
func (s Schema) ParseAll(docs ...io.Reader) ([]Summary, error) {
	var summaries []Summary
	for i, doc := range docs {
		data, err := io.ReadAll(doc)
		if err != nil {
			return nil, fmt.Errorf("cannot read contract note %d: %w", i+1, err)
		}
		summary, err := s.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("contract note %d: %w", i+1, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Aggregate folds per-document summaries into the per-date charge table
// consumed by [folio.ComputeHoldings]. Several notes for the same date sum
// up.
func Aggregate(summaries []Summary) folio.Charges {
	charges := folio.NewCharges()
	for _, s := range summaries {
		charges.Add(s.Date, s.TotalCharge)
	}
	return charges
}
