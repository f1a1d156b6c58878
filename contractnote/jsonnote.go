package contractnote

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/ravisk/folio"
)

// JSONSchema describes where the extracted fields live in a broker JSON
// statement export, as JSONPath expressions.
type JSONSchema struct {
	Date        string
	TotalCharge string
}

// DefaultJSONSchema matches the JSON statement export of the broker console.
var DefaultJSONSchema = JSONSchema{
	Date:        "$.statement.date",
	TotalCharge: "$.charges.total",
}

// ParseJSON extracts the summary of one JSON statement export using the
// [DefaultJSONSchema].
func ParseJSON(data []byte) (Summary, error) {
	return DefaultJSONSchema.ParseJSON(data)
}

// ParseJSON extracts the summary of one JSON statement export. The same
// debit convention applies as for tabular notes: the charge total is stored
// signed and returned absolute.
func (s JSONSchema) ParseJSON(data []byte) (Summary, error) {
	var jobj any
	if err := json.Unmarshal(data, &jobj); err != nil {
		return Summary{}, &ParseError{Field: "document", Reason: err.Error()}
	}

	rawDate, err := jsonLookup(jobj, s.Date)
	if err != nil {
		return Summary{}, &ParseError{Field: "date", Reason: err.Error()}
	}
	str, ok := rawDate.(string)
	if !ok {
		return Summary{}, &ParseError{Field: "date", Reason: fmt.Sprintf("not a string: %v", rawDate)}
	}
	on, err := folio.ParseDMY(str)
	if err != nil {
		// console exports sometimes carry ISO dates instead of day-first.
		on, err = folio.ParseDate(str)
	}
	if err != nil {
		return Summary{}, &ParseError{Field: "date", Reason: err.Error()}
	}

	rawCharge, err := jsonLookup(jobj, s.TotalCharge)
	if err != nil {
		return Summary{}, &ParseError{Field: "total_brokerage", Reason: err.Error()}
	}
	value, err := jsonNumber(rawCharge)
	if err != nil {
		return Summary{}, &ParseError{Field: "total_brokerage", Reason: err.Error()}
	}

	return Summary{Date: on, TotalCharge: folio.M(value, "").Abs()}, nil
}

// jsonLookup evaluates a JSONPath expression. Because jsonpath is never clear
// about whether it returns a list of 1 answer or a single answer, the first
// element of a list result is kept.
func jsonLookup(jobj any, path string) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error evaluating %q: %w", path, err)
	}
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	return jval, nil
}

// jsonNumber converts a JSON value to a decimal, accepting the number as a
// string too.
func jsonNumber(jval any) (decimal.Decimal, error) {
	switch v := jval.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		value, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("not a number: %q", v)
		}
		return value, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("not a number: %v", jval)
	}
}
