package folio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// this file contains functions to handle the import/export format.
// It should remain human readable and easy to diff.

// tradebook column names, as found on broker tradebook exports.
var tradebookColumns = []string{"symbol", "trade_date", "trade_type", "quantity", "price"}

// ImportTrades imports trade events from 'r', a broker tradebook in CSV
// format.
//
// Columns are located by header name, so extra columns and column order do
// not matter. The gross amount of each trade is quantity times price. The
// trade_type column holds buy/sell in any case.
func ImportTrades(r io.Reader) ([]Trade, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &InputShapeError{Field: "tradebook", Reason: "empty document"}
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read tradebook header: %w", err)
	}

	col := make(map[string]int)
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range tradebookColumns {
		if _, ok := col[required]; !ok {
			return nil, &InputShapeError{Field: required, Reason: "column missing from tradebook"}
		}
	}

	var trades []Trade
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tradebook line %d: %w", line, err)
		}

		field := func(name string) string {
			if i := col[name]; i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		day, err := ParseDate(field("trade_date"))
		if err != nil {
			return nil, fmt.Errorf("tradebook line %d: %w", line, err)
		}
		side, err := ParseSide(strings.ToUpper(field("trade_type")))
		if err != nil {
			return nil, fmt.Errorf("tradebook line %d: %w", line, err)
		}
		quantity, err := ParseQuantity(field("quantity"))
		if err != nil {
			return nil, fmt.Errorf("tradebook line %d: invalid quantity %q: %w", line, field("quantity"), err)
		}
		price, err := ParseMoney(field("price"), "")
		if err != nil {
			return nil, fmt.Errorf("tradebook line %d: invalid price %q: %w", line, field("price"), err)
		}

		trades = append(trades, NewTrade(field("symbol"), day, side, quantity, price.Mul(quantity)))
	}
	return trades, nil
}

// ExportHoldings exports computed holdings to 'w'.
//
// The format is a JSONL file, one symbol per line, each line a JSON object
// with the symbol, remaining quantity, weighted average price and the open
// lots oldest first.
func ExportHoldings(w io.Writer, h *Holdings) error {
	for _, symbol := range h.Symbols() {
		js := SecurityHolding{
			Symbol:       symbol,
			Quantity:     h.Position(symbol),
			AveragePrice: h.AveragePrice(symbol),
			Invested:     h.Invested(symbol),
			Lots:         h.Lots(symbol),
		}
		data, err := json.Marshal(js)
		if err != nil {
			return fmt.Errorf("cannot marshal holding %q: %w", symbol, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("cannot write holdings format: %w", err)
		}
	}
	return nil
}
