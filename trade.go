package folio

import "fmt"

// Side is a typed string identifying the direction of a trade.
type Side string

const (
	// Buy acquires a new lot of the traded security.
	Buy Side = "BUY"
	// Sell disposes of previously acquired lots, oldest first.
	Sell Side = "SELL"
)

// ParseSide parses a trade type string into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", &InputShapeError{Field: "type", Reason: fmt.Sprintf("unknown trade type %q, want BUY or SELL", s)}
	}
}

// Trade is a single immutable trade event.
//
// Gross is the monetary value of the trade before any charges; charges are
// prorated onto buy trades by [ComputeHoldings].
type Trade struct {
	Symbol   string   `json:"symbol"`
	Date     Date     `json:"date"`
	Side     Side     `json:"type"`
	Quantity Quantity `json:"quantity"`
	Gross    Money    `json:"gross_amount"`
}

// NewTrade creates a new trade event.
func NewTrade(symbol string, day Date, side Side, quantity Quantity, gross Money) Trade {
	return Trade{Symbol: symbol, Date: day, Side: side, Quantity: quantity, Gross: gross}
}

// Validate checks the trade record shape. It returns an *InputShapeError
// naming the offending field.
func (t Trade) Validate() error {
	if t.Symbol == "" {
		return &InputShapeError{Field: "symbol", Reason: "missing"}
	}
	if t.Date.IsZero() {
		return &InputShapeError{Field: "date", Reason: "missing"}
	}
	if t.Side != Buy && t.Side != Sell {
		return &InputShapeError{Field: "type", Reason: fmt.Sprintf("unknown trade type %q, want BUY or SELL", string(t.Side))}
	}
	if !t.Quantity.IsPositive() {
		return &InputShapeError{Field: "quantity", Reason: fmt.Sprintf("must be positive, got %s", t.Quantity)}
	}
	if t.Gross.IsNegative() {
		return &InputShapeError{Field: "gross_amount", Reason: fmt.Sprintf("must not be negative, got %s", t.Gross)}
	}
	return nil
}
