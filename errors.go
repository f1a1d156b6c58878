package folio

import "fmt"

// OverSellError reports a sell whose quantity exceeds the total quantity held
// for the symbol at that point of the trade sequence.
type OverSellError struct {
	Symbol    string
	Date      Date
	Requested Quantity
	Available Quantity
}

func (e *OverSellError) Error() string {
	return fmt.Sprintf("on %s, cannot sell %s of %s, position is only %s",
		e.Date, e.Requested, e.Symbol, e.Available)
}

// InputShapeError reports a trade or charge record with a missing or invalid
// field.
type InputShapeError struct {
	Field  string
	Reason string
}

func (e *InputShapeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
