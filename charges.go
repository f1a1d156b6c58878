package folio

import (
	"maps"
	"slices"
)

// Charges is the per-date table of transaction charges (brokerage, taxes)
// taken from contract notes. Charges are date-scoped, not symbol-scoped.
type Charges map[Date]Money

// NewCharges creates an empty charge table.
func NewCharges() Charges { return make(Charges) }

// Add accumulates a charge total on a date. Several documents for the same
// date sum up.
func (c Charges) Add(on Date, total Money) {
	c[on] = c[on].Add(total)
}

// On returns the total charge recorded for a date. Dates with no record count
// as zero.
func (c Charges) On(on Date) Money { return c[on] }

// Dates returns the charged dates in chronological order.
func (c Charges) Dates() []Date {
	return slices.SortedFunc(maps.Keys(c), Date.Compare)
}
