package folio

import (
	"maps"
	"slices"
)

// Disposal records the realized outcome of a single sell trade: the cost
// removed from the FIFO queue and the gross proceeds of the sale.
type Disposal struct {
	Symbol   string   `json:"symbol"`
	Date     Date     `json:"date"`
	Quantity Quantity `json:"qty"`
	Proceeds Money    `json:"proceeds"`
	Cost     Money    `json:"cost"`
}

// Gain returns the realized gain of the disposal.
func (d Disposal) Gain() Money { return d.Proceeds.Sub(d.Cost) }

// Holdings is the outcome of one [ComputeHoldings] call: the remaining open
// lots per symbol, and the chronological list of disposals that consumed the
// closed ones.
type Holdings struct {
	positions map[string]lots
	disposals []Disposal
}

// Symbols returns the symbols with at least one open lot, sorted.
func (h *Holdings) Symbols() []string {
	var symbols []string
	for symbol := range maps.Keys(h.positions) {
		if len(h.positions[symbol]) > 0 {
			symbols = append(symbols, symbol)
		}
	}
	slices.Sort(symbols)
	return symbols
}

// Lots returns the remaining open lots for a symbol, oldest first. The slice
// must not be modified.
func (h *Holdings) Lots(symbol string) []Lot { return h.positions[symbol] }

// Position returns the total remaining quantity held for a symbol.
func (h *Holdings) Position(symbol string) Quantity { return h.positions[symbol].quantity() }

// Invested returns the total remaining cost of the open lots for a symbol.
func (h *Holdings) Invested(symbol string) Money { return h.positions[symbol].cost() }

// AveragePrice returns the weighted average per-unit cost across the
// remaining lots of a symbol, or zero money when nothing is held.
func (h *Holdings) AveragePrice(symbol string) Money {
	queue := h.positions[symbol]
	quantity := queue.quantity()
	if quantity.IsZero() {
		return Money{}
	}
	return queue.cost().Div(quantity)
}

// Disposals returns the realized disposals in processing order. The slice
// must not be modified.
func (h *Holdings) Disposals() []Disposal { return h.disposals }

// ComputeHoldings replays the trade history in date order and returns the
// remaining holdings per symbol with charges folded into lot cost.
//
// Trades need not be pre-sorted: they are stable-sorted by date, so same-day
// trades keep their input order. For each date carrying a charge, the total
// is allocated to that date's buy trades in proportion to quantity; sells
// never receive an allocation, and charges on dates without buys are dropped.
//
// The computation is a pure function of its inputs. Any invalid trade aborts
// the whole call with an *InputShapeError, and a sell exceeding the held
// quantity aborts it with an *OverSellError; no partial result is returned.
func ComputeHoldings(trades []Trade, charges Charges) (*Holdings, error) {
	for _, t := range trades {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}

	ordered := slices.Clone(trades)
	slices.SortStableFunc(ordered, func(a, b Trade) int { return a.Date.Compare(b.Date) })

	// Pre-pass: total bought quantity per date, the proration denominator.
	bought := make(map[Date]Quantity)
	for _, t := range ordered {
		if t.Side == Buy {
			bought[t.Date] = bought[t.Date].Add(t.Quantity)
		}
	}

	h := &Holdings{positions: make(map[string]lots)}
	for _, t := range ordered {
		switch t.Side {
		case Buy:
			cost := t.Gross
			if dayCharge := charges.On(t.Date); !dayCharge.IsZero() {
				cost = cost.Add(dayCharge.Mul(t.Quantity).Div(bought[t.Date]))
			}
			h.positions[t.Symbol] = append(h.positions[t.Symbol], Lot{Date: t.Date, Quantity: t.Quantity, Cost: cost})
		case Sell:
			queue := h.positions[t.Symbol]
			remaining, costOfSold, ok := queue.sell(t.Quantity)
			if !ok {
				return nil, &OverSellError{
					Symbol:    t.Symbol,
					Date:      t.Date,
					Requested: t.Quantity,
					Available: queue.quantity(),
				}
			}
			h.positions[t.Symbol] = remaining
			h.disposals = append(h.disposals, Disposal{
				Symbol:   t.Symbol,
				Date:     t.Date,
				Quantity: t.Quantity,
				Proceeds: t.Gross,
				Cost:     costOfSold,
			})
		}
	}
	return h, nil
}
