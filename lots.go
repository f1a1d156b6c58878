package folio

// Lot is a batch of units acquired together by a single buy trade, tracked
// with its own cost until fully consumed.
type Lot struct {
	Date     Date     `json:"date"`
	Quantity Quantity `json:"qty"`
	Cost     Money    `json:"cost"` // Total cost of the lot (gross amount plus allocated charge)
}

// Price returns the per-unit cost of the lot.
func (l Lot) Price() Money { return l.Cost.Div(l.Quantity) }

// lots is a FIFO queue of open lots for one symbol, oldest first.
type lots []Lot

// quantity returns the total remaining quantity across the queue.
func (l lots) quantity() Quantity {
	var total Quantity
	for _, currentLot := range l {
		total = total.Add(currentLot.Quantity)
	}
	return total
}

// cost returns the total remaining cost across the queue.
func (l lots) cost() Money {
	var total Money
	for _, currentLot := range l {
		total = total.Add(currentLot.Cost)
	}
	return total
}

// sell reduces the available lots by a given quantity to sell using the FIFO
// method. It returns the remaining lots and the cost of the sold shares.
// ok is false when the queue empties before the quantity is satisfied; the
// caller must treat that as an oversell, the returned lots are meaningless.
func (l lots) sell(quantityToSell Quantity) (remaining lots, costOfSoldShares Money, ok bool) {
	for _, currentLot := range l {
		if quantityToSell.IsZero() {
			remaining = append(remaining, currentLot)
			continue
		}

		if currentLot.Quantity.GreaterThan(quantityToSell) {
			// Partial sale from this lot
			costOfSoldPortion := currentLot.Cost.Mul(quantityToSell).Div(currentLot.Quantity)
			remaining = append(remaining, Lot{
				Date:     currentLot.Date,
				Quantity: currentLot.Quantity.Sub(quantityToSell),
				Cost:     currentLot.Cost.Sub(costOfSoldPortion),
			})
			costOfSoldShares = costOfSoldShares.Add(costOfSoldPortion)
			quantityToSell = Q(0)
		} else {
			// Full sale of this lot
			costOfSoldShares = costOfSoldShares.Add(currentLot.Cost)
			quantityToSell = quantityToSell.Sub(currentLot.Quantity)
		}
	}
	return remaining, costOfSoldShares, quantityToSell.IsZero()
}
