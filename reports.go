package folio

import (
	"maps"
	"slices"
)

// SecurityHolding represents the holding of a single security.
type SecurityHolding struct {
	Symbol       string   `json:"symbol"`
	Quantity     Quantity `json:"qty"`
	AveragePrice Money    `json:"price"`
	Invested     Money    `json:"invested"`
	Lots         []Lot    `json:"lots"`
}

// HoldingReport represents a detailed view of the open holdings after
// replaying the whole trade history.
type HoldingReport struct {
	Date       Date              `json:"date"`
	Securities []SecurityHolding `json:"holdings"`
}

// NewHoldingReport builds the holding report for computed holdings, one row
// per symbol still held, sorted by symbol.
func NewHoldingReport(on Date, h *Holdings) *HoldingReport {
	report := &HoldingReport{Date: on}
	for _, symbol := range h.Symbols() {
		report.Securities = append(report.Securities, SecurityHolding{
			Symbol:       symbol,
			Quantity:     h.Position(symbol),
			AveragePrice: h.AveragePrice(symbol),
			Invested:     h.Invested(symbol),
			Lots:         h.Lots(symbol),
		})
	}
	return report
}

// RealizedRow is one realized disposal with its financial year label.
type RealizedRow struct {
	Symbol        string   `json:"symbol"`
	Date          Date     `json:"date"`
	Quantity      Quantity `json:"qty"`
	Proceeds      Money    `json:"proceeds"`
	Cost          Money    `json:"cost"`
	Gain          Money    `json:"gain"`
	FinancialYear string   `json:"fy"`
}

// RealizedReport returns the realized disposals, optionally filtered by
// financial year ("" keeps everything).
func RealizedReport(h *Holdings, fy string) []RealizedRow {
	var rows []RealizedRow
	for _, d := range h.Disposals() {
		year := d.Date.FinancialYear()
		if fy != "" && fy != year {
			continue
		}
		rows = append(rows, RealizedRow{
			Symbol:        d.Symbol,
			Date:          d.Date,
			Quantity:      d.Quantity,
			Proceeds:      d.Proceeds,
			Cost:          d.Cost,
			Gain:          d.Gain(),
			FinancialYear: year,
		})
	}
	return rows
}

// RealizedGain returns the total realized gain across all disposals.
func RealizedGain(h *Holdings) Money {
	var total Money
	for _, d := range h.Disposals() {
		total = total.Add(d.Gain())
	}
	return total
}

// YearCharges is the total charge paid over one financial year.
type YearCharges struct {
	FinancialYear string `json:"fy"`
	Total         Money  `json:"total"`
}

// ChargesByYear sums the charge table per financial year, oldest year first.
func ChargesByYear(c Charges) []YearCharges {
	totals := make(map[string]Money)
	for on, total := range c {
		year := on.FinancialYear()
		totals[year] = totals[year].Add(total)
	}

	var rows []YearCharges
	for _, year := range slices.Sorted(maps.Keys(totals)) {
		rows = append(rows, YearCharges{FinancialYear: year, Total: totals[year]})
	}
	return rows
}

// FinancialYears returns the sorted financial year labels touched by the
// trade history.
func FinancialYears(trades []Trade) []string {
	years := make(map[string]struct{})
	for _, t := range trades {
		years[t.Date.FinancialYear()] = struct{}{}
	}
	return slices.Sorted(maps.Keys(years))
}
