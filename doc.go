// Package folio computes open holdings for tradable securities using
// first-in-first-out lot accounting.
//
// The trade history is replayed in date order: every buy creates a lot whose
// cost absorbs a quantity-prorated share of that day's transaction charges,
// and every sell consumes the oldest lots first. The per-date charge totals
// are extracted from broker contract notes by the contractnote subpackage.
//
// All monetary and quantity arithmetic is exact decimal; rounding is left to
// presentation boundaries.
package folio
