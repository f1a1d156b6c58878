package folio

import "time"

// amount is a helper for tests to create money with no currency set.
func amount(v float64) Money { return M(v, "") }

// jan is a helper for tests to create dates in January 2025.
func jan(day int) Date { return NewDate(2025, time.January, day) }
