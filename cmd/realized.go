package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/ravisk/folio"
)

type realizedCmd struct {
	tradebook string
	notes     string
	fy        string
}

func (*realizedCmd) Name() string     { return "realized" }
func (*realizedCmd) Synopsis() string { return "report the realized gains of past sells" }
func (*realizedCmd) Usage() string {
	return `realized -tradebook <file.csv> [-notes <dir>] [-fy FY2026]

  Replays the tradebook and prints one row per sell with the FIFO cost
  removed from the queue and the realized gain, optionally restricted to a
  financial year.
`
}

func (c *realizedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tradebook, "tradebook", "", "Path to the tradebook CSV export (required)")
	f.StringVar(&c.notes, "notes", "", "Directory of contract notes (.csv or .json)")
	f.StringVar(&c.fy, "fy", "", "Financial year filter, e.g. FY2026")
}

func (c *realizedCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.tradebook == "" {
		fmt.Fprintln(os.Stderr, "Error: -tradebook flag is required.")
		return subcommands.ExitUsageError
	}

	trades, err := loadTrades(c.tradebook)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	charges, err := loadCharges(c.notes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	holdings, err := folio.ComputeHoldings(trades, charges)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var total folio.Money
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSYMBOL\tQTY\tPROCEEDS\tCOST\tGAIN\tFY")
	for _, row := range folio.RealizedReport(holdings, c.fy) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Date, row.Symbol, row.Quantity, row.Proceeds, row.Cost, row.Gain, row.FinancialYear)
		total = total.Add(row.Gain)
	}
	w.Flush()
	fmt.Printf("Total realized gain: %s\n", total)
	return subcommands.ExitSuccess
}
