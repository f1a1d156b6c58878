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

type holdingsCmd struct {
	tradebook string
	notes     string
	jsonl     bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "compute the open holdings from a tradebook" }
func (*holdingsCmd) Usage() string {
	return `holdings -tradebook <file.csv> [-notes <dir>] [-jsonl]

  Replays the tradebook in date order with FIFO lot accounting, prorating the
  charges found in the contract notes directory onto same-day buys, and
  prints the remaining holdings per symbol.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tradebook, "tradebook", "", "Path to the tradebook CSV export (required)")
	f.StringVar(&c.notes, "notes", "", "Directory of contract notes (.csv or .json)")
	f.BoolVar(&c.jsonl, "jsonl", false, "Print holdings in JSONL instead of a table")
}

func (c *holdingsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.tradebook == "" {
		fmt.Fprintln(os.Stderr, "Error: -tradebook flag is required.")
		return subcommands.ExitUsageError
	}

	holdings, err := c.compute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.jsonl {
		if err := folio.ExportHoldings(os.Stdout, holdings); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tQTY\tAVG PRICE\tINVESTED")
	for _, symbol := range holdings.Symbols() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			symbol,
			holdings.Position(symbol),
			holdings.AveragePrice(symbol),
			holdings.Invested(symbol),
		)
	}
	w.Flush()
	return subcommands.ExitSuccess
}

func (c *holdingsCmd) compute() (*folio.Holdings, error) {
	trades, err := loadTrades(c.tradebook)
	if err != nil {
		return nil, err
	}
	charges, err := loadCharges(c.notes)
	if err != nil {
		return nil, err
	}
	return folio.ComputeHoldings(trades, charges)
}
