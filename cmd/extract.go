package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type extractCmd struct{}

func (*extractCmd) Name() string     { return "extract" }
func (*extractCmd) Synopsis() string { return "extract date and charge total from contract notes" }
func (*extractCmd) Usage() string {
	return `extract <note.csv|note.json>...

  Parses each contract note and prints its statement date and total charge.
`
}

func (c *extractCmd) SetFlags(f *flag.FlagSet) {}

func (c *extractCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one contract note file is required.")
		return subcommands.ExitUsageError
	}

	for _, path := range f.Args() {
		summary, err := extractNote(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("%s\t%s\t%s\n", path, summary.Date, summary.TotalCharge)
	}
	return subcommands.ExitSuccess
}
