// Package cmd implements the CLI application to compute holdings from broker
// tradebook and contract note exports.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/ravisk/folio"
	"github.com/ravisk/folio/contractnote"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&holdingsCmd{}, "reports")
	c.Register(&realizedCmd{}, "reports")
	c.Register(&extractCmd{}, "contract notes")
	c.Register(&serveCmd{}, "server")
}

// loadTrades reads a tradebook CSV file.
func loadTrades(path string) ([]folio.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open tradebook: %w", err)
	}
	defer f.Close()
	return folio.ImportTrades(f)
}

// extractNote parses one contract note file, tabular or JSON depending on
// the file extension.
func extractNote(path string) (contractnote.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return contractnote.Summary{}, err
	}
	if filepath.Ext(path) == ".json" {
		return contractnote.ParseJSON(data)
	}
	return contractnote.Parse(data)
}

// loadCharges parses every contract note in a directory into the per-date
// charge table. An empty directory name yields an empty table.
func loadCharges(dir string) (folio.Charges, error) {
	if dir == "" {
		return folio.NewCharges(), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read contract notes directory: %w", err)
	}

	var summaries []contractnote.Summary
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".csv", ".json":
		default:
			continue
		}
		summary, err := extractNote(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		summaries = append(summaries, summary)
	}
	return contractnote.Aggregate(summaries), nil
}
