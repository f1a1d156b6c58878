package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ravisk/folio/server"
)

type serveCmd struct {
	config string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the holdings dashboard API" }
func (*serveCmd) Usage() string {
	return `serve -config <folio.yaml>

  Starts the HTTP server backing the dashboard: holdings, realized gains,
  charge summaries, and the ingest preview/commit workflow.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "folio.yaml", "Path to the server configuration file")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := server.LoadConfig(c.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync()

	if err := server.InitTracing(cfg.Tracing); err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.ShutdownTracing(shutdownCtx)
	}()

	srv := server.New(log, cfg.Currency)
	if cfg.Tradebook != "" {
		trades, err := loadTrades(cfg.Tradebook)
		if err != nil {
			log.Error("cannot load tradebook", zap.Error(err))
			return subcommands.ExitFailure
		}
		charges, err := loadCharges(cfg.NotesDir)
		if err != nil {
			log.Error("cannot load contract notes", zap.Error(err))
			return subcommands.ExitFailure
		}
		srv.Load(trades, charges)
		log.Info("initial state loaded", zap.Int("trades", len(trades)), zap.Int("charged_dates", len(charges)))
	}

	log.Info("listening", zap.String("addr", cfg.Listen))
	if err := http.ListenAndServe(cfg.Listen, srv.Router()); err != nil {
		log.Error("server stopped", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
