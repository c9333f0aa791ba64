// Package cli implements ledgerctl, the operator tool for the ledger database.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GlebRadaev/wholesale/internal/app"
	"github.com/GlebRadaev/wholesale/internal/config"
	"github.com/GlebRadaev/wholesale/internal/pg"
	"github.com/GlebRadaev/wholesale/internal/repo"
	"github.com/GlebRadaev/wholesale/pkg/logger"
)

// env is what every command that touches the database needs.
type env struct {
	cfg   *config.Config
	pool  *pgxpool.Pool
	repos *repo.Repositories
	log   zerolog.Logger
}

func (e *env) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

type rootOptions struct {
	database string
	logLevel string
}

func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// open loads the configuration, applies flag overrides and connects.
func (o *rootOptions) open(ctx context.Context, component string) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("can't load config: %w", err)
	}
	if o.database != "" {
		cfg.Database = o.database
	}
	if o.logLevel != "" {
		cfg.LogLvl = o.logLevel
	}
	if err := logger.InitLogger(cfg); err != nil {
		return nil, err
	}

	pool, err := app.NewPgxpool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}
	return &env{
		cfg:   cfg,
		pool:  pool,
		repos: repo.New(pg.New(pool), pg.NewTXManager(pool)),
		log:   newLogger(cfg.LogLvl, os.Stderr).With().Str("component", component).Logger(),
	}, nil
}

// NewRootCmd builds the command tree writing results to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the wholesale ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.database, "database", "d", "", "database DSN (default DATABASE_URI)")
	root.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "log level (default LOG_LVL)")

	root.AddCommand(
		newMigrateCmd(opts),
		newAuditCmd(opts),
		newInvoicesCmd(opts),
		newSettlementCmd(opts),
	)
	return root
}

func Execute(ctx context.Context) int {
	cmd := NewRootCmd(os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log := newLogger("info", os.Stderr)
		log.Error().Err(err).Msg("command failed")
		return 1
	}
	return 0
}
