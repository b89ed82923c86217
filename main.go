package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/padraicbc/amwatch/browser"
	"github.com/padraicbc/amwatch/config"
	"github.com/padraicbc/amwatch/db"
	"github.com/padraicbc/amwatch/dispatch"
	applog "github.com/padraicbc/amwatch/logger"
	"github.com/padraicbc/amwatch/ops"
	"github.com/padraicbc/amwatch/stats"
)

func main() {
	var logDir string
	var missingOnly bool

	root := &cobra.Command{
		Use:           "amwatch",
		Short:         "Scrapes wagering site race data into a local database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	run := &cobra.Command{
		Use:   "run <db_path>",
		Short: "Prepare today's meets and watch their races",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cfg.DBPath = args[0]
			cfg.LogDir = logDir
			cfg.MissingOnly = missingOnly
			return runCampaign(cmd.Context(), cfg)
		},
	}
	run.Flags().StringVar(&logDir, "log-dir", "", "directory for per-task log files (default stderr)")
	run.Flags().BoolVar(&missingOnly, "missing-only", false, "only report tracks missing from the catalog")
	root.AddCommand(run)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCampaign(ctx context.Context, cfg *config.Config) error {
	// Without a log dir everything shares one console stream; with one, the
	// dispatcher gets its own file like every other task kind.
	var logger *zap.Logger
	var err error
	if cfg.LogDir == "" {
		logger, err = applog.New(cfg.Debug)
	} else {
		logger, err = applog.NewTask(cfg.LogDir, "dispatch", cfg.Debug)
	}
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	bdb := db.Setup(cfg)
	defer bdb.Close()
	if err := db.CreateTables(ctx, bdb); err != nil {
		return err
	}

	if cfg.Cookies == "" {
		logger.Warn("AMW_COOKIES not set, proceeding without an authenticated session")
	}
	rootSession, err := browser.New(cfg.BaseURL, browser.ParseCookies(cfg.Cookies))
	if err != nil {
		return err
	}
	defer rootSession.Quit()

	statsClient := stats.NewClient(cfg.StatsBaseURL, logger)
	dispatcher, err := dispatch.New(bdb, cfg, logger, rootSession, statsClient)
	if err != nil {
		return err
	}

	if cfg.OpsAddr != "" {
		server := ops.New(bdb, dispatcher, logger)
		go server.Start(ctx, cfg.OpsAddr)
	}

	return dispatcher.Run(ctx)
}
