package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucaslnrr/v0-response-monitor/internal/app"
	"github.com/lucaslnrr/v0-response-monitor/internal/config"
	"github.com/lucaslnrr/v0-response-monitor/internal/repository"
	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
	"github.com/lucaslnrr/v0-response-monitor/internal/service"
	"github.com/lucaslnrr/v0-response-monitor/internal/watch"
	dbbuilder "github.com/lucaslnrr/v0-response-monitor/pkg/database"
)

type rootOptions struct {
	source  string
	dbPath  string
	apiURL  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "monitorctl",
		Short:         "Inspect PROART response monitor dashboards",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.source, "source", "", "monitor source: sqlite or http (default from SOURCE_KIND)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "survey database path (default from DB_PATH)")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "survey API base URL (default from MONITOR_API_URL)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newDashboardCmd(opts),
		newWatchCmd(opts),
		newLegendCmd(),
		newDemoDBCmd(),
	)
	return root
}

func (o *rootOptions) config() (*config.Config, error) {
	cfg := config.LoadFromEnv()
	if o.source != "" {
		cfg.SourceKind = o.source
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.apiURL != "" {
		cfg.MonitorAPIURL = o.apiURL
		if o.source == "" {
			cfg.SourceKind = config.SourceHTTP
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) logger(cfg *config.Config) (*zap.Logger, error) {
	if !o.verbose {
		return zap.NewNop(), nil
	}
	return config.NewLogger(cfg)
}

// openDashboards returns the dashboard service and a func releasing its source.
func (o *rootOptions) openDashboards(ctx context.Context) (*service.DashboardService, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	logger, err := o.logger(cfg)
	if err != nil {
		return nil, nil, err
	}
	src, err := app.OpenSource(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app.NewDashboardService(cfg, src, nil, logger), func() { _ = src.Close() }, nil
}

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	var (
		token  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard for a monitor token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeSource, err := opts.openDashboards(cmd.Context())
			if err != nil {
				return err
			}
			defer closeSource()

			d, err := svc.GetDashboard(cmd.Context(), token)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			renderDashboard(cmd.OutOrStdout(), d)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "monitor token")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		token    string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the dashboard for a monitor token on an interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, closeSource, err := opts.openDashboards(ctx)
			if err != nil {
				return err
			}
			defer closeSource()

			out := cmd.OutOrStdout()
			p := watch.New(svc,
				watch.WithInterval(interval),
				watch.WithOnUpdate(func(s watch.State) { renderState(out, s) }),
			)
			p.SetToken(token)

			if err := p.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "monitor token")
	cmd.Flags().DurationVar(&interval, "interval", watch.DefaultInterval, "refresh interval")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newLegendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "legend",
		Short: "Print the classification thresholds",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			renderLegend(cmd.OutOrStdout(), scoring.Legend())
		},
	}
}

func newDemoDBCmd() *cobra.Command {
	var (
		path  string
		token string
	)
	cmd := &cobra.Command{
		Use:   "demo-db",
		Short: "Create a local survey database with a demo monitor link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := dbbuilder.New(cmd.Context(),
				dbbuilder.WithDriver("sqlite3"),
				dbbuilder.WithDataSource(path),
				dbbuilder.WithPool(1, 1),
				dbbuilder.WithRetry(1, 0),
			)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.SeedDemo(cmd.Context(), db, token, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s; monitor token %q valid for %s\n",
				path, token, repository.DemoLinkTTL)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "./data/survey.db", "database file to create")
	cmd.Flags().StringVar(&token, "token", "demo", "monitor token of the demo link")
	return cmd
}
