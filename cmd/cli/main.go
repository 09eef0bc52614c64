package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/courtbill/pkg/config"
	"github.com/yurifrl/courtbill/pkg/csv"
	"github.com/yurifrl/courtbill/pkg/easyverein"
	"github.com/yurifrl/courtbill/pkg/executors"
	"github.com/yurifrl/courtbill/pkg/metrics"
	"github.com/yurifrl/courtbill/pkg/parser"
	"github.com/yurifrl/courtbill/pkg/plan"
)

var (
	cliFilters filters
	cfgFile    string
)

var rootCmd = &cobra.Command{
	Use:   "courtbill",
	Short: "Invoice unpaid Courtbooking drinks through easyVerein",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview the invoices of the next run without sending anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.writeMetrics()

		pdfDir, _ := cmd.Flags().GetString("pdf-dir")
		p, err := env.exec.Plan(cmd.Context(), cmd.OutOrStdout(), config.ExpandHome(pdfDir))
		if err != nil {
			return err
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := p.Save(config.ExpandHome(out)); err != nil {
				return err
			}
			env.logger.Info("plan written", "path", out)
		}
		if dump, _ := cmd.Flags().GetBool("dump"); dump {
			pp.Fprintln(cmd.ErrOrStderr(), p)
		}
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create the invoices in easyVerein and record them in the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.writeMetrics()

		report, err := env.exec.Run(cmd.Context())
		if report != nil {
			report.Print(cmd.OutOrStdout())
			if dump, _ := cmd.Flags().GetBool("dump"); dump {
				pp.Fprintln(cmd.ErrOrStderr(), report)
			}
		}
		return err
	},
}

var showCmd = &cobra.Command{
	Use:   "show <plan.yaml>",
	Short: "Print a plan written by plan --out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(config.ExpandHome(args[0]))
		if err != nil {
			return err
		}
		p.Print(cmd.OutOrStdout())
		return nil
	},
}

type environment struct {
	logger  *log.Logger
	config  *config.Config
	metrics *metrics.Metrics
	exec    *executors.Executor
}

func (e *environment) writeMetrics() {
	if e.config.MetricsFile == "" {
		return
	}
	if err := e.metrics.WriteTextfile(e.config.MetricsFile); err != nil {
		e.logger.Error("failed to write metrics", "error", err)
	}
}

func setup(cmd *cobra.Command) (*environment, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "courtbill",
	})

	// Load configuration (config file + env + flag overrides)
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := csv.Encoding(cfg.Files.Encoding)
	if err != nil {
		return nil, err
	}
	filter, err := cliFilters.toFilterFunc()
	if err != nil {
		return nil, err
	}

	client, err := easyverein.New(cfg.API.BaseURL, cfg.API.Version, cfg.API.Key,
		easyverein.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		easyverein.WithPageSize(cfg.API.PageSize),
		easyverein.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	exec := executors.New(logger, cfg, parser.New(logger, enc), client.Contacts(), client.Invoices(), m).
		WithFilter(filter)
	logger.Debug("configuration loaded", "dir", cfg.Files.Dir, "completion_date", cfg.CompletionDate.Format(time.DateOnly), "dry_run", cfg.DryRun, "run", exec.RunID())

	return &environment{logger: logger, config: cfg, metrics: m, exec: exec}, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("dir", "", "Directory holding the exports and the ledger")
	rootCmd.PersistentFlags().String("completion-date", "", "Completion date of the drinks list (YYYY-MM-DD)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write run metrics to this node_exporter textfile")

	// Filter flags (global)
	rootCmd.PersistentFlags().StringVar(&cliFilters.startDate, "start", "", "First purchase date to bill (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&cliFilters.endDate, "end", "", "Last purchase date to bill (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&cliFilters.person, "person", "", "Only bill persons whose name contains this text")

	planCmd.Flags().String("out", "", "Write the plan as YAML")
	planCmd.Flags().String("pdf-dir", "", "Render every drafted invoice as PDF into this directory")
	planCmd.Flags().Bool("dump", false, "Dump the plan structure to stderr")

	applyCmd.Flags().Bool("dry-run", false, "Compose invoices but send nothing")
	applyCmd.Flags().Duration("rate-limit-delay", 10*time.Second, "Pause after every created invoice")
	applyCmd.Flags().Bool("dump", false, "Dump the run report to stderr")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(showCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}
