package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ajramos/asyncprobe/internal/config"
	"github.com/ajramos/asyncprobe/internal/db"
	"github.com/ajramos/asyncprobe/internal/executor"
	"github.com/ajramos/asyncprobe/internal/fetch"
	"github.com/ajramos/asyncprobe/internal/logging"
	"github.com/ajramos/asyncprobe/internal/probe"
	"github.com/ajramos/asyncprobe/internal/version"
	"github.com/ajramos/asyncprobe/pkg/auth"
	"go.uber.org/zap"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitSetup  = 2

	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath  string
	only        string
	parallel    bool
	jsonOutput  bool
	metricsFile string
	history     int
	setup       bool
	version     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("asyncprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (default: ~/.config/asyncprobe/config.yaml)")
	fs.StringVar(&opts.only, "only", "", "Comma-separated list of probes to run (value,error,http,database,executor)")
	fs.BoolVar(&opts.parallel, "parallel", false, "Run probes concurrently")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Print the report as JSON")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Write prometheus metrics to this file after the run")
	fs.IntVar(&opts.history, "history", 0, "Print the last N recorded results from the run history and exit")
	fs.BoolVar(&opts.setup, "setup", false, "Write a default configuration file and exit")
	fs.BoolVar(&opts.version, "version", false, "Show version information and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(stderr, "Usage:\n")
		fmt.Fprintf(stderr, "  asyncprobe [options]\n\n")
		fmt.Fprintf(stderr, "Examples:\n")
		fmt.Fprintf(stderr, "  asyncprobe                          # Run every probe with default configuration\n")
		fmt.Fprintf(stderr, "  asyncprobe --only value,database    # Run a subset of probes\n")
		fmt.Fprintf(stderr, "  asyncprobe --parallel --json        # Run concurrently, machine-readable output\n")
		fmt.Fprintf(stderr, "  asyncprobe --history 20             # Show the 20 most recent recorded results\n")
		fmt.Fprintf(stderr, "  asyncprobe --setup                  # Write the default config file\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(stderr, "  ASYNCPROBE_CONFIG         Override default config file path\n")
		fmt.Fprintf(stderr, "  ASYNCPROBE_HTTP_BASE_URL  Override the HTTP probe endpoint\n")
		fmt.Fprintf(stderr, "  ASYNCPROBE_HTTP_TOKEN     Bearer token for the HTTP probe\n")
		fmt.Fprintf(stderr, "  ASYNCPROBE_LOG_LEVEL      Override the log level\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitSetup
	}

	if opts.version {
		fmt.Fprintln(stdout, version.GetDetailedVersionString())
		return exitOK
	}

	configPath := getConfigPath(opts.configPath)
	if opts.setup {
		return runSetupWizard(configPath, stdin, stdout)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: could not load configuration: %v\n", err)
		return exitSetup
	}
	if opts.only != "" {
		cfg.Runner.Probes = splitList(opts.only)
	}
	if opts.parallel {
		cfg.Runner.Parallel = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSetup
	}

	if opts.history > 0 {
		if err := printHistory(ctx, stdout, expandPath(cfg.HistoryPath()), opts.history); err != nil {
			fmt.Fprintf(stderr, "Error: could not read run history: %v\n", err)
			return exitSetup
		}
		return exitOK
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   expandPath(cfg.Log.File),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: could not initialize logging: %v\n", err)
		return exitSetup
	}
	defer func() { _ = logger.Sync() }()

	tokens, err := auth.NewTokenConfig(expandPath(cfg.HTTP.TokenFile), cfg.HTTP.TokenEnv).TokenSource()
	if err != nil && !errors.Is(err, auth.ErrNoToken) {
		logger.Error("could not load HTTP token", zap.Error(err))
		return exitSetup
	}

	fetcher := fetch.New(fetch.Options{
		BaseURL:     cfg.HTTP.BaseURL,
		Timeout:     cfg.GetHTTPTimeout(),
		UserAgent:   cfg.HTTP.UserAgent,
		TokenSource: tokens,
		Logger:      logger,
	})

	pool := executor.New(cfg.Executor.Workers, cfg.Executor.QueueSize, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := pool.Shutdown(shutdownCtx); err != nil {
			logger.Warn("executor shutdown incomplete", zap.Error(err))
		}
	}()

	probes, err := probe.FromConfig(cfg, probe.Deps{Fetcher: fetcher, Pool: pool})
	if err != nil {
		logger.Error("invalid probe selection", zap.Error(err))
		return exitSetup
	}

	metrics := probe.NewMetrics()
	report := probe.NewRunner(probes, probe.RunnerOptions{
		Logger:       logger,
		Metrics:      metrics,
		Parallel:     cfg.Runner.Parallel,
		ProbeTimeout: cfg.GetProbeTimeout(),
	}).Run(ctx)

	if cfg.History.Enabled {
		if err := saveHistory(context.WithoutCancel(ctx), expandPath(cfg.HistoryPath()), report); err != nil {
			logger.Warn("could not save run history", zap.Error(err))
		}
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(expandPath(opts.metricsFile)); err != nil {
			logger.Warn("could not write metrics file", zap.String("path", opts.metricsFile), zap.Error(err))
		}
	}

	if opts.jsonOutput {
		err = writeJSONReport(stdout, report)
	} else {
		err = writeTableReport(stdout, report)
	}
	if err != nil {
		logger.Error("could not write report", zap.Error(err))
	}

	if !report.Passed() {
		return exitFailed
	}
	return exitOK
}

func saveHistory(ctx context.Context, path string, report *probe.Report) error {
	store, err := db.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	return db.NewRunStore(store).SaveRun(ctx, report.Records())
}

func printHistory(ctx context.Context, w io.Writer, path string, limit int) error {
	store, err := db.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := db.NewRunStore(store).RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintf(w, "No runs recorded in %s\n", path)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRUN\tPROBE\tRESULT\tDURATION\tERROR")
	for _, rec := range runs {
		result := "PASS"
		if !rec.Passed {
			result = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime), rec.RunID, rec.Probe, result,
			rec.Duration.Round(time.Millisecond), rec.Error)
	}
	return tw.Flush()
}

func writeTableReport(w io.Writer, report *probe.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROBE\tRESULT\tDURATION\tERROR")
	for _, res := range report.Results {
		result := "PASS"
		if !res.Passed {
			result = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Name, result, res.Duration.Round(time.Millisecond), res.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d/%d probes passed (run %s, %s)\n",
		len(report.Results)-len(report.Failed()), len(report.Results),
		report.RunID, report.Duration.Round(time.Millisecond))
	return err
}

func writeJSONReport(w io.Writer, report *probe.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*probe.Report
		Passed bool `json:"passed"`
	}{Report: report, Passed: report.Passed()})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable ASYNCPROBE_CONFIG
// 3. Default path ~/.config/asyncprobe/config.yaml
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return expandPath(flagValue)
	}

	if envPath := os.Getenv("ASYNCPROBE_CONFIG"); envPath != "" {
		return expandPath(envPath)
	}

	return config.DefaultConfigPath()
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	return filepath.Join(home, path[2:])
}

// runSetupWizard offers to write the default configuration to configPath
func runSetupWizard(configPath string, in io.Reader, out io.Writer) int {
	fmt.Fprintln(out, "asyncprobe setup")
	fmt.Fprintln(out, "================")
	fmt.Fprintln(out)

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "Configuration file already exists: %s\n", configPath)
		return exitOK
	}

	fmt.Fprintf(out, "Create default configuration file %s? [Y/n]: ", configPath)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	if response != "" && response != "y" && response != "yes" {
		fmt.Fprintln(out, "\nNothing written.")
		return exitOK
	}

	if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
		fmt.Fprintf(out, "\nFailed to create config file: %v\n", err)
		return exitSetup
	}
	fmt.Fprintf(out, "\nCreated configuration file: %s\n", configPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Tips:")
	fmt.Fprintln(out, "  Edit http.base_url to point the HTTP probe at another endpoint")
	fmt.Fprintln(out, "  Set history.enabled to keep a record of every run")
	fmt.Fprintln(out, "  Run with -h to see all options")
	return exitOK
}
